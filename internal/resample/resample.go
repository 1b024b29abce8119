// Package resample aggregates a finer-grained bar series into a coarser
// one under OHLCV aggregation rules: first open, max high, min low, last
// close, summed volume per bucket.
package resample

import (
	"time"

	"KabuScope/internal/model"
)

// Resample partitions s into non-overlapping calendar buckets of the
// target width and aggregates each bucket. Buckets are aligned to a fixed
// epoch in UTC, so resampling the same input always yields the same
// output. Empty buckets are omitted; no bars are synthesized.
//
// Resampling to an interval equal to or finer than the input interval is
// a no-op returning s unchanged. An unsupported target fails with
// model.ErrUnsupportedInterval.
func Resample(s model.Series, target model.Interval) (model.Series, error) {
	if !target.Supported() {
		return model.Series{}, model.ErrUnsupportedInterval
	}
	if !target.CoarserThan(s.Interval) {
		return s, nil
	}

	out := model.Series{Symbol: s.Symbol, Interval: target}
	if len(s.Bars) == 0 {
		return out, nil
	}

	var cur model.Bar
	var curStart time.Time
	open := false

	flush := func() {
		if open {
			out.Bars = append(out.Bars, cur)
		}
	}

	for _, b := range s.Bars {
		start := BucketStart(b.Time, target)
		if !open || !start.Equal(curStart) {
			flush()
			curStart = start
			cur = model.Bar{
				Time:   start,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			open = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	flush()
	return out, nil
}

// BucketStart returns the aligned start of the bucket containing t for
// the given interval. Alignment is calendar-aware in UTC: 5-minute
// truncation, day start, ISO week start (Monday), month start.
func BucketStart(t time.Time, interval model.Interval) time.Time {
	t = t.UTC()
	switch interval {
	case model.Interval5Min:
		return t.Truncate(5 * time.Minute)
	case model.IntervalDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case model.IntervalWeekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// back up to Monday
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case model.IntervalMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}
