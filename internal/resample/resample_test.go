package resample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KabuScope/internal/model"
)

func bar(ts string, o, h, l, c float64, v int64) model.Bar {
	t, err := time.Parse("2006-01-02 15:04", ts)
	if err != nil {
		panic(err)
	}
	return model.Bar{Time: t.UTC(), Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestResample_TwoBarsIntoOneDailyBucket(t *testing.T) {
	s := model.Series{
		Symbol:   "7203.T",
		Interval: model.Interval5Min,
		Bars: []model.Bar{
			bar("2025-06-02 09:00", 100, 105, 99, 102, 1000),
			bar("2025-06-02 09:05", 102, 103, 100, 101, 500),
		},
	}

	out, err := Resample(s, model.IntervalDaily)
	require.NoError(t, err)
	require.Len(t, out.Bars, 1)

	got := out.Bars[0]
	assert.Equal(t, 100.0, got.Open)
	assert.Equal(t, 105.0, got.High)
	assert.Equal(t, 99.0, got.Low)
	assert.Equal(t, 101.0, got.Close)
	assert.Equal(t, int64(1500), got.Volume)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), got.Time)
}

func TestResample_FinerOrEqualTargetIsNoOp(t *testing.T) {
	s := model.Series{
		Symbol:   "6758.T",
		Interval: model.IntervalDaily,
		Bars: []model.Bar{
			bar("2025-06-02 00:00", 100, 105, 99, 102, 1000),
			bar("2025-06-03 00:00", 102, 106, 101, 104, 1200),
		},
	}

	same, err := Resample(s, model.IntervalDaily)
	require.NoError(t, err)
	assert.Equal(t, s, same)

	finer, err := Resample(s, model.Interval5Min)
	require.NoError(t, err)
	assert.Equal(t, s, finer, "resampling must never fabricate sub-interval detail")
}

func TestResample_UnsupportedInterval(t *testing.T) {
	s := model.Series{Interval: model.IntervalDaily}
	_, err := Resample(s, model.IntervalUnknown)
	assert.ErrorIs(t, err, model.ErrUnsupportedInterval)
}

func TestResample_EmptyBucketsOmitted(t *testing.T) {
	s := model.Series{
		Symbol:   "7203.T",
		Interval: model.IntervalDaily,
		Bars: []model.Bar{
			bar("2025-06-02 00:00", 100, 105, 99, 102, 1000),
			// no bars for the rest of June
			bar("2025-08-04 00:00", 110, 112, 108, 111, 900),
		},
	}
	out, err := Resample(s, model.IntervalMonthly)
	require.NoError(t, err)
	require.Len(t, out.Bars, 2, "July has no contributing bars and must be omitted")
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), out.Bars[0].Time)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), out.Bars[1].Time)
}

func TestResample_TwoStepEqualsDirect(t *testing.T) {
	// Days nest in months, so 5min -> daily -> monthly must equal 5min -> monthly.
	var bars []model.Bar
	base := time.Date(2025, 5, 26, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		ts := base.AddDate(0, 0, i/4).Add(time.Duration(i%4*5) * time.Minute)
		p := 100 + float64(i)
		bars = append(bars, model.Bar{
			Time: ts, Open: p, High: p + 2, Low: p - 2, Close: p + 1, Volume: int64(100 + i),
		})
	}
	s := model.Series{Symbol: "9984.T", Interval: model.Interval5Min, Bars: bars}

	daily, err := Resample(s, model.IntervalDaily)
	require.NoError(t, err)
	viaDaily, err := Resample(daily, model.IntervalMonthly)
	require.NoError(t, err)
	direct, err := Resample(s, model.IntervalMonthly)
	require.NoError(t, err)

	assert.Equal(t, direct, viaDaily)
}

func TestResample_Idempotent(t *testing.T) {
	s := model.Series{
		Symbol:   "7203.T",
		Interval: model.Interval5Min,
		Bars: []model.Bar{
			bar("2025-06-02 09:00", 100, 105, 99, 102, 1000),
			bar("2025-06-03 09:00", 101, 104, 100, 103, 800),
			bar("2025-06-09 09:00", 103, 108, 102, 107, 600),
		},
	}
	once, err := Resample(s, model.IntervalWeekly)
	require.NoError(t, err)
	twice, err := Resample(once, model.IntervalWeekly)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestBucketStart_WeeklyAlignsToMonday(t *testing.T) {
	// 2025-06-05 is a Thursday.
	thu := time.Date(2025, 6, 5, 13, 45, 0, 0, time.UTC)
	got := BucketStart(thu, model.IntervalWeekly)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Monday, got.Weekday())

	// A Monday maps to itself.
	mon := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), BucketStart(mon, model.IntervalWeekly))
}

func TestResample_DoesNotMutateInput(t *testing.T) {
	bars := []model.Bar{
		bar("2025-06-02 09:00", 100, 105, 99, 102, 1000),
		bar("2025-06-02 09:05", 102, 103, 100, 101, 500),
	}
	s := model.Series{Symbol: "7203.T", Interval: model.Interval5Min, Bars: bars}
	_, err := Resample(s, model.IntervalDaily)
	require.NoError(t, err)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, int64(500), bars[1].Volume)
}
