package model

import (
	"math"
	"sort"
	"time"
)

// Bar represents a single candlestick bar.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Valid reports whether the bar satisfies the OHLC ordering invariant
// with positive finite prices and non-negative volume.
func (b Bar) Valid() bool {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	lo, hi := b.Open, b.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return b.Low <= lo && hi <= b.High && b.Volume >= 0
}

// TypicalPrice returns (high + low + close) / 3, the representative
// price of the bar used for volume weighting.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Series is an ordered, strictly-increasing-by-timestamp sequence of bars
// for one (symbol, interval) pair.
type Series struct {
	Symbol   string
	Interval Interval
	Bars     []Bar
}

// NewSeries builds a normalized series from raw bars: invalid and
// zero-volume bars are dropped (volume zero marks a non-trading period),
// the rest are sorted chronologically and de-duplicated by timestamp
// (first occurrence wins).
func NewSeries(symbol string, interval Interval, bars []Bar) Series {
	kept := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Volume == 0 || !b.Valid() {
			continue
		}
		kept = append(kept, b)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Time.Before(kept[j].Time) })

	out := kept[:0]
	var last time.Time
	for _, b := range kept {
		if len(out) > 0 && b.Time.Equal(last) {
			continue
		}
		out = append(out, b)
		last = b.Time
	}
	return Series{Symbol: symbol, Interval: interval, Bars: out}
}

// Empty reports whether the series holds no bars.
func (s Series) Empty() bool { return len(s.Bars) == 0 }
