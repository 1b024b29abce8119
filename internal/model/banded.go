package model

// BandedBar augments a bar with VWAP band fields. HasBands is false while
// the rolling window has not accumulated enough history; the band fields
// are meaningless in that case and must not be read.
type BandedBar struct {
	Bar
	VWAP     float64
	StdDev   float64
	Upper1   float64
	Lower1   float64
	Upper2   float64
	Lower2   float64
	HasBands bool
}

// BandedSeries is a series with band fields attached. Derived on demand,
// never persisted as a whole.
type BandedSeries struct {
	Symbol   string
	Interval Interval
	Bars     []BandedBar
}

// Last returns the most recent banded bar, or false if the series is empty.
func (s BandedSeries) Last() (BandedBar, bool) {
	if len(s.Bars) == 0 {
		return BandedBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// BatchResult is one instrument's outcome within a batch. Exactly one of
// Series and Err is non-nil. This is the sole record the presentation
// layer consumes.
type BatchResult struct {
	Code   string
	Name   string // display name when the catalog knows the code, else empty
	Series *BandedSeries
	Err    error
}
