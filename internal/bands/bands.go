// Package bands computes the volume-weighted average price and symmetric
// statistical envelopes over a bar series.
//
// The reference algorithm is a rolling-window, volume-weighted mean of the
// typical price with a volume-weighted variance over the same window.
// Bars with less than a full window of history carry no band values: a
// partial-window estimate would be biased, so the fields stay unset until
// the window fills.
package bands

import (
	"math"

	"KabuScope/internal/model"
)

// DefaultWindow is the rolling window size in bars.
const DefaultWindow = 20

// Attach computes band fields for every bar of s over a rolling window of
// the given size and returns a new banded series. The input is not
// mutated. Fails only with model.ErrInvalidWindow when window < 1.
//
// For each index i >= window-1, over bars j in [i-window+1, i]:
//
//	vwap   = sum(tp_j * vol_j) / sum(vol_j)
//	stddev = sqrt(sum(vol_j * (tp_j - vwap)^2) / sum(vol_j))
//
// with tp the typical price (H+L+C)/3. Bands sit at vwap ± stddev and
// vwap ± 2*stddev. A window with zero total volume cannot occur when the
// series was normalized upstream, but is defended against: such bars keep
// HasBands false instead of dividing by zero.
func Attach(s model.Series, window int) (model.BandedSeries, error) {
	if window < 1 {
		return model.BandedSeries{}, model.ErrInvalidWindow
	}

	out := model.BandedSeries{
		Symbol:   s.Symbol,
		Interval: s.Interval,
		Bars:     make([]model.BandedBar, len(s.Bars)),
	}

	// Rolling sums: sum(vol), sum(tp*vol). The variance term needs the
	// window mean, so the squared deviations are accumulated per bar below.
	var sumVol, sumTPVol float64
	for i, b := range s.Bars {
		out.Bars[i] = model.BandedBar{Bar: b}

		tp := b.TypicalPrice()
		vol := float64(b.Volume)
		sumVol += vol
		sumTPVol += tp * vol

		if i >= window {
			old := s.Bars[i-window]
			oldVol := float64(old.Volume)
			sumVol -= oldVol
			sumTPVol -= old.TypicalPrice() * oldVol
		}
		if i < window-1 || sumVol <= 0 {
			continue
		}

		vwap := sumTPVol / sumVol
		var sqDev float64
		for j := i - window + 1; j <= i; j++ {
			d := s.Bars[j].TypicalPrice() - vwap
			sqDev += float64(s.Bars[j].Volume) * d * d
		}
		sd := math.Sqrt(sqDev / sumVol)

		bb := &out.Bars[i]
		bb.VWAP = vwap
		bb.StdDev = sd
		bb.Upper1 = vwap + sd
		bb.Lower1 = vwap - sd
		bb.Upper2 = vwap + 2*sd
		bb.Lower2 = vwap - 2*sd
		bb.HasBands = true
	}
	return out, nil
}
