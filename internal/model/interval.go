package model

import "fmt"

// Interval is a supported bar granularity.
type Interval int

const (
	IntervalUnknown Interval = iota
	Interval5Min
	IntervalDaily
	IntervalWeekly
	IntervalMonthly
)

// String returns the canonical label used in config files and logs.
func (i Interval) String() string {
	switch i {
	case Interval5Min:
		return "5m"
	case IntervalDaily:
		return "daily"
	case IntervalWeekly:
		return "weekly"
	case IntervalMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// YahooCode returns the interval parameter understood by the Yahoo chart API.
func (i Interval) YahooCode() string {
	switch i {
	case Interval5Min:
		return "5m"
	case IntervalWeekly:
		return "1wk"
	case IntervalMonthly:
		return "1mo"
	default:
		return "1d"
	}
}

// Supported reports whether the interval is one of the enumerated granularities.
func (i Interval) Supported() bool {
	return i >= Interval5Min && i <= IntervalMonthly
}

// CoarserThan reports whether i aggregates over a wider calendar span than
// other. The enumeration order is the coarseness order.
func (i Interval) CoarserThan(other Interval) bool { return i > other }

// ParseInterval converts a config/CLI label into an Interval.
func ParseInterval(s string) (Interval, error) {
	switch s {
	case "5m", "5min":
		return Interval5Min, nil
	case "1d", "daily":
		return IntervalDaily, nil
	case "1wk", "weekly":
		return IntervalWeekly, nil
	case "1mo", "monthly":
		return IntervalMonthly, nil
	default:
		return IntervalUnknown, fmt.Errorf("parse interval %q: %w", s, ErrUnsupportedInterval)
	}
}

// Period is a lookback range accepted by the quote source.
type Period string

const (
	Period1Day   Period = "1d"
	Period5Day   Period = "5d"
	Period1Month Period = "1mo"
	Period3Month Period = "3mo"
	Period6Month Period = "6mo"
	Period1Year  Period = "1y"
	Period2Year  Period = "2y"
	Period5Year  Period = "5y"
	Period10Year Period = "10y"
	PeriodYTD    Period = "ytd"
	PeriodMax    Period = "max"
)

// Valid reports whether the period is one of the recognized lookback ranges.
func (p Period) Valid() bool {
	switch p {
	case Period1Day, Period5Day, Period1Month, Period3Month, Period6Month,
		Period1Year, Period2Year, Period5Year, Period10Year, PeriodYTD, PeriodMax:
		return true
	}
	return false
}
