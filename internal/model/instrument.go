package model

// Segment is a TSE market segment classification.
type Segment int

const (
	SegmentOther Segment = iota
	SegmentPrime
	SegmentStandard
	SegmentGrowth
)

// String returns the segment label as it appears in the registry.
func (s Segment) String() string {
	switch s {
	case SegmentPrime:
		return "Prime"
	case SegmentStandard:
		return "Standard"
	case SegmentGrowth:
		return "Growth"
	default:
		return "Other"
	}
}

// Tradable reports whether instruments in this segment are retained by the catalog.
func (s Segment) Tradable() bool {
	return s == SegmentPrime || s == SegmentStandard || s == SegmentGrowth
}

// ParseSegment maps a registry label to a Segment. Unrecognized labels
// map to SegmentOther, which the catalog drops at load time.
func ParseSegment(label string) Segment {
	switch label {
	case "Prime", "prime", "PRIME":
		return SegmentPrime
	case "Standard", "standard", "STANDARD":
		return SegmentStandard
	case "Growth", "growth", "GROWTH":
		return SegmentGrowth
	default:
		return SegmentOther
	}
}

// Instrument is one registry entry. Immutable once loaded; owned by the catalog.
type Instrument struct {
	Code    string // exchange-local code, zero-padded
	Name    string
	Segment Segment
	Sector  string // may be empty
}
