package fact

// TimeKind discriminates the variant of a TimeRef.
type TimeKind string

const (
	TimeInstant  TimeKind = "instant"
	TimeInterval TimeKind = "interval"
	TimeRelative TimeKind = "relative"
	TimeUnknown  TimeKind = "unknown"
)

// Precision is one of a finite enum of time granularities.
type Precision string

const (
	PrecisionMS     Precision = "ms"
	PrecisionSecond Precision = "second"
	PrecisionMinute Precision = "minute"
	PrecisionHour   Precision = "hour"
	PrecisionDay    Precision = "day"
)

// precisionMS returns the width, in milliseconds, of one unit at this precision.
func precisionMS(p Precision) int64 {
	switch p {
	case PrecisionSecond:
		return 1000
	case PrecisionMinute:
		return 60 * 1000
	case PrecisionHour:
		return 60 * 60 * 1000
	case PrecisionDay:
		return 24 * 60 * 60 * 1000
	default:
		return 1
	}
}

// TimeRef is a point, span, relative offset, or unknown time reference.
type TimeRef struct {
	Kind      TimeKind  `json:"kind"`
	EpochMS   int64     `json:"epoch_ms,omitempty"`
	StartMS   int64     `json:"start_ms,omitempty"`
	EndMS     int64     `json:"end_ms,omitempty"`
	AnchorID  string    `json:"anchor_id,omitempty"`
	OffsetMS  int64     `json:"offset_ms,omitempty"`
	Precision Precision `json:"precision,omitempty"`
}

// Instant constructs a point-in-time reference.
func Instant(epochMS int64, precision Precision) TimeRef {
	return TimeRef{Kind: TimeInstant, EpochMS: epochMS, Precision: precision}
}

// Interval constructs a span reference, normalizing start > end by swapping.
func Interval(startMS, endMS int64, precision Precision) TimeRef {
	if startMS > endMS {
		startMS, endMS = endMS, startMS
	}
	return TimeRef{Kind: TimeInterval, StartMS: startMS, EndMS: endMS, Precision: precision}
}

// Relative constructs a reference relative to a named anchor.
func Relative(anchorID string, offsetMS int64, precision Precision) TimeRef {
	return TimeRef{Kind: TimeRelative, AnchorID: anchorID, OffsetMS: offsetMS, Precision: precision}
}

// UnknownTime constructs an unresolved time reference.
func UnknownTime() TimeRef { return TimeRef{Kind: TimeUnknown} }

// bounds projects the reference to a [start, end] millisecond range at its
// own precision. Relative and Unknown references have no absolute bounds and
// report ok=false; TimeOverlaps handles them before asking for bounds.
func (t TimeRef) bounds() (start, end int64, ok bool) {
	switch t.Kind {
	case TimeInstant:
		return t.EpochMS, t.EpochMS, true
	case TimeInterval:
		return t.StartMS, t.EndMS, true
	default:
		return 0, 0, false
	}
}

// OverlapPolicy controls how strictly time ranges must overlap to count as
// overlapping; non-strict policies widen ranges by a precision-sized margin.
type OverlapPolicy string

const (
	// PolicyStrict requires closed-interval overlap of the raw millisecond
	// bounds; precision is not used.
	PolicyStrict OverlapPolicy = "strict"
	// PolicyWiden pads each bound by one unit of its own precision before
	// testing overlap, to tolerate coarse-grained provenance.
	PolicyWiden OverlapPolicy = "widen"
)

// TimeOverlaps returns true iff a and b's projected ranges overlap under
// policy. It is symmetric: TimeOverlaps(a, b, p) == TimeOverlaps(b, a, p).
func TimeOverlaps(a, b TimeRef, policy OverlapPolicy) bool {
	if a.Kind == TimeUnknown || b.Kind == TimeUnknown {
		return true
	}
	if a.Kind == TimeRelative || b.Kind == TimeRelative {
		// Without a shared anchor resolver, relative refs can't be compared
		// precisely; treat distinct anchors as non-overlapping, same anchor
		// and offset as overlapping.
		if a.Kind == TimeRelative && b.Kind == TimeRelative {
			return a.AnchorID == b.AnchorID && a.OffsetMS == b.OffsetMS
		}
		return false
	}

	aStart, aEnd, _ := a.bounds()
	bStart, bEnd, _ := b.bounds()

	if policy == PolicyWiden {
		aMargin := precisionMS(a.Precision)
		bMargin := precisionMS(b.Precision)
		aStart -= aMargin
		aEnd += aMargin
		bStart -= bMargin
		bEnd += bMargin
	}

	return aStart <= bEnd && bStart <= aEnd
}
