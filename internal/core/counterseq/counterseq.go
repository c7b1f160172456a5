// Package counterseq has small helpers over counter value sequences:
// range extraction, interval overlap and monotonicity checks. It is the
// overlap-window arithmetic the synchronizer builds on.
package counterseq

// Range is an inclusive interval of counter values
type Range struct {
	Min int64
	Max int64
}

// RangeOf returns the min/max of values, ignoring negative sentinels.
// ok is false when no non-sentinel value exists.
func RangeOf(values []int64) (r Range, ok bool) {
	for _, v := range values {
		if v < 0 {
			continue
		}
		if !ok {
			r = Range{Min: v, Max: v}
			ok = true
			continue
		}
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	return r, ok
}

// Overlaps reports whether the two intervals intersect
func (r Range) Overlaps(o Range) bool { return r.Min <= o.Max && o.Min <= r.Max }

// Intersect returns the common sub-interval, ok=false when disjoint
func (r Range) Intersect(o Range) (Range, bool) {
	if !r.Overlaps(o) {
		return Range{}, false
	}
	out := r
	if o.Min > out.Min {
		out.Min = o.Min
	}
	if o.Max < out.Max {
		out.Max = o.Max
	}
	return out, true
}

// Contains reports whether v falls inside the interval
func (r Range) Contains(v int64) bool { return v >= r.Min && v <= r.Max }

// IsMonotonic reports whether values never decrease
func IsMonotonic(values []int64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return false
		}
	}
	return true
}

// IsStrictlyIncreasing reports whether values always grow
func IsStrictlyIncreasing(values []int64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return false
		}
	}
	return true
}
