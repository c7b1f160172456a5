// Package anomaly classifies and corrects discontinuities in counter
// sequences. It is used for both the reconstructed event-serial stream and
// the camera's independently-logged per-frame counters.
package anomaly

// CounterSample is one entry of a counter sequence. Value == -1 is a valid
// sentinel meaning "failed read", distinct from a missing entry.
type CounterSample struct {
	Index int
	Value int64
}

// Sentinel marks a failed counter read
const Sentinel int64 = -1

// Kind is the discontinuity taxonomy
type Kind uint8

const (
	// TypeI is a drop-to-zero run that resumes past the pre-anomaly value
	TypeI Kind = iota + 1

	// TypeII is a nested reset: zeros with a count-up sub-run (0,1,2,...)
	// before resuming
	TypeII

	// TypeIII is a simple forward skip with no intervening zero run
	TypeIII

	// TypeIV is a run of -1 sentinels from failed decodes
	TypeIV
)

// String names the kind for logs and manifests
func (k Kind) String() string {
	switch k {
	case TypeI:
		return "type_i"
	case TypeII:
		return "type_ii"
	case TypeIII:
		return "type_iii"
	case TypeIV:
		return "type_iv"
	default:
		return "unknown"
	}
}

// Discontinuity annotates one anomalous run over a CounterSample sequence.
// Indices are inclusive and refer to positions in the sequence, not sample
// Index fields. Annotations never overlap.
type Discontinuity struct {
	Kind       Kind
	StartIndex int
	EndIndex   int
}

// Values extracts the raw values of a sample sequence
func Values(seq []CounterSample) []int64 {
	out := make([]int64, len(seq))
	for i, s := range seq {
		out[i] = s.Value
	}
	return out
}

// Samples wraps raw values into a sample sequence with positional indices
func Samples(values []int64) []CounterSample {
	out := make([]CounterSample, len(values))
	for i, v := range values {
		out[i] = CounterSample{Index: i, Value: v}
	}
	return out
}
