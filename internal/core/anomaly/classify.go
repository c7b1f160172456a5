package anomaly

// Classifier states. The scan consumes one sample at a time and emits an
// annotation when it leaves an anomalous state.
type state uint8

const (
	stNormal state = iota
	stZeroRun
	stCountUp
	stSentinel
)

// Classify scans a counter sequence and annotates every anomalous run
// exactly once. Normal transitions (delta 0 or 1) produce nothing.
//
// A zero run is entered when a sample drops to 0 from a positive value.
// It ends at the first sample exceeding the pre-anomaly value; whether it
// is Type I or Type II depends on the interior: a 0→1 count-up step marks
// the nested-reset shape, and Type II takes precedence over Type I.
// Classification is batch: the whole run is observed before labeling.
func Classify(seq []CounterSample) []Discontinuity {
	var (
		out      []Discontinuity
		st       = stNormal
		runStart int
		preValue int64
	)

	zeroKind := func() Kind {
		if st == stCountUp {
			return TypeII
		}
		return TypeI
	}

	for i := 0; i < len(seq); i++ {
		v := seq[i].Value

		switch st {
		case stNormal:
			switch {
			case v == Sentinel:
				st, runStart = stSentinel, i
			case i > 0 && v == 0 && seq[i-1].Value > 0:
				st, runStart, preValue = stZeroRun, i, seq[i-1].Value
			case i > 0 && seq[i-1].Value >= 0 && v > seq[i-1].Value+1:
				out = append(out, Discontinuity{Kind: TypeIII, StartIndex: i, EndIndex: i})
			}

		case stSentinel:
			if v != Sentinel {
				out = append(out, Discontinuity{Kind: TypeIV, StartIndex: runStart, EndIndex: i - 1})
				st = stNormal
			}

		case stZeroRun, stCountUp:
			switch {
			case v == Sentinel:
				out = append(out, Discontinuity{Kind: zeroKind(), StartIndex: runStart, EndIndex: i - 1})
				st, runStart = stSentinel, i
			case v > preValue:
				// resume past the pre-anomaly value ends the run; the jump
				// itself is explained by the run, not a separate skip
				out = append(out, Discontinuity{Kind: zeroKind(), StartIndex: runStart, EndIndex: i - 1})
				st = stNormal
			case st == stZeroRun && v == 1 && seq[i-1].Value == 0:
				st = stCountUp
			}
		}
	}

	// flush an open run at end of sequence
	switch st {
	case stSentinel:
		out = append(out, Discontinuity{Kind: TypeIV, StartIndex: runStart, EndIndex: len(seq) - 1})
	case stZeroRun, stCountUp:
		out = append(out, Discontinuity{Kind: zeroKind(), StartIndex: runStart, EndIndex: len(seq) - 1})
	}
	return out
}
