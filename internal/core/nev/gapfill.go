package nev

// GapReport marks a serial gap the filler refused to bridge
type GapReport struct {
	// Index of the sample immediately before the gap, in the input sequence
	Index      int
	FromSerial uint64
	ToSerial   uint64
}

// FillGaps inserts synthetic entries where exactly one group was dropped
// between adjacent samples (serial delta of 2). The synthetic sample takes
// the midpoint timestamp. Anything else (delta 0, regression, a wider jump)
// is left alone and reported; dropped events leave no signal to reconstruct
// from, so multi-group losses are never guessed.
func FillGaps(seq []ReconstructedSerial, clock Clock) ([]ReconstructedSerial, []GapReport) {
	if len(seq) == 0 {
		return nil, nil
	}

	out := make([]ReconstructedSerial, 0, len(seq))
	var gaps []GapReport

	out = append(out, seq[0])
	for i := 1; i < len(seq); i++ {
		prev, cur := seq[i-1], seq[i]
		switch {
		case cur.Serial == prev.Serial+2:
			ts := prev.Timestamp + (cur.Timestamp-prev.Timestamp)/2
			out = append(out, ReconstructedSerial{
				Timestamp: ts,
				Serial:    prev.Serial + 1,
				WallClock: clock.At(ts),
				Synthetic: true,
			})
		case cur.Serial <= prev.Serial || cur.Serial > prev.Serial+2:
			gaps = append(gaps, GapReport{
				Index:      i - 1,
				FromSerial: prev.Serial,
				ToSerial:   cur.Serial,
			})
		}
		out = append(out, cur)
	}
	return out, gaps
}
