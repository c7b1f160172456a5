package anomaly

import (
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
)

// CorrectOptions tune the corrector
type CorrectOptions struct {
	// FillSkips relabels plateau samples after a Type III skip to restore
	// step-1 counting. Off by default: skips are valid, just non-uniform.
	FillSkips bool
}

// Unresolved reports a discontinuity the corrector left uncorrected
type Unresolved struct {
	Disc   Discontinuity
	Reason string
}

// Correct rewrites a classified sequence into an analysis-ready one.
// Type I/II runs and Type IV sentinel runs are replaced by values
// interpolated between the run's valid neighbors. Runs touching the start
// of the sequence have no anchor and are reported unresolved, as are
// trailing runs, with one exception: a trailing Type II run counts up
// inside the run itself, so each sample's offset from the predecessor is
// known and the relabeling needs no successor. The output always has the
// same length as the input: corrections never claim frames were gained or
// lost.
func Correct(seq []CounterSample, discs []Discontinuity, opts CorrectOptions) ([]CounterSample, []Unresolved, error) {
	out := make([]CounterSample, len(seq))
	copy(out, seq)
	var unresolved []Unresolved

	for _, d := range discs {
		switch d.Kind {
		case TypeI, TypeII, TypeIV:
			u := interpolateRun(seq, out, d)
			if u != nil {
				unresolved = append(unresolved, *u)
			}
		case TypeIII:
			if !opts.FillSkips {
				continue
			}
			u := relabelSkip(seq, out, d)
			if u != nil {
				unresolved = append(unresolved, *u)
			}
		}
	}

	if len(out) != len(seq) {
		return nil, nil, perr.Invariantf("correction changed sample count: %d -> %d", len(seq), len(out))
	}
	return out, unresolved, nil
}

// interpolateRun overwrites [StartIndex, EndIndex] with a monotonically
// non-decreasing ramp between the neighbors just outside the run
func interpolateRun(seq, out []CounterSample, d Discontinuity) *Unresolved {
	if d.StartIndex == 0 {
		return &Unresolved{Disc: d, Reason: "run at sequence start has no valid predecessor"}
	}
	if d.EndIndex >= len(seq)-1 {
		if d.Kind == TypeII {
			// the interior count fixes every sample's offset: a reset run
			// with n samples stands for pre+1 .. pre+n, successor or not
			pre := seq[d.StartIndex-1].Value
			for j := d.StartIndex; j <= d.EndIndex; j++ {
				out[j].Value = pre + 1 + int64(j-d.StartIndex)
			}
			return nil
		}
		return &Unresolved{Disc: d, Reason: "run at sequence end has no valid successor"}
	}
	pre := seq[d.StartIndex-1].Value
	post := seq[d.EndIndex+1].Value
	if post < pre {
		return &Unresolved{Disc: d, Reason: "successor value regresses below predecessor"}
	}
	n := d.EndIndex - d.StartIndex + 1
	for j := 1; j <= n; j++ {
		out[d.StartIndex+j-1].Value = lerp(pre, post, j, n)
	}
	return nil
}

// relabelSkip densifies the plateau that follows a skip so counting becomes
// step-1 again, without inserting entries. Only as many missing values as
// the plateau has spare samples can be restored.
func relabelSkip(seq, out []CounterSample, d Discontinuity) *Unresolved {
	i := d.StartIndex
	if i == 0 {
		return &Unresolved{Disc: d, Reason: "skip at sequence start has no predecessor"}
	}
	pre := seq[i-1].Value
	postVal := seq[i].Value
	missing := postVal - pre - 1
	if missing <= 0 {
		return nil
	}

	plateau := 1
	for i+plateau < len(seq) && seq[i+plateau].Value == postVal {
		plateau++
	}
	fill := int64(plateau - 1)
	if fill > missing {
		fill = missing
	}
	for j := int64(0); j < fill; j++ {
		out[i+int(j)].Value = pre + 1 + j
	}
	if fill < missing {
		return &Unresolved{Disc: d, Reason: "skip wider than following plateau"}
	}
	return nil
}

// lerp interpolates step j of n interior samples between pre and post,
// rounding half up
func lerp(pre, post int64, j, n int) int64 {
	steps := int64(n + 1)
	return pre + ((post-pre)*int64(j)+steps/2)/steps
}
