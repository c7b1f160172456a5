package anomaly

import "testing"

func correctValues(t *testing.T, values []int64, opts CorrectOptions) ([]int64, []Unresolved) {
	t.Helper()

	seq := Samples(values)
	out, unresolved, err := Correct(seq, Classify(seq), opts)
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if len(out) != len(values) {
		t.Fatalf("length changed: got %d want %d", len(out), len(values))
	}
	return Values(out), unresolved
}

func TestCorrectTypeI(t *testing.T) {
	t.Parallel()

	got, unresolved := correctValues(t, []int64{101, 102, 0, 104, 105}, CorrectOptions{})
	if len(unresolved) != 0 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	if got[2] != 103 {
		t.Fatalf("zero sample: got %d want 103", got[2])
	}
}

func TestCorrectTypeIIMonotonic(t *testing.T) {
	t.Parallel()

	got, unresolved := correctValues(t, []int64{5, 0, 1, 2, 3, 0, 8}, CorrectOptions{})
	if len(unresolved) != 0 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("not monotonic at %d: %v", i, got)
		}
	}
	if got[0] != 5 || got[6] != 8 {
		t.Fatalf("anchors changed: %v", got)
	}
}

func TestCorrectTypeIITrailing(t *testing.T) {
	t.Parallel()

	got, unresolved := correctValues(t, []int64{5, 6, 7, 8, 0, 1, 2, 3, 4}, CorrectOptions{})
	if len(unresolved) != 0 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	want := []int64{5, 6, 7, 8, 9, 10, 11, 12, 13}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestCorrectTrailingZeroRunUnresolved(t *testing.T) {
	t.Parallel()

	// a plain trailing zero run carries no count, so it stays untouched
	got, unresolved := correctValues(t, []int64{5, 6, 0, 0}, CorrectOptions{})
	if len(unresolved) != 1 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	if got[2] != 0 || got[3] != 0 {
		t.Fatalf("trailing zeros must stay untouched: %v", got)
	}
}

func TestCorrectTypeIVSentinel(t *testing.T) {
	t.Parallel()

	got, unresolved := correctValues(t, []int64{5, -1, 6}, CorrectOptions{})
	if len(unresolved) != 0 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	if got[1] == Sentinel {
		t.Fatalf("sentinel not replaced: %v", got)
	}
	if got[1] < 5 || got[1] > 6 {
		t.Fatalf("interpolated value out of range: %v", got)
	}
}

func TestCorrectLeadingSentinelUnresolved(t *testing.T) {
	t.Parallel()

	got, unresolved := correctValues(t, []int64{-1, -1, 3, 4}, CorrectOptions{})
	if len(unresolved) != 1 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	if got[0] != Sentinel || got[1] != Sentinel {
		t.Fatalf("leading artifact must stay untouched: %v", got)
	}
}

func TestCorrectTypeIIILeftAloneByDefault(t *testing.T) {
	t.Parallel()

	got, unresolved := correctValues(t, []int64{5, 7, 8}, CorrectOptions{})
	if len(unresolved) != 0 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	if got[1] != 7 {
		t.Fatalf("skip value changed without fill option: %v", got)
	}
}

func TestCorrectTypeIIIFillSkips(t *testing.T) {
	t.Parallel()

	got, unresolved := correctValues(t, []int64{5, 7, 7, 8}, CorrectOptions{FillSkips: true})
	if len(unresolved) != 0 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	want := []int64{5, 6, 7, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestCorrectTypeIIIFillSkipsWiderThanPlateau(t *testing.T) {
	t.Parallel()

	got, unresolved := correctValues(t, []int64{5, 9, 10}, CorrectOptions{FillSkips: true})
	if len(unresolved) != 1 {
		t.Fatalf("unresolved: %+v", unresolved)
	}
	if got[1] != 9 {
		t.Fatalf("unfillable skip must stay untouched: %v", got)
	}
}

func TestCorrectPreservesLength(t *testing.T) {
	t.Parallel()

	inputs := [][]int64{
		{},
		{1},
		{5, 5, 0, 0, 7, 7},
		{5, 0, 1, 2, 3, 0, 8},
		{-1, -1, -1},
		{0, 1, 2, 0, 0, 5, -1, 6, 9},
	}
	for _, values := range inputs {
		got, _ := correctValues(t, values, CorrectOptions{FillSkips: true})
		if len(got) != len(values) {
			t.Fatalf("length changed for %v", values)
		}
	}
}
