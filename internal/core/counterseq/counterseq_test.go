package counterseq

import "testing"

func TestRangeOf(t *testing.T) {
	t.Parallel()

	r, ok := RangeOf([]int64{5, -1, 3, 9, 7})
	if !ok {
		t.Fatalf("expected ok")
	}
	if r.Min != 3 || r.Max != 9 {
		t.Fatalf("got %+v", r)
	}

	if _, ok := RangeOf(nil); ok {
		t.Fatalf("empty must not have a range")
	}
	if _, ok := RangeOf([]int64{-1, -1}); ok {
		t.Fatalf("all-sentinel must not have a range")
	}
}

func TestIntersect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		a, b    Range
		want    Range
		overlap bool
	}{
		{"nested", Range{0, 100}, Range{10, 20}, Range{10, 20}, true},
		{"partial", Range{0, 15}, Range{10, 20}, Range{10, 15}, true},
		{"touching", Range{0, 10}, Range{10, 20}, Range{10, 10}, true},
		{"disjoint below", Range{0, 9}, Range{10, 20}, Range{}, false},
		{"disjoint above", Range{21, 30}, Range{10, 20}, Range{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tc.a.Intersect(tc.b)
			if ok != tc.overlap {
				t.Fatalf("overlap: got %v want %v", ok, tc.overlap)
			}
			if ok && got != tc.want {
				t.Fatalf("intersect: got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestMonotonicity(t *testing.T) {
	t.Parallel()

	if !IsMonotonic([]int64{1, 1, 2, 3}) {
		t.Fatalf("plateau should be monotonic")
	}
	if IsMonotonic([]int64{1, 2, 1}) {
		t.Fatalf("regression should not be monotonic")
	}
	if IsStrictlyIncreasing([]int64{1, 1, 2}) {
		t.Fatalf("plateau should not be strictly increasing")
	}
	if !IsStrictlyIncreasing([]int64{1, 2, 5}) {
		t.Fatalf("skips still count as strictly increasing")
	}
}
