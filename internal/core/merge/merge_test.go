package merge

import (
	"testing"

	"github.com/BCM-Neurosurgery/video-sync/internal/core/nev"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
)

func eventSeq(first uint64, n int, tsStep uint64) []nev.ReconstructedSerial {
	out := make([]nev.ReconstructedSerial, n)
	for i := range out {
		out[i] = nev.ReconstructedSerial{
			Timestamp: uint64(i) * tsStep,
			Serial:    first + uint64(i),
		}
	}
	return out
}

func frameSeq(first int64, n int) []CameraFrame {
	out := make([]CameraFrame, n)
	for i := range out {
		out[i] = CameraFrame{Serial: first + int64(i), FrameID: int64(i)}
	}
	return out
}

func TestSynchronizeInnerJoin(t *testing.T) {
	t.Parallel()

	events := eventSeq(100, 10, 500) // serials 100..109
	frames := frameSeq(105, 10)      // serials 105..114

	recs, err := Synchronize(events, frames, nil)
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("rows: got %d want 5", len(recs))
	}
	for i, r := range recs {
		if r.Serial != uint64(105+i) {
			t.Fatalf("row %d: serial %d, want ascending from 105", i, r.Serial)
		}
		if r.Amplitude != nil {
			t.Fatalf("row %d: amplitude without sample stream", i)
		}
	}
	if recs[0].FrameID != 0 || recs[4].FrameID != 4 {
		t.Fatalf("frame ids: %+v", recs)
	}
}

func TestSynchronizeNoOverlap(t *testing.T) {
	t.Parallel()

	_, err := Synchronize(eventSeq(100, 5, 500), frameSeq(500, 5), nil)
	if err == nil {
		t.Fatalf("expected no-overlap error")
	}
	if !perr.IsCode(err, perr.ErrorCodeNoOverlap) {
		t.Fatalf("expected no-overlap code, got %v", err)
	}
}

func TestSynchronizeDuplicateSerialFatal(t *testing.T) {
	t.Parallel()

	frames := frameSeq(100, 5)
	frames = append(frames, CameraFrame{Serial: 102, FrameID: 99})

	_, err := Synchronize(eventSeq(100, 5, 500), frames, nil)
	if err == nil {
		t.Fatalf("expected invariant error")
	}
	if !perr.IsCode(err, perr.ErrorCodeInvariant) {
		t.Fatalf("expected invariant code, got %v", err)
	}
}

func TestSynchronizeSentinelFramesIgnored(t *testing.T) {
	t.Parallel()

	frames := []CameraFrame{
		{Serial: 100, FrameID: 0},
		{Serial: -1, FrameID: 1},
		{Serial: 102, FrameID: 2},
	}
	recs, err := Synchronize(eventSeq(100, 3, 500), frames, nil)
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("rows: got %d want 2", len(recs))
	}
}

func TestNearestAmplitude(t *testing.T) {
	t.Parallel()

	samples := []AmplitudeSample{
		{Timestamp: 0, Amplitude: 1},
		{Timestamp: 100, Amplitude: 2},
		{Timestamp: 200, Amplitude: 3},
	}

	cases := []struct {
		ts   uint64
		want int16
	}{
		{0, 1},     // exact
		{100, 2},   // exact
		{149, 2},   // nearest below
		{151, 3},   // nearest above
		{1000, 3},  // past the end clamps
	}
	for _, tc := range cases {
		got := nearestAmplitude(samples, tc.ts)
		if got == nil || *got != tc.want {
			t.Fatalf("ts %d: got %v want %d", tc.ts, got, tc.want)
		}
	}
	if nearestAmplitude(nil, 5) != nil {
		t.Fatalf("empty stream must yield nil")
	}
}

func TestSynchronizeAttachesAmplitude(t *testing.T) {
	t.Parallel()

	events := eventSeq(100, 3, 100) // timestamps 0, 100, 200
	samples := []AmplitudeSample{
		{Timestamp: 0, Amplitude: 7},
		{Timestamp: 90, Amplitude: 8},
		{Timestamp: 210, Amplitude: 9},
	}
	recs, err := Synchronize(events, frameSeq(100, 3), samples)
	if err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	want := []int16{7, 8, 9}
	for i, r := range recs {
		if r.Amplitude == nil || *r.Amplitude != want[i] {
			t.Fatalf("row %d: amplitude %v want %d", i, r.Amplitude, want[i])
		}
	}
}
