// Package merge joins the corrected event-serial stream against a camera's
// corrected frame counters and the continuous-sample stream. The serial
// counter is the join key; the overlap window decides which camera
// segments participate at all.
package merge

import (
	"sort"
	"time"

	"github.com/BCM-Neurosurgery/video-sync/internal/core/counterseq"
	"github.com/BCM-Neurosurgery/video-sync/internal/core/nev"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
)

// CameraFrame is one corrected camera sample: the counter it logged and
// the frame id it maps to in the chunk's video file
type CameraFrame struct {
	Serial  int64
	FrameID int64
}

// AmplitudeSample is one continuous sample in device ticks
type AmplitudeSample struct {
	Timestamp uint64
	Amplitude int16
}

// Record is the terminal synchronized artifact: one row per serial value
// in the overlap window. Amplitude is nil when no continuous stream was
// supplied.
type Record struct {
	EventTimestamp uint64
	WallClock      time.Time
	Serial         uint64
	FrameID        int64
	Synthetic      bool
	Amplitude      *int16
}

// Synchronize inner-joins events and frames on exact serial equality and
// left-joins amplitude by nearest-or-exact timestamp. Within the overlap
// window each serial may appear at most once per stream; a duplicate is a
// broken invariant, fatal for the segment. A camera segment with no
// overlap at all yields a no-overlap error the caller is expected to
// treat as a skip. Samples must be in timestamp order.
func Synchronize(events []nev.ReconstructedSerial, frames []CameraFrame, samples []AmplitudeSample) ([]Record, error) {
	evRange, ok := eventRange(events)
	if !ok {
		return nil, perr.NoOverlapf("event stream is empty")
	}
	camValues := make([]int64, len(frames))
	for i, f := range frames {
		camValues[i] = f.Serial
	}
	camRange, ok := counterseq.RangeOf(camValues)
	if !ok {
		return nil, perr.NoOverlapf("camera segment has no valid serials")
	}

	window, ok := evRange.Intersect(camRange)
	if !ok {
		return nil, perr.NoOverlapf("camera serials [%d, %d] outside event range [%d, %d]",
			camRange.Min, camRange.Max, evRange.Min, evRange.Max)
	}

	byCam := make(map[int64]CameraFrame)
	for _, f := range frames {
		if f.Serial < 0 || !window.Contains(f.Serial) {
			continue
		}
		if _, dup := byCam[f.Serial]; dup {
			return nil, perr.Invariantf("camera serial %d appears twice in overlap window", f.Serial)
		}
		byCam[f.Serial] = f
	}

	var out []Record
	seen := make(map[uint64]struct{})
	for _, ev := range events {
		s := int64(ev.Serial)
		if !window.Contains(s) {
			continue
		}
		if _, dup := seen[ev.Serial]; dup {
			return nil, perr.Invariantf("event serial %d appears twice in overlap window", ev.Serial)
		}
		seen[ev.Serial] = struct{}{}

		frame, ok := byCam[s]
		if !ok {
			continue
		}
		out = append(out, Record{
			EventTimestamp: ev.Timestamp,
			WallClock:      ev.WallClock,
			Serial:         ev.Serial,
			FrameID:        frame.FrameID,
			Synthetic:      ev.Synthetic,
			Amplitude:      nearestAmplitude(samples, ev.Timestamp),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })
	return out, nil
}

func eventRange(events []nev.ReconstructedSerial) (counterseq.Range, bool) {
	values := make([]int64, len(events))
	for i, e := range events {
		values[i] = int64(e.Serial)
	}
	return counterseq.RangeOf(values)
}

// nearestAmplitude picks the sample whose timestamp is closest to ts,
// preferring exact matches. Samples are timestamp-ordered.
func nearestAmplitude(samples []AmplitudeSample, ts uint64) *int16 {
	if len(samples) == 0 {
		return nil
	}
	i := sort.Search(len(samples), func(k int) bool { return samples[k].Timestamp >= ts })
	if i == len(samples) {
		i = len(samples) - 1
	} else if i > 0 {
		if ts-samples[i-1].Timestamp < samples[i].Timestamp-ts {
			i--
		}
	}
	a := samples[i].Amplitude
	return &a
}
