// Package camjson loads the per-chunk camera metadata sidecars: one JSON
// document per recorded video chunk, carrying the per-frame counter and
// frame ids for every camera that participated in the chunk.
package camjson

import (
	"encoding/json"
	"os"

	"github.com/BCM-Neurosurgery/video-sync/internal/core/counterseq"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/bind"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
)

// Track is one camera's demultiplexed per-frame arrays. All arrays are
// frame-parallel: entry i of each describes the same logical frame.
type Track struct {
	// ChunkSerials is the counter the camera logged per frame; -1 marks a
	// failed read
	ChunkSerials []int64 `json:"chunk_serial_data" validate:"required,min=1"`

	// FrameIDs index into the chunk's video file
	FrameIDs []int64 `json:"frame_id" validate:"required,min=1"`

	// Timestamps are camera-local capture times, seconds since the chunk
	// epoch
	Timestamps []float64 `json:"timestamps" validate:"required,min=1"`

	// RealTimes are host wall-clock captures, unix seconds; optional on
	// older recordings
	RealTimes []float64 `json:"real_times,omitempty"`
}

// Document is one metadata sidecar
type Document struct {
	CameraSerials []string          `json:"camera_serials" validate:"required,min=1,dive,required"`
	Cameras       map[string]*Track `json:"cameras" validate:"required,min=1,dive,required"`
}

// Load reads and validates one sidecar document
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read camera json %s", path)
	}
	return Decode(raw, path)
}

// Decode parses and validates sidecar bytes
func Decode(raw []byte, path string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "parse camera json %s", path)
	}
	if err := bind.Struct(&doc); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "camera json %s", path)
	}

	for _, serial := range doc.CameraSerials {
		track, ok := doc.Cameras[serial]
		if !ok {
			return nil, perr.Newf(perr.ErrorCodeValidation,
				"camera json %s: listed camera %s has no track", path, serial)
		}
		if err := track.check(serial); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "camera json %s", path)
		}
	}
	return &doc, nil
}

// check enforces frame-parallel array lengths
func (t *Track) check(serial string) error {
	n := len(t.ChunkSerials)
	if len(t.FrameIDs) != n || len(t.Timestamps) != n {
		return perr.Newf(perr.ErrorCodeValidation,
			"camera %s: array lengths diverge (serials=%d frame_ids=%d timestamps=%d)",
			serial, n, len(t.FrameIDs), len(t.Timestamps))
	}
	if len(t.RealTimes) != 0 && len(t.RealTimes) != n {
		return perr.Newf(perr.ErrorCodeValidation,
			"camera %s: real_times length %d diverges from %d", serial, len(t.RealTimes), n)
	}
	return nil
}

// Track returns the named camera's track
func (d *Document) Track(serial string) (*Track, bool) {
	t, ok := d.Cameras[serial]
	return t, ok
}

// SerialRange is the counter interval the track covers, ignoring failed
// reads. ok is false when every read failed.
func (t *Track) SerialRange() (counterseq.Range, bool) {
	return counterseq.RangeOf(t.ChunkSerials)
}

// FrameCount is the number of logical frames in the track
func (t *Track) FrameCount() int { return len(t.ChunkSerials) }
