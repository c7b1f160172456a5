// Package discovery locates the acquisition and camera files for one
// recording session and enforces the session layout integrity rules
// before the pipeline touches any bytes.
package discovery

import (
	"path/filepath"
	"sort"
	"strings"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
)

// AcquisitionSet is the fixed complement of acquisition files a session
// must carry: the NSP-1 processor records events plus both continuous
// rates, NSP-2 records events only.
type AcquisitionSet struct {
	NSP1NEV string
	NSP1NS3 string
	NSP1NS5 string
	NSP2NEV string
}

// Chunk is one recorded video chunk: a metadata sidecar plus one MP4 per
// camera, all sharing a stamp token. Videos is keyed by camera serial.
type Chunk struct {
	Stamp  string
	JSON   string
	Videos map[string]string
}

// FindAcquisition globs dir for the session's acquisition files. Each slot
// must match exactly one file; zero or several is a broken session.
func FindAcquisition(dir string) (AcquisitionSet, error) {
	var set AcquisitionSet
	slots := []struct {
		pattern string
		dst     *string
	}{
		{"*NSP-1*.nev", &set.NSP1NEV},
		{"*NSP-1*.ns3", &set.NSP1NS3},
		{"*NSP-1*.ns5", &set.NSP1NS5},
		{"*NSP-2*.nev", &set.NSP2NEV},
	}
	for _, s := range slots {
		matches, err := filepath.Glob(filepath.Join(dir, s.pattern))
		if err != nil {
			return AcquisitionSet{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "glob %s", s.pattern)
		}
		switch len(matches) {
		case 1:
			*s.dst = matches[0]
		case 0:
			return AcquisitionSet{}, perr.NotFoundf("%s: no file matches %s", dir, s.pattern)
		default:
			return AcquisitionSet{}, perr.InvalidArgf("%s: %d files match %s, want exactly one",
				dir, len(matches), s.pattern)
		}
	}
	return set, nil
}

// FindChunks pairs every metadata sidecar in dir with its per-camera MP4s.
// Layout: <stamp>.json next to <stamp>_<cameraSerial>.mp4. Chunks are
// returned in stamp order. A sidecar without any video is a broken chunk.
func FindChunks(dir string) ([]Chunk, error) {
	sidecars, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "glob sidecars")
	}
	if len(sidecars) == 0 {
		return nil, perr.NotFoundf("%s: no metadata sidecars", dir)
	}

	videos, err := filepath.Glob(filepath.Join(dir, "*.mp4"))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "glob videos")
	}

	byStamp := make(map[string]map[string]string)
	for _, v := range videos {
		base := strings.TrimSuffix(filepath.Base(v), ".mp4")
		stamp, camera, ok := strings.Cut(base, "_")
		if !ok || stamp == "" || camera == "" {
			continue // not a chunk video
		}
		if byStamp[stamp] == nil {
			byStamp[stamp] = make(map[string]string)
		}
		byStamp[stamp][camera] = v
	}

	chunks := make([]Chunk, 0, len(sidecars))
	for _, sc := range sidecars {
		stamp := strings.TrimSuffix(filepath.Base(sc), ".json")
		vids := byStamp[stamp]
		if len(vids) == 0 {
			return nil, perr.InvalidArgf("%s: sidecar %s has no videos", dir, filepath.Base(sc))
		}
		chunks = append(chunks, Chunk{Stamp: stamp, JSON: sc, Videos: vids})
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Stamp < chunks[j].Stamp })
	return chunks, nil
}

// Video returns the chunk's MP4 for a camera serial
func (c Chunk) Video(camera string) (string, bool) {
	v, ok := c.Videos[camera]
	return v, ok
}
