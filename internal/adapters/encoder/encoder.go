// Package encoder is the video/audio encoding collaborator. The pipeline
// hands it frame-id ranges and amplitude series; everything codec-shaped
// is delegated to an external ffmpeg binary.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
)

// ClipRange is an inclusive frame-id interval within a source chunk
type ClipRange struct {
	StartFrame int64
	EndFrame   int64
}

// Encoder cuts and joins video and renders the synchronized audio track
type Encoder interface {
	// Subclip extracts the frame range from src into dst
	Subclip(ctx context.Context, src, dst string, r ClipRange) error

	// Concat joins parts in order into dst without re-encoding
	Concat(ctx context.Context, parts []string, dst string) error

	// WriteWAV renders 16-bit mono PCM samples at the given rate
	WriteWAV(path string, sampleRate int, samples []int16) error
}

// FFmpeg shells out to an ffmpeg binary
type FFmpeg struct {
	Bin string
	Log *logger.Logger
}

// NewFFmpeg returns an Encoder backed by the given binary ("ffmpeg" if empty)
func NewFFmpeg(bin string, log *logger.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{Bin: bin, Log: log}
}

func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, f.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.Log.Debug().Str("bin", f.Bin).Strs("args", args).Msg("ffmpeg invoke")
	if err := cmd.Run(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable,
			"ffmpeg %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Subclip selects frames [StartFrame, EndFrame] and rebases their
// presentation timestamps
func (f *FFmpeg) Subclip(ctx context.Context, src, dst string, r ClipRange) error {
	if r.EndFrame < r.StartFrame {
		return perr.InvalidArgf("clip range [%d, %d] inverted", r.StartFrame, r.EndFrame)
	}
	filter := fmt.Sprintf(`select=between(n\,%d\,%d),setpts=N/FRAME_RATE/TB`, r.StartFrame, r.EndFrame)
	return f.run(ctx, "-y", "-i", src, "-vf", filter, "-an", dst)
}

// Concat joins parts via the concat demuxer, stream-copying
func (f *FFmpeg) Concat(ctx context.Context, parts []string, dst string) error {
	if len(parts) == 0 {
		return perr.InvalidArgf("nothing to concat")
	}

	list, err := os.CreateTemp(filepath.Dir(dst), "concat-*.txt")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "concat list")
	}
	defer os.Remove(list.Name())

	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			list.Close()
			return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "concat part %s", p)
		}
		fmt.Fprintf(list, "file '%s'\n", abs)
	}
	if err := list.Close(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "concat list")
	}

	return f.run(ctx, "-y", "-f", "concat", "-safe", "0", "-i", list.Name(), "-c", "copy", dst)
}
