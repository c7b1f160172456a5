package module

import (
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/config"
)

// Options holds configuration options for the sync service
type Options struct {
	Workers          int
	TimestampFirst   bool
	FillSkips        bool
	AmplitudeChannel string
	OutDir           string
	FFmpegBin        string
}

// FromConfig reads the sync options from config with PIPELINE_ prefix
func FromConfig(cfg config.Conf) Options {
	p := cfg.Prefix("PIPELINE_")
	return Options{
		Workers:          p.MayInt("WORKERS", 4),
		TimestampFirst:   p.MayBool("TIMESTAMP_FIRST", false),
		FillSkips:        p.MayBool("FILL_SKIPS", false),
		AmplitudeChannel: p.MayString("AMPLITUDE_CHANNEL", ""),
		OutDir:           p.MayString("OUT_DIR", ""),
		FFmpegBin:        p.MayString("FFMPEG_BIN", "ffmpeg"),
	}
}
