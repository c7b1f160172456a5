package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BCM-Neurosurgery/video-sync/internal/adapters/encoder"
	"github.com/BCM-Neurosurgery/video-sync/internal/core/merge"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
)

// segmentExport is what a synced segment contributes to the exported
// artifacts: the chunk video, the matched frame range and the amplitude
// slice for its window
type segmentExport struct {
	stamp   string
	video   string
	clip    encoder.ClipRange
	samples []merge.AmplitudeSample
}

// export cuts each synced segment to its matched frames, joins the cuts
// per camera in stamp order and renders the camera's amplitude track
func (s *Service) export(ctx context.Context, in *runInputs, byCamera map[string][]segmentExport) error {
	log := logger.C(ctx)

	for camera, segs := range byCamera {
		if len(segs) == 0 {
			continue
		}
		sort.Slice(segs, func(i, j int) bool { return segs[i].stamp < segs[j].stamp })

		camDir := filepath.Join(s.Cfg.OutDir, camera)
		if err := os.MkdirAll(camDir, 0o755); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "create export dir %s", camDir)
		}

		parts := make([]string, 0, len(segs))
		var audio []int16
		for _, seg := range segs {
			part := filepath.Join(camDir, fmt.Sprintf("%s.mp4", seg.stamp))
			if err := s.Enc.Subclip(ctx, seg.video, part, seg.clip); err != nil {
				return err
			}
			parts = append(parts, part)
			for _, p := range seg.samples {
				audio = append(audio, p.Amplitude)
			}
		}

		joined := filepath.Join(s.Cfg.OutDir, camera+".mp4")
		if err := s.Enc.Concat(ctx, parts, joined); err != nil {
			return err
		}

		if in.nsx != nil && len(audio) > 0 {
			rate := int(in.nsx.TimeResolution) / int(in.nsx.Period)
			wav := filepath.Join(s.Cfg.OutDir, camera+".wav")
			if err := s.Enc.WriteWAV(wav, rate, audio); err != nil {
				return err
			}
		}
		log.Info().Str("camera", camera).Int("parts", len(parts)).Msg("camera export complete")
	}
	return nil
}
