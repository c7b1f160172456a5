package service

import (
	"context"

	"github.com/BCM-Neurosurgery/video-sync/internal/adapters/camjson"
	"github.com/BCM-Neurosurgery/video-sync/internal/adapters/encoder"
	"github.com/BCM-Neurosurgery/video-sync/internal/core/anomaly"
	"github.com/BCM-Neurosurgery/video-sync/internal/core/counterseq"
	"github.com/BCM-Neurosurgery/video-sync/internal/core/merge"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/discovery"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/domain"
)

// segmentResult carries everything one (chunk, camera) pair produced
type segmentResult struct {
	seg        domain.Segment
	records    []domain.SyncedRecord
	unresolved []domain.Unresolved
	clip       encoder.ClipRange
	samples    []merge.AmplitudeSample
}

// processSegment runs one camera track of one chunk through correction and
// synchronization. Invariant breaks fail the segment, not the run.
func (s *Service) processSegment(
	ctx context.Context,
	in *runInputs,
	chunk discovery.Chunk,
	camera string,
	track *camjson.Track,
) segmentResult {
	ctx = logger.WithRun(ctx, in.run.ID.String(), chunk.Stamp, camera)
	log := logger.C(ctx)

	res := segmentResult{seg: domain.Segment{
		RunID:  in.run.ID,
		Stamp:  chunk.Stamp,
		Camera: camera,
	}}

	frames, unresolved := s.correctTrack(in, chunk, camera, track)
	res.unresolved = unresolved

	samples, err := s.sampleWindow(in, frames)
	if err != nil {
		res.seg.Status = domain.SegmentStatusFailed
		res.seg.Detail = err.Error()
		log.Error().Err(err).Msg("sample window")
		return res
	}
	res.samples = samples

	recs, err := merge.Synchronize(in.events, frames, samples)
	switch {
	case perr.IsCode(err, perr.ErrorCodeNoOverlap):
		res.seg.Status = domain.SegmentStatusSkipped
		res.seg.Detail = perr.Root(err).Error()
		log.Info().Msg("segment outside event window, skipped")
		return res
	case err != nil:
		res.seg.Status = domain.SegmentStatusFailed
		res.seg.Detail = err.Error()
		log.Error().Err(err).Msg("segment failed")
		return res
	}

	res.records = make([]domain.SyncedRecord, 0, len(recs))
	for _, r := range recs {
		res.records = append(res.records, domain.SyncedRecord{
			RunID:          in.run.ID,
			Stamp:          chunk.Stamp,
			Camera:         camera,
			Serial:         r.Serial,
			EventTimestamp: r.EventTimestamp,
			WallClock:      r.WallClock,
			FrameID:        r.FrameID,
			Synthetic:      r.Synthetic,
			Amplitude:      r.Amplitude,
		})
	}
	if len(recs) > 0 {
		res.clip = encoder.ClipRange{
			StartFrame: recs[0].FrameID,
			EndFrame:   recs[len(recs)-1].FrameID,
		}
	}

	res.seg.Status = domain.SegmentStatusSynced
	res.seg.Rows = len(recs)
	log.Info().Int("rows", len(recs)).Msg("segment synced")
	return res
}

// correctTrack classifies and corrects the camera's counter sequence and
// pairs it with frame ids
func (s *Service) correctTrack(
	in *runInputs,
	chunk discovery.Chunk,
	camera string,
	track *camjson.Track,
) ([]merge.CameraFrame, []domain.Unresolved) {
	seq := anomaly.Samples(track.ChunkSerials)
	discs := anomaly.Classify(seq)

	corrected, unres, err := anomaly.Correct(seq, discs, anomaly.CorrectOptions{FillSkips: s.Cfg.FillSkips})
	if err != nil {
		// length-change invariant; keep the uncorrected sequence and let the
		// join surface any fallout
		corrected = seq
		unres = append(unres, anomaly.Unresolved{Reason: err.Error()})
	}

	frames := make([]merge.CameraFrame, len(corrected))
	for i, c := range corrected {
		frames[i] = merge.CameraFrame{Serial: c.Value, FrameID: track.FrameIDs[i]}
	}

	items := make([]domain.Unresolved, 0, len(unres))
	for _, u := range unres {
		items = append(items, domain.Unresolved{
			RunID:      in.run.ID,
			Stamp:      chunk.Stamp,
			Camera:     camera,
			Stream:     "camera",
			Kind:       u.Disc.Kind.String(),
			StartIndex: u.Disc.StartIndex,
			EndIndex:   u.Disc.EndIndex,
			Reason:     u.Reason,
		})
	}
	return frames, items
}

// sampleWindow slices the continuous channel to the event ticks the
// camera segment can possibly match, so high-rate channels are never
// materialized beyond the overlap
func (s *Service) sampleWindow(in *runInputs, frames []merge.CameraFrame) ([]merge.AmplitudeSample, error) {
	if in.nsx == nil {
		return nil, nil
	}

	camValues := make([]int64, len(frames))
	for i, f := range frames {
		camValues[i] = f.Serial
	}
	camRange, ok := counterseq.RangeOf(camValues)
	if !ok {
		return nil, nil // merge will report the no-overlap
	}

	var (
		minTick, maxTick uint64
		found            bool
	)
	for _, ev := range in.events {
		if !camRange.Contains(int64(ev.Serial)) {
			continue
		}
		if !found || ev.Timestamp < minTick {
			minTick = ev.Timestamp
		}
		if !found || ev.Timestamp > maxTick {
			maxTick = ev.Timestamp
		}
		found = true
	}
	if !found {
		return nil, nil
	}

	points, err := in.nsx.Samples(in.chIdx, minTick, maxTick)
	if err != nil {
		return nil, err
	}
	samples := make([]merge.AmplitudeSample, len(points))
	for i, p := range points {
		samples[i] = merge.AmplitudeSample{Timestamp: p.Timestamp, Amplitude: p.Amplitude}
	}
	return samples, nil
}
