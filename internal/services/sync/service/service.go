// Package service implements the synchronization pipeline
package service

import (
	"context"
	"sync"
	"time"

	"github.com/BCM-Neurosurgery/video-sync/internal/adapters/blackrock"
	"github.com/BCM-Neurosurgery/video-sync/internal/adapters/camjson"
	"github.com/BCM-Neurosurgery/video-sync/internal/adapters/encoder"
	"github.com/BCM-Neurosurgery/video-sync/internal/core/nev"
	"github.com/BCM-Neurosurgery/video-sync/internal/modkit/repokit"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/discovery"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config holds the pipeline options
type Config struct {
	// Workers caps concurrently processed (chunk, camera) segments; <=0 -> 4
	Workers int

	// TimestampFirst labels reconstructed serials with the first fragment's
	// timestamp instead of the last
	TimestampFirst bool

	// FillSkips enables dense relabeling of Type III skips in camera streams
	FillSkips bool

	// AmplitudeChannel is the NS5 channel label to attach; empty disables
	// the continuous-sample join
	AmplitudeChannel string

	// OutDir enables video/audio export when non-empty
	OutDir string
}

// Service runs sessions end to end and records the manifest
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.ManifestRepo]
	Sink   domain.RecordSink
	Enc    encoder.Encoder // optional, required only when Cfg.OutDir is set
	Cfg    Config
}

// New constructs the sync service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.ManifestRepo],
	sink domain.RecordSink,
	enc encoder.Encoder,
	cfg Config,
) *Service {
	if db == nil {
		panic("sync.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("sync.Service requires a non nil Repo binder")
	}
	if sink == nil {
		panic("sync.Service requires a non nil RecordSink")
	}
	if cfg.OutDir != "" && enc == nil {
		panic("sync.Service requires an Encoder when export is enabled")
	}
	return &Service{DB: db, Binder: binder, Sink: sink, Enc: enc, Cfg: cfg}
}

var _ domain.RunnerPort = (*Service)(nil)

// runInputs is the per-run shared state segments read from. Everything
// here is immutable once the run starts, so segments can fan out freely.
type runInputs struct {
	run    domain.Run
	events []nev.ReconstructedSerial
	clock  nev.Clock
	nsx    *blackrock.NSxFile // nil when amplitude is disabled
	chIdx  int
}

// RunSession synchronizes one recording session against one camera
// directory. Segment failures are recorded and do not abort the run;
// manifest write failures do.
func (s *Service) RunSession(ctx context.Context, sessionDir, cameraDir string) (domain.Run, error) {
	run := domain.Run{
		ID:         uuid.New(),
		SessionDir: sessionDir,
		CameraDir:  cameraDir,
		Status:     domain.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	ctx = logger.WithRun(ctx, run.ID.String(), "", "")
	log := logger.C(ctx)
	repo := s.Binder.Bind(s.DB)

	if err := repo.CreateRun(ctx, run); err != nil {
		return run, err
	}

	in, err := s.prepare(ctx, run)
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		if ferr := repo.FinishRun(ctx, run); ferr != nil {
			log.Error().Err(ferr).Msg("finish run after prepare failure")
		}
		return run, err
	}
	if in.nsx != nil {
		defer in.nsx.Close()
	}

	chunks, err := discovery.FindChunks(cameraDir)
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		if ferr := repo.FinishRun(ctx, run); ferr != nil {
			log.Error().Err(ferr).Msg("finish run after discovery failure")
		}
		return run, err
	}

	var (
		mu      sync.Mutex
		exports = map[string][]segmentExport{} // camera -> ordered clips
	)

	g, gctx := errgroup.WithContext(ctx)
	workers := s.Cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)

	for _, chunk := range chunks {
		doc, err := camjson.Load(chunk.JSON)
		if err != nil {
			// a broken sidecar fails every camera of the chunk, not the run
			log.Warn().Err(err).Str("stamp", chunk.Stamp).Msg("skipping unreadable sidecar")
			mu.Lock()
			run.Segments++
			run.Failed++
			mu.Unlock()
			seg := domain.Segment{
				RunID: run.ID, Stamp: chunk.Stamp, Camera: "*",
				Status: domain.SegmentStatusFailed, Detail: err.Error(),
			}
			if err := repo.AddSegment(ctx, seg); err != nil {
				run.Status = domain.RunStatusFailed
				run.Error = err.Error()
				if ferr := repo.FinishRun(ctx, run); ferr != nil {
					log.Error().Err(ferr).Msg("finish run after manifest failure")
				}
				return run, err
			}
			continue
		}

		for _, camera := range doc.CameraSerials {
			track, ok := doc.Track(camera)
			if !ok {
				continue
			}
			video, hasVideo := chunk.Video(camera)
			if !hasVideo {
				log.Debug().Str("stamp", chunk.Stamp).Str("camera", camera).
					Msg("camera listed in sidecar but absent from chunk")
				continue
			}

			chunk, camera, track, video := chunk, camera, track, video
			g.Go(func() error {
				res := s.processSegment(gctx, in, chunk, camera, track)

				mu.Lock()
				run.Segments++
				switch res.seg.Status {
				case domain.SegmentStatusSynced:
					run.Synced++
					if s.Cfg.OutDir != "" {
						exports[camera] = append(exports[camera], segmentExport{
							stamp:   chunk.Stamp,
							video:   video,
							clip:    res.clip,
							samples: res.samples,
						})
					}
				case domain.SegmentStatusSkipped:
					run.Skipped++
				default:
					run.Failed++
				}
				mu.Unlock()

				if err := repo.AddSegment(gctx, res.seg); err != nil {
					return err
				}
				if len(res.unresolved) > 0 {
					if err := repo.AddUnresolved(gctx, res.unresolved); err != nil {
						return err
					}
				}
				if len(res.records) > 0 {
					if err := s.Sink.InsertRecords(gctx, res.records); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		if ferr := repo.FinishRun(ctx, run); ferr != nil {
			log.Error().Err(ferr).Msg("finish run after segment failure")
		}
		return run, err
	}

	if s.Cfg.OutDir != "" {
		if err := s.export(ctx, in, exports); err != nil {
			run.Status = domain.RunStatusFailed
			run.Error = err.Error()
			if ferr := repo.FinishRun(ctx, run); ferr != nil {
				log.Error().Err(ferr).Msg("finish run after export failure")
			}
			return run, err
		}
	}

	run.Status = domain.RunStatusCompleted
	if err := repo.FinishRun(ctx, run); err != nil {
		return run, err
	}
	log.Info().
		Int("segments", run.Segments).
		Int("synced", run.Synced).
		Int("skipped", run.Skipped).
		Int("failed", run.Failed).
		Msg("run completed")
	return run, nil
}

// prepare decodes the acquisition side once per run: events in, serial
// stream out, plus the continuous file when amplitude is enabled
func (s *Service) prepare(ctx context.Context, run domain.Run) (*runInputs, error) {
	log := logger.C(ctx)

	acq, err := discovery.FindAcquisition(run.SessionDir)
	if err != nil {
		return nil, err
	}

	nevFile, err := blackrock.OpenNEV(acq.NSP1NEV)
	if err != nil {
		return nil, err
	}
	clock := nevFile.Clock()

	groups, stats := nev.GroupSerialFragments(nevFile.Events)
	for _, m := range stats.Malformed {
		log.Warn().
			Int("start", m.StartIndex).
			Int("end", m.EndIndex).
			Uint16("payload", m.Payload).
			Msg("discarded malformed fragment group")
	}
	log.Info().
		Int("events", stats.Events).
		Int("serial_events", stats.SerialEvents).
		Int("groups", stats.Groups).
		Int("partial_discards", stats.PartialDiscards).
		Msg("fragment grouping")

	policy := nev.TimestampLast
	if s.Cfg.TimestampFirst {
		policy = nev.TimestampFirst
	}
	serials := nev.Reconstruct(groups, policy, clock)

	filled, gaps := nev.FillGaps(serials, clock)
	if len(gaps) > 0 {
		repo := s.Binder.Bind(s.DB)
		items := make([]domain.Unresolved, 0, len(gaps))
		for _, gp := range gaps {
			items = append(items, domain.Unresolved{
				RunID:      run.ID,
				Stream:     "event",
				Kind:       "gap",
				StartIndex: gp.Index,
				EndIndex:   gp.Index + 1,
				Reason:     perr.UnfillableGapf("serial %d to %d", gp.FromSerial, gp.ToSerial).Error(),
			})
		}
		if err := repo.AddUnresolved(ctx, items); err != nil {
			return nil, err
		}
	}

	in := &runInputs{run: run, events: filled, clock: clock, chIdx: -1}

	if s.Cfg.AmplitudeChannel != "" {
		nsx, err := blackrock.OpenNSx(acq.NSP1NS5)
		if err != nil {
			return nil, err
		}
		idx, ok := nsx.ChannelIndex(s.Cfg.AmplitudeChannel)
		if !ok {
			nsx.Close()
			return nil, perr.NotFoundf("channel %q not in %s", s.Cfg.AmplitudeChannel, acq.NSP1NS5)
		}
		in.nsx, in.chIdx = nsx, idx
	}
	return in, nil
}
