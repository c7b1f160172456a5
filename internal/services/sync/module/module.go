// Package module provides the sync module implementation
package module

import (
	"github.com/BCM-Neurosurgery/video-sync/internal/adapters/encoder"
	"github.com/BCM-Neurosurgery/video-sync/internal/modkit"
	"github.com/BCM-Neurosurgery/video-sync/internal/modkit/repokit"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/domain"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/repo"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/service"
)

// Ports defines the sync module ports
type Ports struct {
	Runner domain.RunnerPort
	Reader domain.ReaderPort
}

// Module implements the sync module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the sync module. It wires the postgres binder, the
// clickhouse sink and the ffmpeg encoder into the service using config
// from deps.Cfg.
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	binder := repo.NewPG()
	sink := repo.NewSink(deps.CH)

	var enc encoder.Encoder
	if opts.OutDir != "" {
		enc = encoder.NewFFmpeg(opts.FFmpegBin, logger.Named("ffmpeg"))
	}

	svc := service.New(
		repokit.TxRunner(deps.PG), binder, sink, enc,
		service.Config{
			Workers:          opts.Workers,
			TimestampFirst:   opts.TimestampFirst,
			FillSkips:        opts.FillSkips,
			AmplitudeChannel: opts.AmplitudeChannel,
			OutDir:           opts.OutDir,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{
		Runner: svc,
		Reader: repokit.MustBind(binder, deps.PG),
	}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "sync" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
