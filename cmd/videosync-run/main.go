// videosync-run executes the synchronization pipeline for one recording
// session against one camera directory and records the run manifest.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/BCM-Neurosurgery/video-sync/internal/modkit"
	"github.com/BCM-Neurosurgery/video-sync/internal/modkit/repokit"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/config"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/store"

	syncmod "github.com/BCM-Neurosurgery/video-sync/internal/services/sync/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	var (
		fSession = flag.String("session", "", "acquisition session directory (NEV/NSx files)")
		fCameras = flag.String("cameras", "", "camera directory (MP4 chunks and JSON sidecars)")
		fWorkers = flag.Int("workers", 0, "parallel segments; 0 uses PIPELINE_WORKERS")
		fChannel = flag.String("channel", "", "NS5 channel label for the amplitude join")
		fOut     = flag.String("out", "", "export directory for per-camera video/audio")
		fFill    = flag.Bool("fill-skips", false, "densely relabel camera counter skips")
		fTSFirst = flag.Bool("ts-first", false, "label serials with the first fragment timestamp")
	)
	flag.Parse()

	if *fSession == "" || *fCameras == "" {
		l.Panic().Msg("must provide -session and -cameras")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "videosync",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    true,
			URL:        chCfg.MustString("DBURL"),
			ClientName: "videosync",
			ClientTag:  "run",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(ctx, st)

	// surface flag overrides to module options
	if *fWorkers > 0 {
		mustSetEnv("PIPELINE_WORKERS", strconv.Itoa(*fWorkers))
	}
	mustSetEnv("PIPELINE_AMPLITUDE_CHANNEL", *fChannel)
	mustSetEnv("PIPELINE_OUT_DIR", *fOut)
	if *fFill {
		mustSetEnv("PIPELINE_FILL_SKIPS", "1")
	}
	if *fTSFirst {
		mustSetEnv("PIPELINE_TIMESTAMP_FIRST", "1")
	}

	deps := modkit.Deps{
		Cfg: root,
		Log: *l,
		PG:  st.PG,
		CH:  st.CH,
	}

	ports := syncmod.New(deps).Ports().(syncmod.Ports)
	run, err := ports.Runner.RunSession(ctx, *fSession, *fCameras)
	if err != nil {
		l.Error().Err(err).Str("run_id", run.ID.String()).Msg("run failed")
		os.Exit(1)
	}
	l.Info().
		Str("run_id", run.ID.String()).
		Int("segments", run.Segments).
		Int("synced", run.Synced).
		Int("skipped", run.Skipped).
		Int("failed", run.Failed).
		Msg("done")
}
