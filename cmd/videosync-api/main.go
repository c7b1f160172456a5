// videosync-api serves the read-only run manifest.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/BCM-Neurosurgery/video-sync/internal/modkit"
	"github.com/BCM-Neurosurgery/video-sync/internal/modkit/repokit"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/config"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
	phttp "github.com/BCM-Neurosurgery/video-sync/internal/platform/net/http"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/net/middleware"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/store"

	"github.com/BCM-Neurosurgery/video-sync/internal/services/api"
	syncmod "github.com/BCM-Neurosurgery/video-sync/internal/services/sync/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "videosync",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    chCfg.MayBool("ENABLED", false),
			URL:        chCfg.MayString("DBURL", ""),
			ClientName: "videosync",
			ClientTag:  "api",
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

	deps := modkit.Deps{
		Cfg: root,
		Log: *l,
		PG:  st.PG,
		CH:  st.CH,
	}
	ports := syncmod.New(deps).Ports().(syncmod.Ports)

	opts := phttp.OptionsFromConf(root)
	srv := phttp.NewServer(opts, l)
	srv.Router().Use(middleware.RecoverJSON(l))
	srv.Router().Use(middleware.AccessLog(l))
	api.New(ports.Reader).MountRoutes(srv.Router())

	shutdown := root.MayDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err := srv.Run(ctx, shutdown); err != nil {
		l.Panic().Err(err).Msg("http server failed")
	}
}
