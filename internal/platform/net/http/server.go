// Package http hosts the platform HTTP server and router seam
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/BCM-Neurosurgery/video-sync/internal/platform/config"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server wraps a stdlib http.Server with a chi router behind the Router seam
type Server struct {
	http   *http.Server
	router Router
	log    *logger.Logger
}

// Options configure the server
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// OptionsFromConf builds Options from an env-prefixed Conf
func OptionsFromConf(cfg config.Conf) Options {
	return Options{
		Addr:            cfg.MayString("HTTP_ADDR", ":4000"),
		ReadTimeout:     cfg.MayDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    cfg.MayDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     cfg.MayDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: cfg.MayDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:     []string{cfg.MayString("HTTP_CORS_ORIGIN", "*")},
	}
}

// NewServer builds a Server with base middleware installed
func NewServer(opts Options, log *logger.Logger) *Server {
	m := chi.NewRouter()
	m.Use(chimw.RequestID)
	m.Use(chimw.RealIP)
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s := &Server{
		router: AdaptChi(m),
		log:    log,
		http: &http.Server{
			Addr:         opts.Addr,
			Handler:      m,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
	}
	return s
}

// Router exposes the mount surface for modules
func (s *Server) Router() Router { return s.router }

// Run serves until ctx is cancelled, then drains with the shutdown timeout
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("http listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(sctx); err != nil {
		return err
	}
	return <-errCh
}
