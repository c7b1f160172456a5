// Package api exposes the read-only run manifest over HTTP
package api

import (
	"net/http"
	"strconv"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	phttp "github.com/BCM-Neurosurgery/video-sync/internal/platform/net/http"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Module serves the inspection endpoints
type Module struct {
	reader domain.ReaderPort
}

// New constructs the api module over a sync reader port
func New(reader domain.ReaderPort) *Module {
	if reader == nil {
		panic("api.Module requires a non nil ReaderPort")
	}
	return &Module{reader: reader}
}

// Name returns the module name
func (m *Module) Name() string { return "api" }

// MountRoutes mounts the inspection routes
func (m *Module) MountRoutes(r phttp.Router) {
	r.Get("/healthz", m.health)
	r.Route("/v1", func(r phttp.Router) {
		r.Get("/runs", m.listRuns)
		r.Get("/runs/{id}", m.getRun)
	})
}

func (m *Module) health(w http.ResponseWriter, r *http.Request) {
	phttp.RespondOK(w, r, map[string]string{"status": "ok"})
}

func (m *Module) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 500 {
			phttp.RespondError(w, r, perr.InvalidArgf("limit %q, want 1..500", s))
			return
		}
		limit = v
	}

	runs, err := m.reader.ListRuns(r.Context(), limit)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondList(w, r, runs, len(runs))
}

func (m *Module) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		phttp.RespondError(w, r, perr.InvalidArgf("run id must be a uuid"))
		return
	}

	detail, err := m.reader.GetRun(r.Context(), id)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, detail)
}
