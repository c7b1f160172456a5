package http

import (
	"encoding/json"
	"net/http"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	pnet "github.com/BCM-Neurosurgery/video-sync/internal/platform/net"
)

// Envelope is the uniform JSON response shape
type Envelope struct {
	Status    int        `json:"status"`
	RequestID string     `json:"request_id,omitempty"`
	Data      any        `json:"data,omitempty"`
	Error     *perr.Wire `json:"error,omitempty"`
}

// ListEnvelope wraps list payloads with a total count
type ListEnvelope struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// encode failures after WriteHeader are unrecoverable; drop them
	_ = json.NewEncoder(w).Encode(env)
}

// RespondOK writes a 200 envelope with data
func RespondOK(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusOK, Envelope{
		Status:    http.StatusOK,
		RequestID: pnet.RequestID(r.Context()),
		Data:      data,
	})
}

// RespondList writes a 200 envelope wrapping items and a total
func RespondList(w http.ResponseWriter, r *http.Request, items any, total int) {
	RespondOK(w, r, ListEnvelope{Items: items, Total: total})
}

// RespondError maps a platform error to an HTTP status and writes the envelope
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status, wire := perr.HTTP(err)
	writeJSON(w, status, Envelope{
		Status:    status,
		RequestID: pnet.RequestID(r.Context()),
		Error:     &wire,
	})
}
