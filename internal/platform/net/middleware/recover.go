package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
)

// RecoverJSON converts panics into a 500 JSON body instead of a dropped conn
func RecoverJSON(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"status": http.StatusInternalServerError,
						"error":  map[string]any{"message": "internal error"},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
