package handler

import (
	"net/http"

	"plantdoctor/internal/config"
)

// HealthHandler reports that the server is up and which detector backend it runs.
func HealthHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"backend": cfg.DetectorBackend,
		})
	}
}
