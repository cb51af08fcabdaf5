package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"plantdoctor/internal/logger"
	"plantdoctor/internal/service/settings"
)

type settingsPayload struct {
	Confidence *float64 `json:"confidence"`
}

// SettingsHandler reads (GET) or updates (PUT, POST) the confidence threshold.
func SettingsHandler(store *settings.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPut, http.MethodPost:
			var body settingsPayload
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&body); err != nil || body.Confidence == nil {
				writeError(w, http.StatusBadRequest, `Expected {"confidence": <number>}`)
				return
			}
			if err := store.SetConfidence(*body.Confidence); err != nil {
				if errors.Is(err, settings.ErrOutOfRange) {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			logger.Info("Confidence threshold set to %.2f", store.Confidence())
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]float64{
			"confidence": store.Confidence(),
			"min":        settings.MinConfidence,
			"max":        settings.MaxConfidence,
			"step":       settings.ConfidenceStep,
		})
	}
}
