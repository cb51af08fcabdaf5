package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"plantdoctor/internal/config"
	"plantdoctor/internal/ingest"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/model"
	"plantdoctor/internal/service"
	"plantdoctor/internal/service/settings"
)

// multipart overhead allowed on top of the image size limit
const formOverhead = 1 << 20

// Analyzer runs one upload through the pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, session string, r io.Reader) (*model.AnalysisReport, error)
}

// uploadError carries the status code an upload problem maps to.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

// runAnalysis parses the form, applies the slider value and runs the pipeline.
func runAnalysis(w http.ResponseWriter, r *http.Request, analyzer Analyzer, store *settings.Store,
	cfg *config.Config, logger *logger.Logger) (*model.AnalysisReport, error) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &uploadError{http.StatusRequestEntityTooLarge, ingest.ErrTooLarge.Error()}
		}
		return nil, &uploadError{http.StatusBadRequest, "Invalid upload form"}
	}
	defer r.MultipartForm.RemoveAll()

	if raw := r.FormValue("confidence"); raw != "" {
		if err := applyConfidence(store, raw); err != nil {
			return nil, &uploadError{http.StatusBadRequest, err.Error()}
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &uploadError{http.StatusBadRequest, "Please upload an image file (jpg, jpeg or png)"}
	}
	defer file.Close()

	logger.Info("Received upload %s (%d bytes)", uploadName(header), header.Size)

	rep, err := analyzer.Analyze(r.Context(), r.FormValue("session"), file)
	if err != nil {
		if errors.Is(err, service.ErrInvalidImage) {
			status := http.StatusBadRequest
			if errors.Is(err, ingest.ErrTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			return nil, &uploadError{status, err.Error()}
		}
		logger.Error("Analysis failed: %v", err)
		return nil, &uploadError{http.StatusInternalServerError, "Analysis failed, please try again"}
	}
	return rep, nil
}

func uploadName(h *multipart.FileHeader) string {
	if h == nil || h.Filename == "" {
		return "(unnamed)"
	}
	return strconv.Quote(h.Filename)
}

func applyConfidence(store *settings.Store, raw string) error {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid confidence %q", raw)
	}
	return store.SetConfidence(v)
}

func statusOf(err error) (int, string) {
	var ue *uploadError
	if errors.As(err, &ue) {
		return ue.status, ue.msg
	}
	return http.StatusInternalServerError, err.Error()
}

// AnalyzeHandler handles POST /analyze and renders the page with the report.
func AnalyzeHandler(analyzer Analyzer, store *settings.Store, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rep, err := runAnalysis(w, r, analyzer, store, cfg, logger)
		data := newPageData(cfg, store)
		if err != nil {
			status, msg := statusOf(err)
			data.Error = msg
			renderPage(w, logger, status, "index", data)
			return
		}

		if err := data.withReport(rep); err != nil {
			logger.Error("Error rendering report: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		renderPage(w, logger, http.StatusOK, "index", data)
	}
}

// AnalyzeAPIHandler handles POST /api/analyze and returns the report as JSON.
func AnalyzeAPIHandler(analyzer Analyzer, store *settings.Store, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		rep, err := runAnalysis(w, r, analyzer, store, cfg, logger)
		if err != nil {
			status, msg := statusOf(err)
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
