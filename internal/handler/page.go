package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"plantdoctor/internal/config"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/model"
	"plantdoctor/internal/service/report"
	"plantdoctor/internal/service/settings"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Confidence  float64
	Min         float64
	Max         float64
	Step        float64
	Message     string
	Error       string
	Preview     template.URL
	Report      template.HTML
	AuthEnabled bool
}

func newPageData(cfg *config.Config, store *settings.Store) pageData {
	return pageData{
		Confidence:  store.Confidence(),
		Min:         settings.MinConfidence,
		Max:         settings.MaxConfidence,
		Step:        settings.ConfidenceStep,
		Message:     report.NoUploadMessage,
		AuthEnabled: cfg.Password != "",
	}
}

// withReport renders rep into the page data.
func (d *pageData) withReport(rep *model.AnalysisReport) error {
	var buf bytes.Buffer
	if err := report.Render(&buf, *rep); err != nil {
		return err
	}
	d.Report = template.HTML(buf.String())
	// Built from our own JPEG encoding, never from request data.
	d.Preview = template.URL(rep.Preview)
	d.Message = ""
	return nil
}

func renderPage(w http.ResponseWriter, logger *logger.Logger, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("Error rendering %s page: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// PageHandler serves the single page at GET /.
func PageHandler(cfg *config.Config, store *settings.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		renderPage(w, logger, http.StatusOK, "index", newPageData(cfg, store))
	}
}
