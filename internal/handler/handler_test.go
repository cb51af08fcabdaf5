package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantdoctor/internal/config"
	"plantdoctor/internal/ingest"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/middleware"
	"plantdoctor/internal/model"
	"plantdoctor/internal/service"
	"plantdoctor/internal/service/report"
	"plantdoctor/internal/service/settings"
)

type fakeAnalyzer struct {
	report  *model.AnalysisReport
	err     error
	session string
	body    string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, session string, r io.Reader) (*model.AnalysisReport, error) {
	f.session = session
	b, _ := io.ReadAll(r)
	f.body = string(b)
	return f.report, f.err
}

func testConfig() *config.Config {
	return &config.Config{MaxUploadBytes: 1 << 20, DetectorBackend: config.BackendRemote}
}

func uploadRequest(t *testing.T, path string, fields map[string]string, file string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		part, err := mw.CreateFormFile("file", "leaf.png")
		require.NoError(t, err)
		_, err = part.Write([]byte(file))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func blightReport() *model.AnalysisReport {
	return &model.AnalysisReport{
		Threshold: 0.3,
		Preview:   "data:image/jpeg;base64,AAAA",
		Diseases: []model.DiseaseReport{{
			DiseaseName: "Leaf Blight",
			Description: "Leaf blight browns leaves.",
		}},
	}
}

func TestPageHandler(t *testing.T) {
	store := settings.NewStore(0.25)
	h := PageHandler(testConfig(), store, logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, report.NoUploadMessage)
	assert.Contains(t, body, `value="0.25"`)
	assert.Contains(t, body, `step="0.01"`)
	assert.Contains(t, body, `accept=".jpg,.jpeg,.png`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeHandler_RendersReport(t *testing.T) {
	store := settings.NewStore(settings.DefaultConfidence)
	analyzer := &fakeAnalyzer{report: blightReport()}
	h := AnalyzeHandler(analyzer, store, testConfig(), logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/analyze", map[string]string{"confidence": "0.3", "session": "abc"}, "PNGDATA"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Detected Disease: Leaf Blight")
	assert.Contains(t, body, `src="data:image/jpeg;base64,AAAA"`)
	assert.NotContains(t, body, report.NoUploadMessage)
	assert.Equal(t, "abc", analyzer.session)
	assert.Equal(t, "PNGDATA", analyzer.body)
	assert.InDelta(t, 0.3, store.Confidence(), 1e-9)
}

func TestAnalyzeHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		file     string
		err      error
		wantCode int
	}{
		{"confidence out of range", map[string]string{"confidence": "1.5"}, "x", nil, http.StatusBadRequest},
		{"confidence not a number", map[string]string{"confidence": "high"}, "x", nil, http.StatusBadRequest},
		{"missing file", nil, "", nil, http.StatusBadRequest},
		{"invalid image", nil, "x", fmt.Errorf("%w: %w", service.ErrInvalidImage, ingest.ErrUnsupportedFormat), http.StatusBadRequest},
		{"too large", nil, "x", fmt.Errorf("%w: %w", service.ErrInvalidImage, ingest.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{"detector failure", nil, "x", fmt.Errorf("detect: boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := settings.NewStore(0.2)
			h := AnalyzeHandler(&fakeAnalyzer{err: tt.err}, store, testConfig(), logger.Discard())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, uploadRequest(t, "/analyze", tt.fields, tt.file))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `class="error"`)
			assert.InDelta(t, 0.2, store.Confidence(), 1e-9)
		})
	}
}

func TestAnalyzeAPIHandler(t *testing.T) {
	store := settings.NewStore(settings.DefaultConfidence)
	h := AnalyzeAPIHandler(&fakeAnalyzer{report: &model.AnalysisReport{
		Threshold: 0.1,
		Diseases:  []model.DiseaseReport{},
		Message:   report.NoDiseasesMessage,
	}}, store, testConfig(), logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/analyze", nil, "x"))
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, report.NoDiseasesMessage, got.Message)
	assert.Empty(t, got.Diseases)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSettingsHandler(t *testing.T) {
	store := settings.NewStore(settings.DefaultConfidence)
	h := SettingsHandler(store, logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"confidence":0.1,"min":0.01,"max":1,"step":0.01}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"confidence":0.45}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.45, store.Confidence(), 1e-9)

	for _, body := range []string{`{"confidence":0}`, `{"confidence":2}`, `{}`, `nope`} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.InDelta(t, 0.45, store.Confidence(), 1e-9)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/settings", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(testConfig()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","backend":"remote"}`, rec.Body.String())
}

func TestLogsHandlers(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.NewLogger(&config.Config{LogDirectory: dir})
	require.NoError(t, err)
	defer log.Close()

	log.Warning("PageError: No Wikipedia page found for Rust.")

	rec := httptest.NewRecorder()
	ShowLogsHandler(log, logger.WarningFile).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PageError: No Wikipedia page found for Rust.")

	rec = httptest.NewRecorder()
	ClearLogsHandler(log, logger.WarningFile).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	data, err := os.ReadFile(filepath.Join(dir, logger.WarningFile))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLoginAndLogout(t *testing.T) {
	cfg := testConfig()
	cfg.Password = "secret"
	h := LoginHandler(cfg, logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="password"`)

	bad := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=wrong"))
	bad.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid password")

	good := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=secret"))
	good.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, good)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AuthCookie, cookies[0].Name)
	assert.Equal(t, middleware.AuthToken("secret"), cookies[0].Value)

	rec = httptest.NewRecorder()
	LogoutHandler(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}
