package route

import (
	"net/http"

	"plantdoctor/internal/config"
	"plantdoctor/internal/handler"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/middleware"
	"plantdoctor/internal/service/settings"
	"plantdoctor/internal/service/websocket"
)

// SetupRoutes registers the page, analysis, settings, event, log and auth
// endpoints and wraps the mux with the middleware chain.
func SetupRoutes(analyzer handler.Analyzer, hub *websocket.HubService, store *settings.Store,
	cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Page and analysis
	mux.HandleFunc("/", handler.PageHandler(cfg, store, logger))
	mux.HandleFunc("/analyze", handler.AnalyzeHandler(analyzer, store, cfg, logger))

	// API endpoints
	mux.HandleFunc("/api/analyze", handler.AnalyzeAPIHandler(analyzer, store, cfg, logger))
	mux.HandleFunc("/api/settings", handler.SettingsHandler(store, logger))
	mux.HandleFunc("/health", handler.HealthHandler(cfg))
	mux.HandleFunc("/ws", handler.EventsWebsocketHandler(hub, logger))

	// Log endpoints
	for _, level := range []struct{ path, file string }{
		{"/logs/info", "info.log"},
		{"/logs/warning", "warning.log"},
		{"/logs/error", "error.log"},
	} {
		mux.HandleFunc(level.path, handler.ShowLogsHandler(logger, level.file))
		mux.HandleFunc(level.path+"/clear", handler.ClearLogsHandler(logger, level.file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	return middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.RequestLogger(logger),
		middleware.OTel("plantdoctor"),
		middleware.Auth(cfg.Password),
	)
}
