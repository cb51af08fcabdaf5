package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"plantdoctor/internal/config"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/route"
	"plantdoctor/internal/service"
	"plantdoctor/internal/service/ai"
	"plantdoctor/internal/service/enrichment"
	"plantdoctor/internal/service/report"
	"plantdoctor/internal/service/settings"
	"plantdoctor/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

// App owns everything that is initialised once per process.
type App struct {
	config     *config.Config
	logger     *logger.Logger
	detector   ai.Detector
	settings   *settings.Store
	hubService *websocket.HubService
	pipeline   *service.Pipeline
	handler    http.Handler
}

// New validates cfg, loads the detection model and wires the services.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := enrichment.NewHTTPClient(cfg.HTTPTimeout)

	detector, err := ai.New(ctx, cfg, client, logger)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	store := settings.NewStore(cfg.DefaultConfidence)
	hub := websocket.NewHubService(logger)
	enricher := enrichment.New(cfg, client, logger)
	builder := report.NewBuilder(enricher, cfg.SearchResults, logger)
	pipeline := service.NewPipeline(detector, builder, store, hub, cfg, logger)

	return &App{
		config:     cfg,
		logger:     logger,
		detector:   detector,
		settings:   store,
		hubService: hub,
		pipeline:   pipeline,
		handler:    route.SetupRoutes(pipeline, hub, store, cfg, logger),
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	defer a.detector.Close()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hubService.Run(hubCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Plant Disease Detection server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Detector backend: %s, confidence threshold: %.2f", a.config.DetectorBackend, a.settings.Confidence())
	if a.config.Password != "" {
		a.logger.Info("Login required")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
