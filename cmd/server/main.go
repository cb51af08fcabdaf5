package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"plantdoctor/internal/app"
	"plantdoctor/internal/config"
	"plantdoctor/internal/logger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			log.Fatal(err.Error())
		}
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to start: %v", err)
		log.Fatalf("Failed to start server: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		appLogger.Error("Server error: %v", err)
		log.Fatalf("Server error: %v", err)
	}
}
