package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"tani/internal/config"
	"tani/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// --- Configuration ---
	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	l := logger.Init(logger.Options{
		Environment: logger.ParseEnvironment(cfg.AppEnv),
		Level:       cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to create app")
	}

	// --- Start HTTP Server ---
	go func() {
		l.Info().Str("port", cfg.AppPort).Msg("Starting server")
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			l.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	l.Info().Msg("Shutting down server...")

	if err := app.Fiber.Shutdown(); err != nil {
		l.Error().Err(err).Msg("Error during Fiber shutdown")
	}
	if err := app.Close(); err != nil {
		l.Error().Err(err).Msg("Error releasing resources")
	}
	l.Info().Msg("Server gracefully stopped")
}
