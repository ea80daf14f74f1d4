package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/tuncerburak97/securecall/internal/config"
	"github.com/tuncerburak97/securecall/internal/handler"
	"github.com/tuncerburak97/securecall/internal/logger"
	"github.com/tuncerburak97/securecall/internal/logstore"
	"github.com/tuncerburak97/securecall/internal/metrics"
	"github.com/tuncerburak97/securecall/internal/repository"
	"github.com/tuncerburak97/securecall/internal/service"
	"github.com/tuncerburak97/securecall/internal/transform"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("path", *envPath).Msg("Failed to load dotenv file")
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLogger := logger.Init(cfg.Log)
	ctx := appLogger.WithContext(context.Background())

	metricsCollector := metrics.GetMetricsCollector("securecall", "securecall_api")

	// Initialize repository and rehydrate the audit log
	repo, err := repository.NewRepository(ctx, &cfg.Store)
	if err != nil {
		appLogger.Fatal().Err(err).Str("type", cfg.Store.Type).Msg("Failed to initialize repository")
	}

	store, err := logstore.Open(ctx, repo)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to load audit log")
	}
	metricsCollector.SetStoredEntries(store.Len())
	appLogger.Info().Int("entries", store.Len()).Msg("Audit log loaded")

	transformEngine, err := transform.NewEngine(cfg.Transform)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to initialize transform engine")
	}

	svc := service.NewSecureCallService(store, cfg.Auth.APIKey, cfg.Store.RecentLimit, transformEngine, appLogger)
	h := handler.NewHandler(svc, metricsCollector, appLogger, cfg.Server.Port)
	app := handler.NewApp(cfg.Server, h)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		appLogger.Info().Str("addr", addr).Str("store", cfg.Store.Type).Msg("Starting server")
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range quit {
		if sig == syscall.SIGHUP {
			if err := transformEngine.Reload(); err != nil {
				appLogger.Error().Err(err).Msg("Failed to reload transform scripts")
			} else {
				appLogger.Info().Msg("Transform scripts reloaded")
			}
			continue
		}
		break
	}

	appLogger.Info().Msg("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to shutdown server")
	}

	// Close resources
	if err := store.Close(); err != nil {
		appLogger.Error().Err(err).Msg("Failed to close log store")
	}
	metricsCollector.Close()
}
