package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	httpadapter "taskboard/internal/adapter/http"
	teladapter "taskboard/internal/adapter/telemetry"
	"taskboard/pkg/config"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()

	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := config.NewLokiLogger(cfg.Telemetry.ServiceName, cfg.Logging.LokiURL, cfg.Logging.Level)

	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}

	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry, err := teladapter.NewContainer(ctx, cfg.Telemetry, cfg.Environment, logger)

	if err != nil {
		logger.Logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	telemetry.AppMetrics.StartSystemMetrics(ctx, 15*time.Second)

	if err := httpadapter.StartServer(ctx, cfg, telemetry.AppMetrics, telemetry.NewTelemetryProbe(), logger); err != nil {
		logger.Logger.Error("Server stopped with error", zap.Error(err))
		stop()
		os.Exit(1)
	}
}
