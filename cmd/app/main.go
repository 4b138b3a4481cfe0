package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordersync/cmd"
	"ordersync/internal/adapters/out/persistence"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceVersion = "1.0.0"

func main() {
	configs := getConfigs()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: configs.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, configs.OTLPEndpoint, configs.ServiceName, serviceVersion)
	if err != nil {
		log.Fatalf("Error initializing tracing: %v", err)
	}
	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(configs.ServiceName, serviceVersion)
	if err != nil {
		log.Fatalf("Error initializing metrics: %v", err)
	}

	db, err := persistence.Open(configs.StoreDriver, configs.StoreDSN, logger)
	if err != nil {
		log.Fatalf("Error opening order store: %v", err)
	}

	app, err := cmd.NewCompositionRoot(configs, db, logger)
	if err != nil {
		log.Fatalf("Error wiring application: %v", err)
	}

	actor, err := kernel.NewActor(configs.ActorID, configs.ActorRole, configs.ActorScopeID)
	if err != nil {
		log.Fatalf("Error reading actor: %v", err)
	}
	orders, err := app.OpenSession(ctx, actor)
	if err != nil {
		log.Fatalf("Error opening order session: %v", err)
	}

	e, err := app.NewHTTPServer(ctx, orders, metricsHandler)
	if err != nil {
		log.Fatalf("Error building HTTP server: %v", err)
	}
	startWebServer(ctx, e, configs.HTTPPort, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = orders.Close(); err != nil {
		logger.Error("Order session closed with errors", "error", err)
	}
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	_ = shutdownMeter(shutdownCtx)
	_ = shutdownTracer(shutdownCtx)
}

func getConfigs() cmd.Config {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}
	config, err := cmd.LoadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return config
}

// startWebServer serves until ctx is done, then shuts the server down.
func startWebServer(ctx context.Context, e *echo.Echo, port string, logger *slog.Logger) {
	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", port),
		Handler:           otelhttp.NewHandler(e, "ordersync.http"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
}
