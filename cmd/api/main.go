package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/eventures/eventures/internal/adapters/http"
	"github.com/eventures/eventures/internal/bootstrap"
	"github.com/eventures/eventures/internal/pkg/config"
	"github.com/eventures/eventures/internal/pkg/logging"
	"github.com/eventures/eventures/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("eventures-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Pipeline, cache and broker
	pipeline, err := bootstrap.NewPipeline(cfg, nil)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	defer pipeline.Close()

	deps := &http.Dependencies{
		Locations: pipeline.Service,
		Defaults: http.QueryDefaults{
			Fields:   cfg.Query.Fields,
			PageSize: cfg.Query.PageSize,
			MaxPages: cfg.Query.MaxPages,
		},
		Cache:          pipeline.Cache,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		CacheMaxAge:    time.Duration(cfg.Cache.TTL) * time.Second,
		RateLimit:      cfg.Server.RateLimit,
		Version:        version,
	}
	if pipeline.Breaker != nil {
		deps.Breaker = pipeline.Breaker
	}
	if pipeline.Publisher != nil {
		deps.NATS = pipeline.Publisher.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024, // GraphQL queries only
		AppName:      "Eventures API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Cache-Control, If-None-Match",
		ExposeHeaders:    "Link, ETag, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
