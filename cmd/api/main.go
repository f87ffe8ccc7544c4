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

	"github.com/samirrijal/sightline/internal/adapters/http"
	natsadapter "github.com/samirrijal/sightline/internal/adapters/nats"
	"github.com/samirrijal/sightline/internal/adapters/postgres"
	"github.com/samirrijal/sightline/internal/adapters/valkey"
	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/core/usecases"
	"github.com/samirrijal/sightline/internal/pkg/config"
	"github.com/samirrijal/sightline/internal/pkg/logging"
	"github.com/samirrijal/sightline/internal/pkg/metrics"
	"github.com/samirrijal/sightline/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("sightline-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Exporter, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Elevation source, read-through cached when Valkey is up
	var source ports.ElevationSource = postgres.NewElevationSource(db)
	var cacheSvc ports.CacheService
	var cachePinger http.Pinger
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		source = valkey.NewCachedElevationSource(source, cache, cfg.Cache.TTLSeconds)
		cacheSvc = cache
		cachePinger = cache
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Use cases
	profileSvc := usecases.NewProfileService(source, usecases.SamplingOptions{
		ResolutionMeters: cfg.Sampling.ResolutionMeters,
		MaxSamples:       cfg.Sampling.MaxSamples,
		Concurrency:      cfg.Sampling.Concurrency,
		LookupTimeout:    cfg.Sampling.LookupTimeout(),
	})
	sightlineSvc := usecases.NewSightlineService(profileSvc)
	tileSvc := usecases.NewTileService(postgres.NewTileRepo(db), cacheSvc)

	deps := &http.Dependencies{
		Profiles:       profileSvc,
		Sightlines:     sightlineSvc,
		Tiles:          tileSvc,
		Publisher:      publisher,
		NATS:           natsConn,
		DB:             db,
		Cache:          cachePinger,
		DefaultSamples: cfg.Sampling.DefaultSamples,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Sightline API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
