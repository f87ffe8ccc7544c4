package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/sightline/internal/adapters/nats"
	"github.com/samirrijal/sightline/internal/adapters/postgres"
	"github.com/samirrijal/sightline/internal/adapters/valkey"
	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/core/usecases"
	"github.com/samirrijal/sightline/internal/pkg/config"
	"github.com/samirrijal/sightline/internal/pkg/logging"
	"github.com/samirrijal/sightline/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("sightline-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Exporter, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var source ports.ElevationSource = postgres.NewElevationSource(db)
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, serving uncached", "error", err)
	} else {
		defer cache.Close()
		source = valkey.NewCachedElevationSource(source, cache, cfg.Cache.TTLSeconds)
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	profiles := usecases.NewProfileService(source, usecases.SamplingOptions{
		ResolutionMeters: cfg.Sampling.ResolutionMeters,
		MaxSamples:       cfg.Sampling.MaxSamples,
		Concurrency:      cfg.Sampling.Concurrency,
		LookupTimeout:    cfg.Sampling.LookupTimeout(),
	})
	requests := usecases.NewRequestService(usecases.NewSightlineService(profiles), pub)

	if err := sub.SubscribeVisibilityRequests(ctx, requests.Process); err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	slog.Info("visibility worker started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down worker", "signal", sig.String())
}
