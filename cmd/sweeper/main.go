package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/sightline/internal/adapters/nats"
	"github.com/samirrijal/sightline/internal/adapters/postgres"
	"github.com/samirrijal/sightline/internal/adapters/valkey"
	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/core/usecases"
	"github.com/samirrijal/sightline/internal/pkg/config"
	"github.com/samirrijal/sightline/internal/pkg/logging"
	"github.com/samirrijal/sightline/internal/workflows"
)

const usage = `usage: sweeper worker
       sweeper start -lon LON -lat LAT [-height M] [-range KM] [-bearings N] [-samples N]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load("sightline-sweeper")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
		Logger:   slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	switch os.Args[1] {
	case "worker":
		runWorker(cfg, c)
	case "start":
		startSweep(cfg, c, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func runWorker(cfg *config.Config, c client.Client) {
	ctx := context.Background()

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

	activities := &workflows.CoverageActivities{
		Sightlines: usecases.NewSightlineService(usecases.NewProfileService(source, usecases.SamplingOptions{
			ResolutionMeters: cfg.Sampling.ResolutionMeters,
			MaxSamples:       cfg.Sampling.MaxSamples,
			Concurrency:      cfg.Sampling.Concurrency,
			LookupTimeout:    cfg.Sampling.LookupTimeout(),
		})),
	}
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, coverage reports will not be published", "error", err)
	} else {
		defer pub.Close()
		activities.Publisher = pub
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.CoverageSweepWorkflow)
	w.RegisterActivity(activities)

	slog.Info("coverage sweep worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func startSweep(cfg *config.Config, c client.Client, args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	lon := fs.Float64("lon", 0, "site longitude in degrees")
	lat := fs.Float64("lat", 0, "site latitude in degrees")
	height := fs.Float64("height", 30, "radar height above sea level in meters")
	rangeKm := fs.Float64("range", 20, "sweep range in kilometers")
	bearings := fs.Int("bearings", 36, "number of evenly spaced bearings")
	samples := fs.Int("samples", cfg.Sampling.DefaultSamples, "samples per bearing")
	wait := fs.Bool("wait", true, "wait for the report and print it")
	_ = fs.Parse(args)

	input := workflows.CoverageSweepInput{
		Site:              domain.GeoPoint{Lon: *lon, Lat: *lat},
		RadarHeightMeters: *height,
		RangeKm:           *rangeKm,
		Bearings:          *bearings,
		Samples:           *samples,
	}
	if err := input.Validate(); err != nil {
		log.Fatalf("invalid sweep: %v", err)
	}

	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("coverage-%.4f_%.4f-%d", input.Site.Lon, input.Site.Lat, time.Now().Unix()),
		TaskQueue:                cfg.Temporal.TaskQueue,
		WorkflowExecutionTimeout: time.Hour,
	}, workflows.CoverageSweepWorkflow, input)
	if err != nil {
		log.Fatalf("start workflow: %v", err)
	}
	slog.Info("coverage sweep started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	if !*wait {
		return
	}

	var report domain.CoverageReport
	if err := run.Get(ctx, &report); err != nil {
		log.Fatalf("coverage sweep: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
