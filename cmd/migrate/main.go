package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/sightline/internal/pkg/config"
)

var migrations = []string{
	"001_init_extensions",
	"002_elevation_tables",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down> [dir]")
	}

	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	cfg, err := config.Load("sightline-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		run(ctx, pool, dir, migrations, "up")
	case "down":
		down := slices.Clone(migrations)
		slices.Reverse(down)
		run(ctx, pool, dir, down, "down")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func run(ctx context.Context, pool *pgxpool.Pool, dir string, names []string, direction string) {
	for _, name := range names {
		f := filepath.Join(dir, name+"."+direction+".sql")
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Printf("all %s migrations applied", direction)
}
