package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/core/usecases"
)

// Pinger is a backing service the readiness check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Profiles   *usecases.ProfileService
	Sightlines *usecases.SightlineService
	Tiles      *usecases.TileService
	Publisher  ports.EventPublisher
	NATS       *nats.Conn
	DB         Pinger
	Cache      Pinger

	// DefaultSamples is used when a request omits samples.
	DefaultSamples int
}

func (d *Dependencies) defaultSamples() int {
	if d.DefaultSamples >= 2 {
		return d.DefaultSamples
	}
	return 10
}
