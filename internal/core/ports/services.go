package ports

import (
	"context"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// EventPublisher publishes visibility events to a message broker.
type EventPublisher interface {
	PublishVisibilityRequest(ctx context.Context, req *domain.VisibilityRequest) error
	PublishVisibilityResult(ctx context.Context, res *domain.VisibilityResult) error
	PublishCoverageReport(ctx context.Context, report *domain.CoverageReport) error
}

// EventSubscriber subscribes to queued visibility requests.
type EventSubscriber interface {
	SubscribeVisibilityRequests(ctx context.Context, handler func(ctx context.Context, req *domain.VisibilityRequest) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
