package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/core/ports"
)

// RequestService evaluates queued visibility requests and publishes the
// outcome.
type RequestService struct {
	sightlines *SightlineService
	publisher  ports.EventPublisher
}

// NewRequestService creates a new RequestService.
func NewRequestService(sightlines *SightlineService, publisher ports.EventPublisher) *RequestService {
	return &RequestService{sightlines: sightlines, publisher: publisher}
}

// Process evaluates req and publishes a VisibilityResult. Requests that can
// never succeed are answered with an error result and return nil. Transient
// failures are returned so the broker redelivers the request.
func (s *RequestService) Process(ctx context.Context, req *domain.VisibilityRequest) error {
	res := &domain.VisibilityResult{RequestID: req.ID}

	policy := req.Policy()
	if policy == nil {
		res.Error = fmt.Sprintf("%v: exactly one policy is required", domain.ErrInvalidArgument)
		return s.publish(ctx, res)
	}
	res.Decision.Policy = policy.PolicyName()

	decision, err := s.sightlines.Evaluate(ctx, policy)
	switch {
	case err == nil:
		res.Decision = decision
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("evaluate %s: %w", req.ID, err)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		res.Error = err.Error()
	}

	return s.publish(ctx, res)
}

func (s *RequestService) publish(ctx context.Context, res *domain.VisibilityResult) error {
	if err := s.publisher.PublishVisibilityResult(ctx, res); err != nil {
		return fmt.Errorf("publish result %s: %w", res.RequestID, err)
	}
	slog.Debug("visibility request processed",
		"id", res.RequestID, "policy", res.Decision.Policy,
		"blocked", res.Decision.Blocked, "error", res.Error)
	return nil
}
