package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// Subjects used by the visibility pipeline.
const (
	SubjectRequestPrefix  = "sightline.request."
	SubjectResultPrefix   = "sightline.result."
	SubjectCoveragePrefix = "sightline.coverage."

	// SubjectResults matches every published VisibilityResult.
	SubjectResults = SubjectResultPrefix + ">"
)

// Streams returns the JetStream streams the pipeline relies on.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "SIGHTLINE_REQUESTS",
			Subjects:  []string{SubjectRequestPrefix + ">"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "SIGHTLINE_RESULTS",
			Subjects:  []string{SubjectResults},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "SIGHTLINE_COVERAGE",
			Subjects:  []string{SubjectCoveragePrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS, enables JetStream and ensures the
// pipeline streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	for _, cfg := range Streams() {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishVisibilityRequest enqueues a request for the worker pool.
func (p *Publisher) PublishVisibilityRequest(ctx context.Context, req *domain.VisibilityRequest) error {
	policy := req.Policy()
	if policy == nil {
		return fmt.Errorf("%w: request %q must carry exactly one policy", domain.ErrInvalidArgument, req.ID)
	}
	return p.publish(ctx, SubjectRequestPrefix+policy.PolicyName(), req)
}

// PublishVisibilityResult emits an evaluated request.
func (p *Publisher) PublishVisibilityResult(ctx context.Context, res *domain.VisibilityResult) error {
	policy := res.Decision.Policy
	if policy == "" {
		policy = "unknown"
	}
	return p.publish(ctx, SubjectResultPrefix+policy, res)
}

// PublishCoverageReport emits a finished radar coverage sweep.
func (p *Publisher) PublishCoverageReport(ctx context.Context, report *domain.CoverageReport) error {
	return p.publish(ctx, SubjectCoveragePrefix+siteToken(report.Site), report)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// IsConnected reports the state of the underlying connection.
func (p *Publisher) IsConnected() bool {
	return p.conn.IsConnected()
}

// Conn returns the underlying connection for plain subscriptions.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("sightline"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// siteToken renders a point as a single subject token.
func siteToken(p domain.GeoPoint) string {
	return fmt.Sprintf("%d_%d", int64(math.Round(p.Lon*1e4)), int64(math.Round(p.Lat*1e4)))
}
