package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/pkg/metrics"
)

// Stream and subject names for marker batches.
const (
	MarkerStream        = "EVENT_MARKERS"
	MarkerSubjectPrefix = "eventures.markers."
)

// MarkerSubject returns the subject a run's batch is published on.
func MarkerSubject(runID string) string {
	return MarkerSubjectPrefix + runID
}

// Publisher implements ports.MarkerPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the marker stream exists.
// maxAge bounds how long batches are retained for late renderers.
func NewPublisher(url string, maxAge time.Duration) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("eventures"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      MarkerStream,
		Subjects:  []string{MarkerSubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    maxAge,
		Storage:   nats.FileStorage,
		// One batch per run id within the window.
		Duplicates: 2 * time.Minute,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishMarkers publishes a batch and waits for the stream ack.
func (p *Publisher) PublishMarkers(ctx context.Context, batch *domain.MarkerBatch) error {
	msg, err := markerMessage(batch)
	if err != nil {
		return err
	}
	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	metrics.MarkersPublished.Inc()
	return nil
}

// Conn exposes the connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func markerMessage(batch *domain.MarkerBatch) (*nats.Msg, error) {
	if batch == nil || batch.RunID == "" {
		return nil, fmt.Errorf("marker batch without run id")
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode marker batch: %w", err)
	}
	msg := nats.NewMsg(MarkerSubject(batch.RunID))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, batch.RunID)
	msg.Header.Set("Content-Type", "application/json")
	return msg, nil
}
