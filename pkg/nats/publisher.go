package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName    = "CLINIC_EVENTS"
	subjectPrefix = "events."
)

// lifecycleStream keeps escalation lifecycle events by limits for other services to replay.
var lifecycleStream = jetstream.StreamConfig{
	Name:      streamName,
	Subjects:  []string{subjectPrefix + ">"},
	Storage:   jetstream.FileStorage,
	Retention: jetstream.LimitsPolicy,
	MaxAge:    30 * 24 * time.Hour,
}

type streamManager interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// Publisher writes lifecycle events to JetStream. It satisfies events.Sink.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger
}

// NewPublisher connects to NATS and makes sure the lifecycle stream exists.
// A missing stream is logged, not fatal: publishes fail until it appears.
func NewPublisher(url string, log logger.ILogger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("clinic-chat-be"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ensureStream(ctx, js, log)

	return &Publisher{nc: nc, js: js, logger: log}, nil
}

func ensureStream(ctx context.Context, sm streamManager, log logger.ILogger) {
	if _, err := sm.CreateOrUpdateStream(ctx, lifecycleStream); err != nil {
		log.Warn("NATS", "Failed to ensure lifecycle stream", map[string]interface{}{
			"stream": streamName,
			"error":  err.Error(),
		})
		return
	}
	log.Info("NATS", "Lifecycle stream ready", map[string]interface{}{"stream": streamName})
}

func subjectFor(eventType string) string {
	return subjectPrefix + eventType
}

func encode(event events.Event) (string, []byte, error) {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal %s payload: %w", event.EventType(), err)
	}
	return subjectFor(event.EventType()), data, nil
}

// Publish waits for the JetStream ack.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	subject, data, err := encode(event)
	if err != nil {
		return err
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}

	p.logger.Debug("NATS", "Event published", map[string]interface{}{"subject": subject})
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
