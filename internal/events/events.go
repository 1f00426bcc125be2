// Package events publishes session lifecycle events to NATS JetStream for
// downstream consumers (feed builders, widgets). The publisher is optional:
// a nil *Publisher is a safe no-op, and publish failures never fail the
// request that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/convergo/drafting-platform/pkg/logger"
)

const (
	// StreamName is the name of the lifecycle events stream.
	StreamName = "CONVERGO"

	// SubjectPrefix is the prefix for all lifecycle subjects.
	SubjectPrefix = "convergo"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeSessionStarted Type = "session.started"
	TypeSessionEnded   Type = "session.ended"
	TypeDraftPublished Type = "draft.published"
)

// Event is a lifecycle record emitted by the pipeline.
type Event struct {
	Type      Type      `json:"type"`
	Site      string    `json:"site"`
	SessionID string    `json:"session_id,omitempty"`
	PostID    int       `json:"post_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds NATS connection configuration.
type Config struct {
	URL   string
	Token string
}

// Publisher publishes lifecycle events to JetStream.
type Publisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect establishes a NATS connection and ensures the lifecycle stream
// exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{conn: nc, js: js, logger: log}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Session lifecycle and draft publication events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish emits an event. A nil publisher drops it; failures are logged and
// swallowed so event emission never affects the request outcome.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}

	event.CreatedAt = time.Now().UTC()
	subject := fmt.Sprintf("%s.%s.%s", SubjectPrefix, event.Site, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

// IsConnected reports whether the publisher holds a live NATS connection.
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
