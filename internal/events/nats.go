package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/logfields"
	"git.home.luguber.info/inful/docrestyle/internal/retry"
)

// NATSConfig configures the JetStream publisher.
type NATSConfig struct {
	URL     string
	Subject string
	Stream  string
	// Retry governs republishing after transient failures. The zero value
	// means DefaultPolicy.
	Retry retry.Policy
}

// NATSPublisher publishes run events to a JetStream stream.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	retry   retry.Policy
}

// NewNATSPublisher connects to NATS and makes sure the stream capturing
// cfg.Subject exists.
func NewNATSPublisher(ctx context.Context, cfg NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("docrestyle"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to connect to NATS").
			WithContext("url", cfg.URL).Retryable().Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to create JetStream context").Build()
	}

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "docrestyle run notifications",
		Subjects:    []string{cfg.Subject},
		MaxAge:      7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to ensure stream").
			WithContext("stream", cfg.Stream).Build()
	}

	slog.Info("NATS publisher initialized",
		"url", cfg.URL,
		"subject", cfg.Subject,
		"stream", cfg.Stream)

	policy := cfg.Retry
	if policy.Validate() != nil {
		policy = retry.DefaultPolicy()
	}
	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject, retry: policy}, nil
}

// PublishRunCompleted publishes event to the configured subject.
func (p *NATSPublisher) PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error {
	data, err := event.Marshal()
	if err != nil {
		return err
	}

	// The message ID lets JetStream drop duplicates from retried publishes.
	err = p.retry.Do(ctx, func(ctx context.Context) error {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if _, err := p.js.Publish(pubCtx, p.subject, data, jetstream.WithMsgID(event.RunID)); err != nil {
			return errors.WrapError(err, errors.CategoryEvents, "failed to publish run event").
				WithContext("subject", p.subject).Warning().Retryable().Build()
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("Published run event", logfields.RunID(event.RunID), slog.String("subject", p.subject))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
