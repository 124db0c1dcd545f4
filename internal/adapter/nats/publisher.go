// Package nats publishes merged events to a NATS subject, one message per
// event, for downstream consumers that want a live feed.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// Publisher implements job.Publisher on a NATS connection.
type Publisher struct {
	conn    *natsgo.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials url and returns a Publisher for subject.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	conn, err := natsgo.Connect(url,
		natsgo.Name("geomonitor"),
		natsgo.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewPublisher(conn, subject, logger), nil
}

// NewPublisher wraps an open connection.
func NewPublisher(conn *natsgo.Conn, subject string, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// Name identifies the publisher in logs and metrics.
func (p *Publisher) Name() string { return "nats" }

// flushTimeout bounds the flush when the caller's context has no deadline.
const flushTimeout = 5 * time.Second

// Publish sends each event to "<subject>.<collection>" with the event key in
// the Geomonitor-Key header, then flushes.
func (p *Publisher) Publish(ctx context.Context, collection string, events domain.EventSet) error {
	msgs, err := buildMessages(p.subject, collection, events)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	for _, msg := range msgs {
		if err := p.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish %s: %w", msg.Header.Get(keyHeader), err)
		}
	}

	if _, ok := ctx.Deadline(); ok {
		err = p.conn.FlushWithContext(ctx)
	} else {
		err = p.conn.FlushTimeout(flushTimeout)
	}
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	p.logger.Debug("published to nats", "subject", msgs[0].Subject, "messages", len(msgs))
	return nil
}

const keyHeader = "Geomonitor-Key"

func buildMessages(subject, collection string, events domain.EventSet) ([]*natsgo.Msg, error) {
	keys := make([]string, 0, len(events))
	for k := range events {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	msgs := make([]*natsgo.Msg, 0, len(keys))
	for _, key := range keys {
		data, err := json.Marshal(events[key])
		if err != nil {
			return nil, fmt.Errorf("serialize event %s: %w", key, err)
		}
		msg := natsgo.NewMsg(subject + "." + collection)
		msg.Header.Set(keyHeader, key)
		msg.Data = data
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
