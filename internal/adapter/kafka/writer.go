package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// Writer publishes merged events to a Kafka topic.
// It implements job.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the publisher in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish serializes the batch and sends it in a single WriteMessages call.
// Messages are keyed by event key so reruns of the same key land on the same
// partition.
func (w *Writer) Publish(ctx context.Context, collection string, events domain.EventSet) error {
	if len(events) == 0 {
		return nil
	}
	publishedAt := domain.Now()
	msgs := make([]kafkago.Message, 0, len(events))
	for _, key := range sortedKeys(events) {
		msg, err := serializeToMessage(collection, key, events[key], publishedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("published to kafka", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Event into a Kafka message.
func serializeToMessage(collection, key string, event domain.Event, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event %s: %w", key, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "collection", Value: []byte(collection)},
			{Key: "topic", Value: []byte(event.Topic)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}

func sortedKeys(events domain.EventSet) []string {
	keys := make([]string, 0, len(events))
	for k := range events {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
