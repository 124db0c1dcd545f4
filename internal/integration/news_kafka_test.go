//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/geomonitor-etl/internal/adapter/kafka"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/newsapi"
	"github.com/couchcryptid/geomonitor-etl/internal/adapter/redisstore"
	"github.com/couchcryptid/geomonitor-etl/internal/classify"
	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/geocode"
	"github.com/couchcryptid/geomonitor-etl/internal/job"
	"github.com/couchcryptid/geomonitor-etl/internal/location"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
	"github.com/couchcryptid/geomonitor-etl/internal/pipeline"
	"github.com/couchcryptid/geomonitor-etl/internal/retention"
)

const testTopic = "geomonitor-events-test"

const newsResponse = `{
  "status": "ok",
  "totalResults": 3,
  "articles": [
    {
      "source": {"id": null, "name": "Reuters"},
      "title": "PARIS — Leaders meet to discuss climate finance",
      "description": "<p>Talks continue into the night.</p>",
      "url": "https://example.com/paris",
      "publishedAt": "2025-06-01T08:00:00Z"
    },
    {
      "source": {"id": null, "name": "AP"},
      "title": "Flooding closes roads in Lagos",
      "description": "Heavy rain overnight.",
      "url": "https://example.com/lagos",
      "publishedAt": "2025-06-01T09:30:00Z"
    },
    {
      "source": {"id": null, "name": "Glossy"},
      "title": "Ten summer fashion trends",
      "description": "What to wear this season.",
      "url": "https://example.com/fashion",
      "publishedAt": "2025-06-01T10:00:00Z"
    }
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("geomonitor-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestNewsJobPublishesToKafka runs the news job end to end: a fake NewsAPI,
// the real pipeline with a pre-seeded geocode cache, a Redis store, and a
// Kafka publisher backed by a real broker.
func TestNewsJobPublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	news := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(newsResponse))
	}))
	defer news.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := redisstore.NewStore(client, discardLogger())

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	cache := geocode.NewMemoryCache(logger)
	cache.Put("Paris", domain.GeoPoint{Lat: 48.8566, Lon: 2.3522})
	cache.Put("Lagos", domain.GeoPoint{Lat: 6.5244, Lon: 3.3792})
	geocoder := geocode.NewClient(cache, nil, 0, logger, metrics)

	gazetteer := location.NewGazetteer(map[string]string{"paris": "Paris", "lagos": "Lagos"})
	classifier := classify.New(nil, nil, classify.Options{}, logger, metrics)
	p := pipeline.New(classifier, location.NewResolver(gazetteer, classifier, logger), geocoder, logger, metrics)

	writer := kafka.NewWriter([]string{broker}, testTopic, logger)
	t.Cleanup(func() { _ = writer.Close() })

	source := newsapi.NewClient("test-key", news.URL, "", 30, 10*time.Second)
	newsJob := job.NewNewsJob(source, p, 48*time.Hour, job.Deps{
		Merger:     retention.NewMerger(store, logger, metrics),
		Publishers: []job.Publisher{writer},
		Logger:     logger,
		Metrics:    metrics,
	})

	summary := newsJob.Run(ctx)
	require.Equal(t, job.StatusOK, summary.Status)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 2, summary.Produced)
	assert.Equal(t, []string{"kafka"}, summary.Published)

	stored, err := store.Fetch(ctx, domain.NewsCollection)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := map[string]domain.Event{}
	for len(got) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read published event")

		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, domain.NewsCollection, headers["collection"])

		var evt domain.Event
		require.NoError(t, json.Unmarshal(msg.Value, &evt))
		got[string(msg.Key)] = evt
	}

	for key, evt := range got {
		assert.Contains(t, stored, key)
		assert.Equal(t, stored[key].Title, evt.Title)
		assert.NotEmpty(t, evt.Cell)
	}
}
