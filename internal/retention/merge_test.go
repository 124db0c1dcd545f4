package retention

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
)

const (
	twoDays   = 48 * time.Hour
	threeDays = 72 * time.Hour
)

var runAt = time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventAt(title string, ts time.Time) domain.Event {
	return domain.Event{
		Title:      title,
		Source:     "Reuters",
		Lat:        1,
		Lon:        2,
		Timestamp:  domain.FormatTimestamp(ts),
		Topic:      domain.TopicOther,
		Importance: 2,
	}
}

func TestMerge(t *testing.T) {
	t.Run("drops expired and keeps recent", func(t *testing.T) {
		existing := domain.EventSet{
			"old":    eventAt("old", runAt.Add(-threeDays)),
			"recent": eventAt("recent", runAt.Add(-time.Hour)),
		}
		fresh := domain.EventSet{"new": eventAt("new", runAt)}

		got := Merge(existing, fresh, twoDays, runAt)
		assert.ElementsMatch(t, []string{"recent", "new"}, keys(got))
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		existing := domain.EventSet{"edge": eventAt("edge", runAt.Add(-twoDays))}
		got := Merge(existing, nil, twoDays, runAt)
		assert.Contains(t, got, "edge")
	})

	t.Run("fresh wins on collision", func(t *testing.T) {
		existing := domain.EventSet{"k": eventAt("stale copy", runAt.Add(-time.Hour))}
		fresh := domain.EventSet{"k": eventAt("fresh copy", runAt)}

		got := Merge(existing, fresh, twoDays, runAt)
		assert.Equal(t, "fresh copy", got["k"].Title)
	})

	t.Run("unparseable timestamps are dropped", func(t *testing.T) {
		bad := eventAt("bad", runAt)
		bad.Timestamp = "last tuesday"
		missing := eventAt("missing", runAt)
		missing.Timestamp = ""

		got := Merge(domain.EventSet{"bad": bad, "missing": missing}, nil, twoDays, runAt)
		assert.Empty(t, got)
	})

	t.Run("naive and offset timestamps", func(t *testing.T) {
		naive := eventAt("naive", runAt)
		naive.Timestamp = runAt.Add(-time.Hour).Format("2006-01-02T15:04:05")
		offset := eventAt("offset", runAt)
		offset.Timestamp = runAt.Add(-time.Hour).In(time.FixedZone("CEST", 2*3600)).Format(time.RFC3339)

		got := Merge(domain.EventSet{"naive": naive, "offset": offset}, nil, twoDays, runAt)
		assert.Len(t, got, 2)
	})

	t.Run("future timestamps are kept", func(t *testing.T) {
		existing := domain.EventSet{"future": eventAt("future", runAt.Add(6*time.Hour))}
		assert.Contains(t, Merge(existing, nil, twoDays, runAt), "future")
	})

	t.Run("empty fresh batch over fresh store is unchanged", func(t *testing.T) {
		existing := domain.EventSet{
			"a": eventAt("a", runAt.Add(-time.Hour)),
			"b": eventAt("b", runAt.Add(-2*time.Hour)),
		}
		got := Merge(existing, domain.EventSet{}, twoDays, runAt)
		if diff := cmp.Diff(existing, got); diff != "" {
			t.Errorf("merge changed a fresh-only store (-want +got):\n%s", diff)
		}
	})

	t.Run("stale store plus batch is exactly the batch", func(t *testing.T) {
		existing := domain.EventSet{"old": eventAt("old", runAt.Add(-threeDays))}
		fresh := domain.EventSet{
			"n1": eventAt("n1", runAt),
			"n2": eventAt("n2", runAt),
		}
		got := Merge(existing, fresh, twoDays, runAt)
		if diff := cmp.Diff(fresh, got); diff != "" {
			t.Errorf("unexpected merge result (-want +got):\n%s", diff)
		}
	})

	t.Run("does not mutate inputs", func(t *testing.T) {
		existing := domain.EventSet{"old": eventAt("old", runAt.Add(-threeDays))}
		fresh := domain.EventSet{"n": eventAt("n", runAt)}
		Merge(existing, fresh, twoDays, runAt)
		assert.Len(t, existing, 1)
		assert.Len(t, fresh, 1)
	})
}

// memStore round-trips collections through the stored JSON form so tests see
// exactly what a remote store would return.
type memStore struct {
	docs     map[string][]byte
	fetchErr error
	writeErr error
	writes   int
}

func newMemStore() *memStore {
	return &memStore{docs: map[string][]byte{}}
}

func (s *memStore) Fetch(_ context.Context, collection string) (domain.EventSet, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	events, _, err := domain.DecodeEventSet(s.docs[collection])
	return events, err
}

func (s *memStore) Replace(_ context.Context, collection string, events domain.EventSet) error {
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	s.docs[collection] = data
	return nil
}

func TestMergerPush_TwoRunsThreeDaysApart(t *testing.T) {
	clk := clockwork.NewFakeClockAt(runAt)
	domain.SetClock(clk)
	t.Cleanup(func() { domain.SetClock(nil) })

	store := newMemStore()
	m := NewMerger(store, discardLogger(), observability.NewMetricsForTesting())

	first := m.Push(context.Background(), "events", domain.EventSet{"e1": eventAt("E1", runAt)}, twoDays)
	require.True(t, first.Written)
	assert.Equal(t, 1, first.Total)

	clk.Advance(threeDays)
	second := m.Push(context.Background(), "events", domain.EventSet{"e2": eventAt("E2", clk.Now())}, twoDays)
	require.True(t, second.Written)
	assert.Equal(t, 1, second.Expired)

	stored, err := store.Fetch(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, []string{"e2"}, keys(stored))
}

func TestMergerPush_RoundTripsEvents(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(runAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	store := newMemStore()
	m := NewMerger(store, discardLogger(), observability.NewMetricsForTesting())

	evt := domain.Event{
		Title:       "Quake",
		Description: "Strong quake near Tokyo",
		Source:      "NHK",
		URL:         "https://example.com/quake",
		Lat:         35.68,
		Lon:         139.69,
		Timestamp:   "2024-04-26T11:30:00Z",
		Topic:       domain.TopicDisaster,
		Importance:  5,
		Cell:        "842f5a3ffffffff",
	}
	m.Push(context.Background(), "events", domain.EventSet{"news_1_0": evt}, twoDays)

	stored, err := store.Fetch(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, evt, stored["news_1_0"])
}

func TestMergerPush_FetchFailureStartsEmpty(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(runAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	store := newMemStore()
	store.fetchErr = errors.New("connection reset")
	m := NewMerger(store, discardLogger(), observability.NewMetricsForTesting())

	res := m.Push(context.Background(), "events", domain.EventSet{"n": eventAt("n", runAt)}, twoDays)
	assert.True(t, res.Written)
	assert.Zero(t, res.Existing)
	assert.Equal(t, 1, res.Total)
}

func TestMergerPush_WriteFailureIsReported(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(runAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	store := newMemStore()
	store.writeErr = errors.New("403 forbidden")
	metrics := observability.NewMetricsForTesting()
	m := NewMerger(store, discardLogger(), metrics)

	res := m.Push(context.Background(), "events", domain.EventSet{"n": eventAt("n", runAt)}, twoDays)
	assert.False(t, res.Written)
	assert.Equal(t, 1, store.writes, "no retry")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StoreWrites.WithLabelValues("events", "error")), 0)
}

func keys(events domain.EventSet) []string {
	out := make([]string, 0, len(events))
	for k := range events {
		out = append(out, k)
	}
	return out
}
