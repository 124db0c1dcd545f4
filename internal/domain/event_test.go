package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"zulu suffix", "2024-04-26T15:10:00Z", want},
		{"numeric offset", "2024-04-26T17:10:00+02:00", want},
		{"fractional seconds", "2024-04-26T15:10:00.000Z", want},
		{"naive is UTC", "2024-04-26T15:10:00", want},
		{"naive with fraction", "2024-04-26T15:10:00.5", want.Add(500 * time.Millisecond)},
		{"space separated", "2024-04-26 15:10:00", want},
		{"surrounding whitespace", "  2024-04-26T15:10:00Z ", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		for _, s := range []string{"", "yesterday", "26/04/2024", "2024-04-26"} {
			_, err := ParseTimestamp(s)
			assert.Error(t, err, s)
		}
	})
}

func TestEventKey(t *testing.T) {
	runAt := time.Unix(1714144200, 0)
	assert.Equal(t, "news_1714144200_0", EventKey(NewsPrefix, runAt, 0))
	assert.Equal(t, "hurricane_1714144200_12", EventKey(HurricanePrefix, runAt, 12))
}

func TestParseTopic(t *testing.T) {
	for _, topic := range Topics {
		got, ok := ParseTopic(string(topic))
		assert.True(t, ok)
		assert.Equal(t, topic, got)
	}

	_, ok := ParseTopic("sports")
	assert.False(t, ok)
	_, ok = ParseTopic("Finance")
	assert.False(t, ok, "topics are lowercase")
}

func TestClassificationValid(t *testing.T) {
	assert.True(t, DefaultClassification().Valid())
	assert.True(t, Classification{Topic: TopicFinance, Importance: 5}.Valid())
	assert.False(t, Classification{Topic: TopicFinance, Importance: 0}.Valid())
	assert.False(t, Classification{Topic: TopicFinance, Importance: 6}.Valid())
	assert.False(t, Classification{Topic: "sports", Importance: 3}.Valid())
}

func TestDefaultClassification(t *testing.T) {
	c := DefaultClassification()
	assert.True(t, c.Show)
	assert.Equal(t, TopicOther, c.Topic)
	assert.Equal(t, 2, c.Importance)
}

func TestEventJSONFieldNames(t *testing.T) {
	evt := Event{
		Title:       "Quake",
		Description: "Strong quake",
		Source:      "Reuters",
		URL:         "https://example.com/q",
		Lat:         35.68,
		Lon:         139.69,
		Timestamp:   "2024-04-26T15:10:00Z",
		Topic:       TopicDisaster,
		Importance:  4,
	}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "Reuters", fields["type"])
	assert.Equal(t, "disaster", fields["topic"])
	assert.InDelta(t, 35.68, fields["lat"], 1e-9)
	assert.NotContains(t, fields, "h3", "empty cell is omitted")
}

func TestDecodeEventSet(t *testing.T) {
	t.Run("null body", func(t *testing.T) {
		events, dropped, err := DecodeEventSet([]byte("null"))
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.Zero(t, dropped)
	})

	t.Run("empty body", func(t *testing.T) {
		events, _, err := DecodeEventSet(nil)
		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})

	t.Run("skips malformed entries", func(t *testing.T) {
		body := `{
			"news_1_0": {"title":"ok","lat":1,"lon":2,"timestamp":"2024-04-26T15:10:00Z","topic":"other","importance":2},
			"news_1_1": "not an event",
			"news_1_2": {"title":"bad","lat":"north"},
			"news_1_3": null
		}`
		events, dropped, err := DecodeEventSet([]byte(body))
		require.NoError(t, err)
		assert.Len(t, events, 1)
		assert.Equal(t, 3, dropped)
		assert.Equal(t, "ok", events["news_1_0"].Title)
	})

	t.Run("rejects non-object document", func(t *testing.T) {
		_, _, err := DecodeEventSet([]byte(`[1,2,3]`))
		assert.Error(t, err)
	})
}

func TestNowUsesPackageClock(t *testing.T) {
	fixed := time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, fixed, Now())
}
