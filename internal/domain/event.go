package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Article is a news item as returned by the search provider, with HTML
// already stripped from the description.
type Article struct {
	Title       string
	Description string
	SourceName  string
	PublishedAt string
	URL         string
}

// Text is the title and description joined by a single space. Location
// extraction runs against this string.
func (a Article) Text() string {
	return a.Title + " " + a.Description
}

// Topic is the closed set of subjects an article can be filed under.
type Topic string

const (
	TopicGeopolitics Topic = "geopolitics"
	TopicFinance     Topic = "finance"
	TopicTech        Topic = "tech"
	TopicDisaster    Topic = "disaster"
	TopicSocial      Topic = "social"
	TopicScience     Topic = "science"
	TopicOther       Topic = "other"
)

// Topics lists every valid topic in display order.
var Topics = []Topic{
	TopicGeopolitics,
	TopicFinance,
	TopicTech,
	TopicDisaster,
	TopicSocial,
	TopicScience,
	TopicOther,
}

// ParseTopic maps a lowercase label to a Topic. Unknown labels report false.
func ParseTopic(s string) (Topic, bool) {
	for _, t := range Topics {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

const (
	ImportanceMin     = 1
	ImportanceMax     = 5
	ImportanceDefault = 2
)

// Classification is the outcome of judging an article.
type Classification struct {
	Show       bool  `json:"show"`
	Topic      Topic `json:"topic"`
	Importance int   `json:"importance"`
}

// DefaultClassification is used whenever no oracle verdict is available.
func DefaultClassification() Classification {
	return Classification{Show: true, Topic: TopicOther, Importance: ImportanceDefault}
}

// Valid reports whether the classification falls inside the accepted ranges.
func (c Classification) Valid() bool {
	if _, ok := ParseTopic(string(c.Topic)); !ok {
		return false
	}
	return c.Importance >= ImportanceMin && c.Importance <= ImportanceMax
}

// Event is the record persisted to the shared datastore and read by the map
// front-end. Field names on the wire are fixed by the front-end.
type Event struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Source      string  `json:"type"`
	URL         string  `json:"url"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timestamp   string  `json:"timestamp"`
	Topic       Topic   `json:"topic"`
	Importance  int     `json:"importance"`
	Cell        string  `json:"h3,omitempty"`
}

// Time parses the event timestamp. See [ParseTimestamp].
func (e Event) Time() (time.Time, error) {
	return ParseTimestamp(e.Timestamp)
}

// EventSet is a keyed collection of events, the unit of storage.
type EventSet map[string]Event

// Datastore collection names.
const (
	NewsCollection     = "events"
	DisasterCollection = "hurricanes"
)

// Key prefixes for the two collections.
const (
	NewsPrefix      = "news"
	HurricanePrefix = "hurricane"
)

// EventKey builds "<prefix>_<unix seconds>_<index>".
func EventKey(prefix string, runAt time.Time, index int) string {
	return fmt.Sprintf("%s_%d_%d", prefix, runAt.Unix(), index)
}

// timestampLayouts are tried in order. The naive layouts carry no zone and
// parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 values with an offset or a "Z" suffix and
// naive ISO 8601 values, which are taken to be UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp renders t the way imported events are stamped.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DecodeEventSet parses a stored collection document. A JSON null or empty
// body yields an empty set. Entries that are not event objects are skipped
// and counted in dropped.
func DecodeEventSet(data []byte) (EventSet, int, error) {
	events := EventSet{}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return events, 0, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode event set: %w", err)
	}

	dropped := 0
	for key, msg := range raw {
		var evt Event
		if string(msg) == "null" {
			dropped++
			continue
		}
		if err := json.Unmarshal(msg, &evt); err != nil {
			dropped++
			continue
		}
		events[key] = evt
	}
	return events, dropped, nil
}
