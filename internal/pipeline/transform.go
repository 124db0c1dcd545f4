package pipeline

import (
	"strings"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// DefaultDenylist holds soft-news terms that are never worth an oracle call.
var DefaultDenylist = []string{
	"recipe",
	"fashion",
	"celebrity",
	"movie",
	"music",
	"holiday",
	"lifestyle",
	"sports",
}

// Denied reports the first denylist term found, case-insensitively, in the
// article title or description.
func Denied(a domain.Article, denylist []string) (string, bool) {
	text := strings.ToLower(a.Title + " " + a.Description)
	for _, term := range denylist {
		if term != "" && strings.Contains(text, strings.ToLower(term)) {
			return term, true
		}
	}
	return "", false
}

// NewEvent assembles the stored event for a located article. Articles with
// no publication time are stamped with runAt.
func NewEvent(a domain.Article, cls domain.Classification, point domain.GeoPoint, runAt time.Time) domain.Event {
	ts := strings.TrimSpace(a.PublishedAt)
	if ts == "" {
		ts = domain.FormatTimestamp(runAt)
	}
	return domain.Event{
		Title:       a.Title,
		Description: a.Description,
		Source:      a.SourceName,
		URL:         a.URL,
		Lat:         point.Lat,
		Lon:         point.Lon,
		Timestamp:   ts,
		Topic:       cls.Topic,
		Importance:  cls.Importance,
		Cell:        point.Cell(),
	}
}
