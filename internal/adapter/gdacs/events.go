package gdacs

import (
	"strings"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

const (
	sourceLabel  = "Hurricane"
	reportURL    = "https://www.gdacs.org/report.aspx?eventtype=TC&eventid="
	unnamedStorm = "Unnamed Storm"
)

// ToEvents maps alerts to disaster events keyed "hurricane_<run seconds>_<i>".
// Every event is stamped with runAt; red and orange alerts rank 5, all
// others 4.
func ToEvents(alerts []Alert, runAt time.Time) domain.EventSet {
	events := make(domain.EventSet, len(alerts))
	for i, a := range alerts {
		point := domain.GeoPoint{Lat: a.Lat, Lon: a.Lon}
		if !point.Valid() {
			continue
		}
		events[domain.EventKey(domain.HurricanePrefix, runAt, i)] = domain.Event{
			Title:       "🌀 " + stormName(a),
			Description: describe(a),
			Source:      sourceLabel,
			URL:         reportLink(a),
			Lat:         a.Lat,
			Lon:         a.Lon,
			Timestamp:   domain.FormatTimestamp(runAt),
			Topic:       domain.TopicDisaster,
			Importance:  importance(a.AlertLevel),
			Cell:        point.Cell(),
		}
	}
	return events
}

func stormName(a Alert) string {
	switch {
	case strings.TrimSpace(a.Name) != "":
		return strings.TrimSpace(a.Name)
	case a.ID != "":
		return a.ID
	default:
		return unnamedStorm
	}
}

func describe(a Alert) string {
	if a.FromDate == "" {
		return "Active tropical cyclone"
	}
	return a.FromDate + " → " + a.ToDate
}

func reportLink(a Alert) string {
	if a.Link != "" {
		return a.Link
	}
	return reportURL + a.ID
}

func importance(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "red", "orange":
		return 5
	default:
		return 4
	}
}
