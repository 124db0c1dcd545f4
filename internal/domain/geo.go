package domain

import (
	"strings"

	"github.com/uber/h3-go/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CellResolution is the H3 resolution attached to events (~1,770 km² cells),
// coarse enough for the front-end to cluster markers by region.
const CellResolution = 4

// GeoPoint is a WGS 84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within latitude/longitude bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Cell returns the H3 index of the point at CellResolution, or "" when the
// point cannot be indexed.
func (p GeoPoint) Cell() string {
	if !p.Valid() {
		return ""
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), CellResolution)
	if err != nil {
		return ""
	}
	return cell.String()
}

// NormalizeName folds a place name into its comparison form: NFC composed,
// trimmed, and lowercased with Unicode rules.
func NormalizeName(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	return cases.Lower(language.Und).String(s)
}
