package location

import (
	"regexp"
	"strings"
)

var (
	// Dateline: a leading all-caps run ("NEW DELHI") or up to four capitalized
	// words ("Buenos Aires") followed by an em-dash or a comma.
	datelineRe = regexp.MustCompile(`^\s*([A-Z]{2,}(?:\s+[A-Z]{2,})*|[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,3})(?:\s*—|,)`)

	// Place phrase: a locative preposition followed by capitalized words.
	placeRe = regexp.MustCompile(`\b(?:in|at|near|from)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`)
)

// Dateline returns the place named at the start of a wire-style lede,
// e.g. "KYIV — Officials said..." yields "KYIV".
func Dateline(text string) (string, bool) {
	m := datelineRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// PlacePhrase returns the first capitalized phrase introduced by "in", "at",
// "near", or "from", e.g. "clashes near Rafah" yields "Rafah".
func PlacePhrase(text string) (string, bool) {
	m := placeRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
