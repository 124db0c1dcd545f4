package location

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/statefile"
)

// Gazetteer maps normalized aliases ("nyc", "the hague") to canonical place
// names ("New York", "The Hague"). It is read-only after construction.
type Gazetteer struct {
	entries map[string]string
	keys    []string // longest first
}

// NewGazetteer normalizes the alias keys of entries. Blank aliases and blank
// canonical names are dropped. When two raw keys fold to the same alias, the
// one that sorts last wins.
func NewGazetteer(entries map[string]string) *Gazetteer {
	raw := make([]string, 0, len(entries))
	for k := range entries {
		raw = append(raw, k)
	}
	slices.Sort(raw)

	g := &Gazetteer{entries: make(map[string]string, len(entries))}
	for _, k := range raw {
		alias := domain.NormalizeName(k)
		canonical := strings.TrimSpace(entries[k])
		if alias == "" || canonical == "" {
			continue
		}
		g.entries[alias] = canonical
	}

	g.keys = make([]string, 0, len(g.entries))
	for alias := range g.entries {
		g.keys = append(g.keys, alias)
	}
	slices.SortFunc(g.keys, func(a, b string) int {
		if n := cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a)); n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})
	return g
}

// LoadGazetteer reads an alias → canonical name document in JSON or YAML.
func LoadGazetteer(path string) (*Gazetteer, error) {
	var entries map[string]string
	if err := statefile.Load(path, &entries); err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}
	return NewGazetteer(entries), nil
}

// Len returns the number of aliases.
func (g *Gazetteer) Len() int {
	return len(g.entries)
}

// Lookup returns the canonical name for an alias, comparing normalized forms.
func (g *Gazetteer) Lookup(name string) (string, bool) {
	canonical, ok := g.entries[domain.NormalizeName(name)]
	return canonical, ok
}

// Canonical returns the gazetteer name for raw, or raw itself when the alias
// is unknown.
func (g *Gazetteer) Canonical(raw string) string {
	if canonical, ok := g.Lookup(raw); ok {
		return canonical
	}
	return raw
}

// Scan finds the longest alias that occurs in text as a whole word (or run of
// whole words) and returns its canonical name. Matching is case-insensitive.
func (g *Gazetteer) Scan(text string) (string, bool) {
	lowered := domain.NormalizeName(text)
	if lowered == "" {
		return "", false
	}
	for _, alias := range g.keys {
		if containsWord(lowered, alias) {
			return g.entries[alias], true
		}
	}
	return "", false
}

// ValidateEntries reports aliases in a raw gazetteer document that would be
// dropped or shadowed once normalized.
func ValidateEntries(entries map[string]string) []string {
	var problems []string
	seen := make(map[string]string, len(entries))

	raw := make([]string, 0, len(entries))
	for k := range entries {
		raw = append(raw, k)
	}
	slices.Sort(raw)

	for _, k := range raw {
		alias := domain.NormalizeName(k)
		switch {
		case alias == "":
			problems = append(problems, fmt.Sprintf("empty alias %q", k))
			continue
		case strings.TrimSpace(entries[k]) == "":
			problems = append(problems, fmt.Sprintf("alias %q has no canonical name", k))
		}
		if prev, dup := seen[alias]; dup {
			problems = append(problems, fmt.Sprintf("aliases %q and %q both normalize to %q", prev, k, alias))
		}
		seen[alias] = k
	}
	return problems
}

// containsWord reports whether needle occurs in haystack bounded on both sides
// by a non-word rune or the string edge.
func containsWord(haystack, needle string) bool {
	for offset := 0; offset <= len(haystack)-len(needle); {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if wordBoundaryBefore(haystack, start) && wordBoundaryAfter(haystack, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
	return false
}

func wordBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
