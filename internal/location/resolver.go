// Package location pulls a place name out of a news article.
//
// Strategies run in a fixed order and the first one to produce a name wins:
// the article's source label, a wire-style dateline, a gazetteer keyword scan,
// a locative phrase ("in Gaza"), and finally an optional remote oracle.
// Everything except the oracle is local and deterministic.
package location

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

// Strategy names, also used as metric labels.
const (
	StrategySource   = "source"
	StrategyDateline = "dateline"
	StrategyKeyword  = "keyword"
	StrategyPhrase   = "phrase"
	StrategyOracle   = "oracle"
)

// Guesser asks a remote model for the single most relevant place in an
// article. Implementations return "" when they have no answer.
type Guesser interface {
	GuessLocation(ctx context.Context, article domain.Article) (string, error)
}

// Resolution is a located article: the place name and the strategy that
// produced it.
type Resolution struct {
	Name     string
	Strategy string
}

type strategy struct {
	name    string
	resolve func(ctx context.Context, article domain.Article, text string) (string, bool)
}

// Resolver runs the extraction strategies against an article.
type Resolver struct {
	gazetteer  *Gazetteer
	guesser    Guesser
	logger     *slog.Logger
	strategies []strategy
}

// NewResolver builds a resolver over the given gazetteer. A nil guesser
// disables the oracle fallback.
func NewResolver(g *Gazetteer, guesser Guesser, logger *slog.Logger) *Resolver {
	if g == nil {
		g = NewGazetteer(nil)
	}
	r := &Resolver{gazetteer: g, guesser: guesser, logger: logger}
	r.strategies = []strategy{
		{StrategySource, r.fromSource},
		{StrategyDateline, r.fromDateline},
		{StrategyKeyword, r.fromKeyword},
		{StrategyPhrase, r.fromPhrase},
		{StrategyOracle, r.fromOracle},
	}
	return r
}

// Resolve returns the first place name any strategy finds. Later strategies
// are not consulted once one succeeds.
func (r *Resolver) Resolve(ctx context.Context, article domain.Article) (Resolution, bool) {
	text := article.Text()
	for _, s := range r.strategies {
		if name, ok := s.resolve(ctx, article, text); ok && name != "" {
			return Resolution{Name: name, Strategy: s.name}, true
		}
	}
	return Resolution{}, false
}

// fromSource treats a source label that is itself a known place (a regional
// outlet named after its city) as the location.
func (r *Resolver) fromSource(_ context.Context, article domain.Article, _ string) (string, bool) {
	if strings.TrimSpace(article.SourceName) == "" {
		return "", false
	}
	return r.gazetteer.Lookup(article.SourceName)
}

func (r *Resolver) fromDateline(_ context.Context, _ domain.Article, text string) (string, bool) {
	raw, ok := Dateline(text)
	if !ok {
		return "", false
	}
	return r.gazetteer.Canonical(raw), true
}

func (r *Resolver) fromKeyword(_ context.Context, _ domain.Article, text string) (string, bool) {
	return r.gazetteer.Scan(text)
}

func (r *Resolver) fromPhrase(_ context.Context, _ domain.Article, text string) (string, bool) {
	raw, ok := PlacePhrase(text)
	if !ok {
		return "", false
	}
	return r.gazetteer.Canonical(raw), true
}

func (r *Resolver) fromOracle(ctx context.Context, article domain.Article, _ string) (string, bool) {
	if r.guesser == nil {
		return "", false
	}
	answer, err := r.guesser.GuessLocation(ctx, article)
	if err != nil {
		r.logger.Warn("location oracle failed", "title", article.Title, "error", err)
		return "", false
	}
	name, ok := AcceptGuess(answer)
	if !ok && answer != "" {
		r.logger.Debug("location oracle answer rejected", "title", article.Title, "answer", answer)
	}
	return name, ok
}

// genericPlaces are answers that name no geocodable place.
var genericPlaces = []string{"world", "global", "unknown", "earth", "internet", "none", "n/a"}

// AcceptGuess cleans an oracle answer and rejects ones that are too short or
// too vague to geocode. Only the first line is considered.
func AcceptGuess(answer string) (string, bool) {
	line, _, _ := strings.Cut(answer, "\n")
	line = strings.Trim(line, " \t\r\"'`“”‘’.")

	if utf8.RuneCountInString(line) < 3 {
		return "", false
	}
	lowered := strings.ToLower(line)
	for _, generic := range genericPlaces {
		if strings.Contains(lowered, generic) {
			return "", false
		}
	}
	return line, true
}
