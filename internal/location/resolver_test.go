package location

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGuesser struct {
	answer string
	err    error
	calls  int
}

func (f *fakeGuesser) GuessLocation(_ context.Context, _ domain.Article) (string, error) {
	f.calls++
	return f.answer, f.err
}

func TestResolve_StrategyOrder(t *testing.T) {
	g := testGazetteer()

	tests := []struct {
		name     string
		article  domain.Article
		want     string
		strategy string
	}{
		{
			name:     "source label",
			article:  domain.Article{Title: "PARIS — Leaders meet", SourceName: "BBC London"},
			want:     "London",
			strategy: StrategySource,
		},
		{
			name:     "dateline substituted",
			article:  domain.Article{Title: "NYC, Storm knocks out power"},
			want:     "New York",
			strategy: StrategyDateline,
		},
		{
			name:     "dateline canonicalized",
			article:  domain.Article{Title: "PARIS — Leaders meet", SourceName: "Reuters"},
			want:     "Paris",
			strategy: StrategyDateline,
		},
		{
			name:     "unknown dateline kept raw",
			article:  domain.Article{Title: "TIMBUKTU — Sand storm"},
			want:     "TIMBUKTU",
			strategy: StrategyDateline,
		},
		{
			name:     "keyword scan",
			article:  domain.Article{Title: "Ceasefire talks", Description: "Negotiators for kyiv and others met."},
			want:     "Kyiv",
			strategy: StrategyKeyword,
		},
		{
			name:     "place phrase",
			article:  domain.Article{Title: "Heavy rain", Description: "Flooding reported near Porto Alegre"},
			want:     "Porto Alegre",
			strategy: StrategyPhrase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(g, nil, discardLogger())
			got, ok := r.Resolve(context.Background(), tt.article)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, tt.strategy, got.Strategy)
		})
	}
}

func TestResolve_ParisDateline(t *testing.T) {
	r := NewResolver(NewGazetteer(map[string]string{"paris": "Paris"}), nil, discardLogger())

	got, ok := r.Resolve(context.Background(), domain.Article{Title: "PARIS — Leaders meet", Description: ""})
	require.True(t, ok)
	assert.Equal(t, "Paris", got.Name)
}

func TestResolve_SourceHitSkipsOtherStrategies(t *testing.T) {
	guesser := &fakeGuesser{answer: "Berlin"}
	r := NewResolver(testGazetteer(), guesser, discardLogger())

	calls := map[string]int{}
	for i := range r.strategies {
		s := r.strategies[i]
		r.strategies[i].resolve = func(ctx context.Context, a domain.Article, text string) (string, bool) {
			calls[s.name]++
			return s.resolve(ctx, a, text)
		}
	}

	got, ok := r.Resolve(context.Background(), domain.Article{
		Title:       "PARIS — Leaders meet in Rome",
		Description: "kyiv delegation attends",
		SourceName:  "nyc",
	})
	require.True(t, ok)
	assert.Equal(t, "New York", got.Name)
	assert.Equal(t, map[string]int{StrategySource: 1}, calls)
	assert.Zero(t, guesser.calls)
}

func TestResolve_OracleFallback(t *testing.T) {
	article := domain.Article{Title: "markets wobble", Description: "investors are nervous"}

	t.Run("accepted answer", func(t *testing.T) {
		guesser := &fakeGuesser{answer: "\"Frankfurt.\"\nBecause the article mentions the ECB."}
		r := NewResolver(testGazetteer(), guesser, discardLogger())

		got, ok := r.Resolve(context.Background(), article)
		require.True(t, ok)
		assert.Equal(t, "Frankfurt", got.Name)
		assert.Equal(t, StrategyOracle, got.Strategy)
		assert.Equal(t, 1, guesser.calls)
	})

	t.Run("degenerate answer", func(t *testing.T) {
		guesser := &fakeGuesser{answer: "Global"}
		r := NewResolver(testGazetteer(), guesser, discardLogger())

		_, ok := r.Resolve(context.Background(), article)
		assert.False(t, ok)
	})

	t.Run("oracle error", func(t *testing.T) {
		guesser := &fakeGuesser{err: errors.New("timeout")}
		r := NewResolver(testGazetteer(), guesser, discardLogger())

		_, ok := r.Resolve(context.Background(), article)
		assert.False(t, ok)
	})

	t.Run("disabled", func(t *testing.T) {
		r := NewResolver(testGazetteer(), nil, discardLogger())
		_, ok := r.Resolve(context.Background(), article)
		assert.False(t, ok)
	})
}

func TestResolve_BlankCanonicalFallsThrough(t *testing.T) {
	g := NewGazetteer(map[string]string{"new york": "", "york": "York"})
	r := NewResolver(g, nil, discardLogger())

	got, ok := r.Resolve(context.Background(), domain.Article{Title: "flooding hits New York suburbs"})
	require.True(t, ok)
	assert.Equal(t, Resolution{Name: "York", Strategy: StrategyKeyword}, got)
}

func TestResolve_EmptyArticle(t *testing.T) {
	r := NewResolver(nil, nil, discardLogger())
	_, ok := r.Resolve(context.Background(), domain.Article{})
	assert.False(t, ok)
}

func TestAcceptGuess(t *testing.T) {
	tests := []struct {
		answer string
		want   string
		ok     bool
	}{
		{"Nairobi", "Nairobi", true},
		{"  'Lagos'.  ", "Lagos", true},
		{"Gaza City\nexplanation follows", "Gaza City", true},
		{"UK", "", false},
		{"", "", false},
		{"Worldwide", "", false},
		{"The Internet", "", false},
		{"unknown location", "", false},
		{"Earth", "", false},
	}
	for _, tt := range tests {
		got, ok := AcceptGuess(tt.answer)
		assert.Equal(t, tt.ok, ok, tt.answer)
		assert.Equal(t, tt.want, got, tt.answer)
	}
}
