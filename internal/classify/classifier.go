// Package classify labels news articles with a show flag, a topic, and an
// importance score using a hosted language model, and asks the same model
// for a best-guess location when local extraction finds nothing.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/observability"
	"github.com/couchcryptid/geomonitor-etl/internal/statefile"
)

// FingerprintLength is the number of characters of title+description that
// identify an article in the classification cache.
const FingerprintLength = 2000

const classifyPrompt = `You classify short news items for a world map of current events.
Given a title and description, answer with three fields:
1. show: true or false. Should the story appear on a global map of real-world events?
2. topic: exactly one of [geopolitics, finance, tech, disaster, social, science, other].
3. importance on a 1-5 scale:
   1 = local or provincial news
   2 = regional or national but minor
   3 = national or continental significance
   4 = important international issue
   5 = major global event
Reply with this line and nothing else:
show=<true|false>; topic=<topic>; importance=<1-5>
Include world affairs, diplomacy, defense, conflicts, the economy, technology and disasters.
Exclude entertainment, celebrities, lifestyle and recipes.`

const locationPrompt = `Given a news title and description, name ONE city or country the story is about,
for example 'Moscow', 'Beijing' or 'New York, USA'. Reply with the place name only.`

const (
	classifyMaxTokens = 40
	locationMaxTokens = 12
)

// Oracle is a chat-style language model endpoint.
type Oracle interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Options controls which oracle operations are active.
type Options struct {
	ClassifyEnabled bool
	LocationEnabled bool
	ClassifyTimeout time.Duration
	LocationTimeout time.Duration
}

// Classifier wraps an Oracle with a persistent verdict cache.
type Classifier struct {
	oracle  Oracle
	cache   *statefile.Map[domain.Classification]
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Classifier. A nil oracle disables both operations.
func New(oracle Oracle, cache *statefile.Map[domain.Classification], opts Options, logger *slog.Logger, metrics *observability.Metrics) *Classifier {
	if oracle == nil {
		opts.ClassifyEnabled = false
		opts.LocationEnabled = false
	}
	if cache == nil {
		cache = statefile.NewMemory[domain.Classification]()
	}
	return &Classifier{oracle: oracle, cache: cache, opts: opts, logger: logger, metrics: metrics}
}

// OpenCache loads the classification cache at path, starting empty when the
// file is missing or unreadable.
func OpenCache(path string, logger *slog.Logger) *statefile.Map[domain.Classification] {
	cache, err := statefile.Open[domain.Classification](path)
	if err != nil {
		logger.Warn("classification cache unreadable, starting empty", "path", path, "error", err)
	}
	return cache
}

// Fingerprint is the cache key for an article: trimmed title followed by
// trimmed description, cut to FingerprintLength characters.
func Fingerprint(a domain.Article) string {
	s := strings.TrimSpace(a.Title) + strings.TrimSpace(a.Description)
	runes := []rune(s)
	if len(runes) > FingerprintLength {
		runes = runes[:FingerprintLength]
	}
	return string(runes)
}

// Classify returns the cached verdict for the article if there is one, the
// default when classification is off, and otherwise asks the oracle. Oracle
// failures return the default and are not cached.
func (c *Classifier) Classify(ctx context.Context, a domain.Article) domain.Classification {
	key := Fingerprint(a)
	if cached, ok := c.cache.Get(key); ok {
		c.metrics.ClassifyCache.WithLabelValues("hit").Inc()
		return cached
	}
	c.metrics.ClassifyCache.WithLabelValues("miss").Inc()

	if !c.opts.ClassifyEnabled {
		c.metrics.ClassifyRequests.WithLabelValues("disabled").Inc()
		return domain.DefaultClassification()
	}

	reply, err := c.complete(ctx, c.opts.ClassifyTimeout, classifyPrompt, userMessage(a), classifyMaxTokens)
	if err != nil {
		c.metrics.ClassifyRequests.WithLabelValues("error").Inc()
		c.logger.Warn("classification failed", "title", a.Title, "error", err)
		return domain.DefaultClassification()
	}
	c.metrics.ClassifyRequests.WithLabelValues("success").Inc()

	result := ParseReply(reply)
	c.logger.Debug("classified", "title", a.Title, "reply", reply,
		"show", result.Show, "topic", result.Topic, "importance", result.Importance)

	if err := c.cache.Put(key, result); err != nil {
		c.logger.Error("classification cache write failed", "path", c.cache.Path(), "error", err)
	}
	return result
}

// GuessLocation asks the oracle for the place an article is about. It returns
// "" without error when the fallback is disabled.
func (c *Classifier) GuessLocation(ctx context.Context, a domain.Article) (string, error) {
	if !c.opts.LocationEnabled {
		return "", nil
	}
	reply, err := c.complete(ctx, c.opts.LocationTimeout, locationPrompt, userMessage(a), locationMaxTokens)
	if err != nil {
		return "", fmt.Errorf("guess location: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func (c *Classifier) complete(ctx context.Context, timeout time.Duration, system, user string, maxTokens int) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.oracle.Complete(ctx, system, user, maxTokens)
}

func userMessage(a domain.Article) string {
	return fmt.Sprintf("Title: %s\nDescription: %s", strings.TrimSpace(a.Title), strings.TrimSpace(a.Description))
}

// CacheProblems lists cached verdicts outside the accepted ranges.
func CacheProblems(cache *statefile.Map[domain.Classification]) []string {
	snap := cache.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var problems []string
	for _, k := range keys {
		if v := snap[k]; !v.Valid() {
			problems = append(problems, fmt.Sprintf("%q: topic %q importance %d", truncate(k, 60), v.Topic, v.Importance))
		}
		if len([]rune(k)) > FingerprintLength {
			problems = append(problems, fmt.Sprintf("%q: fingerprint longer than %d characters", truncate(k, 60), FingerprintLength))
		}
	}
	return problems
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
