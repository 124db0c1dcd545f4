package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job label for one-shot runs.
const PushJob = "geomonitor"

// Push sends every metric in g to the Pushgateway at url, grouped by the
// command that produced them. Collectors pushed for a group replace the
// previous push for that group.
func Push(ctx context.Context, url, command string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	err := push.New(url, PushJob).
		Gatherer(g).
		Grouping("command", command).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
