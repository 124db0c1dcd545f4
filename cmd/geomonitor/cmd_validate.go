package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/geomonitor-etl/internal/classify"
	"github.com/couchcryptid/geomonitor-etl/internal/config"
	"github.com/couchcryptid/geomonitor-etl/internal/domain"
	"github.com/couchcryptid/geomonitor-etl/internal/geocode"
	"github.com/couchcryptid/geomonitor-etl/internal/location"
	"github.com/couchcryptid/geomonitor-etl/internal/statefile"
)

var errValidationFailed = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the gazetteer and the local caches for bad entries",
	Long: `
validate loads the gazetteer, the geocode cache and the classification cache
from their configured paths and reports entries the jobs would mishandle:
unnormalized or empty gazetteer keys, non-finite or out-of-range points, and
verdicts outside the topic set or the 1-5 importance scale. A missing file is
reported as empty, not as a failure.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		paths := config.LoadStatePaths()
		applyPathFlags(cmd, &paths)
		phases := []*phase{
			validateGazetteer(paths.GazetteerPath),
			validateGeocache(paths.GeocachePath),
			validateClassifyCache(paths.ClassifyCachePath),
		}
		if !report(cmd.OutOrStdout(), phases) {
			return errValidationFailed
		}
		return nil
	},
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	entries int
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validateGazetteer(path string) *phase {
	p := &phase{name: "Gazetteer (" + path + ")"}
	var entries map[string]string
	if err := statefile.Load(path, &entries); err != nil {
		if !statefile.IsNotExist(err) {
			p.errorf("%v", err)
		}
		return p
	}
	p.entries = len(entries)
	p.errors = append(p.errors, location.ValidateEntries(entries)...)
	return p
}

func validateGeocache(path string) *phase {
	p := &phase{name: "Geocode cache (" + path + ")"}
	entries, err := statefile.Open[domain.GeoPoint](path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	cache := geocode.NewCache(entries, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.entries = cache.Len()
	p.errors = append(p.errors, cache.Problems()...)
	return p
}

func validateClassifyCache(path string) *phase {
	p := &phase{name: "Classification cache (" + path + ")"}
	cache, err := statefile.Open[domain.Classification](path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	p.entries = cache.Len()
	p.errors = append(p.errors, classify.CacheProblems(cache)...)
	return p
}

// report prints a summary table followed by the detailed problems, and
// returns whether every phase passed.
func report(w io.Writer, phases []*phase) bool {
	fmt.Fprintln(w, "=== Geomonitor State Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-60s %6d entries  %s\n", p.name, p.entries, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}
