// Package pipeline drives one end-to-end geocoding run: work-set
// computation against the cache, sequential resolution, merge, persist
// and failure partitioning.
package pipeline

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/cache"
	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

// FailureReporter persists the failed addresses of a run for manual
// follow-up.
type FailureReporter interface {
	WriteFailures(ctx context.Context, failures []cache.Entry) error
}

// RunReport summarizes one run.
type RunReport struct {
	RunID    string
	Total    int
	Cached   int
	Counts   map[geocode.Source]int
	Failures []cache.Entry
}

// RunResult carries the final table and the report for one run.
type RunResult struct {
	// Table holds every successfully resolved address, cached and fresh,
	// deduplicated by address string.
	Table  []cache.Entry
	Report RunReport
}

// Option configures the Geocoder.
type Option func(*Geocoder)

// WithProgress enables a progress bar over the work set.
func WithProgress(enabled bool) Option {
	return func(g *Geocoder) {
		g.progress = enabled
	}
}

// WithFailureReporter sets the artifact writer for failed addresses.
func WithFailureReporter(r FailureReporter) Option {
	return func(g *Geocoder) {
		g.reporter = r
	}
}

// Geocoder orchestrates a geocoding run.
type Geocoder struct {
	resolver *geocode.Resolver
	store    cache.Store
	reporter FailureReporter
	progress bool
	log      *zap.Logger
}

// New creates a Geocoder using the given lookup client and cache store.
func New(client geocode.Client, store cache.Store, opts ...Option) *Geocoder {
	g := &Geocoder{
		resolver: geocode.NewResolver(client),
		store:    store,
		log:      zap.L().With(zap.String("component", "pipeline.geocoder")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run geocodes every address not already cached as a success, persists
// the merged result set and returns the final table. Only cache I/O
// errors abort the run; per-address failures are collected and reported.
func (g *Geocoder) Run(ctx context.Context, addrs []string) (*RunResult, error) {
	runID := uuid.New().String()
	log := g.log.With(zap.String("run_id", runID))

	cached, err := g.store.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load cache")
	}
	successes := cache.Successes(cached)

	workSet := computeWorkSet(addrs, successes)
	log.Info("computed work set",
		zap.Int("input", len(addrs)),
		zap.Int("cached", len(addrs)-len(workSet)),
		zap.Int("to_geocode", len(workSet)),
	)

	report := RunReport{
		RunID:  runID,
		Total:  len(addrs),
		Cached: len(addrs) - len(workSet),
		Counts: make(map[geocode.Source]int),
	}

	if len(workSet) == 0 {
		log.Info("all addresses cached, skipping lookups")
		return &RunResult{Table: successes, Report: report}, nil
	}

	var bar *progressbar.ProgressBar
	if g.progress {
		bar = progressbar.NewOptions(len(workSet),
			progressbar.OptionSetDescription("Geocoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	// Sequential on purpose: the lookup client serializes outbound
	// requests and the provider's usage policy forbids parallel queries.
	fresh := make([]cache.Entry, 0, len(workSet))
	for _, addr := range workSet {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "pipeline: run aborted")
		}

		outcome := g.resolver.Resolve(ctx, addr)
		entry := cache.FromOutcome(outcome)
		fresh = append(fresh, entry)
		report.Counts[outcome.Source]++
		if !entry.Success() {
			report.Failures = append(report.Failures, entry)
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	merged := cache.Merge(cached, fresh)
	if err := g.store.Persist(ctx, merged); err != nil {
		return nil, eris.Wrap(err, "pipeline: persist cache")
	}

	log.Info("geocoding done",
		zap.Int("original", report.Counts[geocode.SourceOriginal]),
		zap.Int("fallback", report.Counts[geocode.SourceFallback]),
		zap.Int("failed", report.Counts[geocode.SourceFailed]),
		zap.Int("exception", report.Counts[geocode.SourceException]),
	)

	if len(report.Failures) > 0 {
		for _, f := range report.Failures {
			log.Warn("address could not be geocoded",
				zap.String("address", f.ZipAndMunicipality),
				zap.String("source", string(f.Source)),
			)
		}
		if g.reporter != nil {
			if err := g.reporter.WriteFailures(ctx, report.Failures); err != nil {
				return nil, eris.Wrap(err, "pipeline: write failure report")
			}
		}
	}

	return &RunResult{Table: cache.Successes(merged), Report: report}, nil
}

// computeWorkSet returns the input addresses without a cached success,
// preserving input order.
func computeWorkSet(addrs []string, successes []cache.Entry) []string {
	done := make(map[string]struct{}, len(successes))
	for _, e := range successes {
		done[e.ZipAndMunicipality] = struct{}{}
	}

	var out []string
	for _, addr := range addrs {
		if _, ok := done[addr]; !ok {
			out = append(out, addr)
		}
	}
	return out
}
