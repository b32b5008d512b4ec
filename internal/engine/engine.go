package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/capexport/internal/config"
	"github.com/IshaanNene/capexport/internal/fetcher"
	"github.com/IshaanNene/capexport/internal/identity"
	"github.com/IshaanNene/capexport/internal/observability"
	"github.com/IshaanNene/capexport/internal/parser"
	"github.com/IshaanNene/capexport/internal/types"
)

// Kinds of export run.
const (
	KindCategory   = "category"
	KindCollection = "collection"
)

// TeamFailure records a team whose listing could not be walked.
type TeamFailure struct {
	Team string
	URL  string
	Err  error
}

// RunResult summarizes one category or collection export.
type RunResult struct {
	RunID    string
	Kind     string
	Name     string
	Batches  []*BatchResult
	Skipped  []TeamFailure
	Started  time.Time
	Duration time.Duration
}

// Exported returns the number of rows emitted.
func (r *RunResult) Exported() int {
	n := 0
	for _, b := range r.Batches {
		n += b.Exported
	}
	return n
}

// Failed returns the number of items skipped after an error.
func (r *RunResult) Failed() int {
	n := 0
	for _, b := range r.Batches {
		n += b.Failed()
	}
	return n
}

// Duplicates returns the number of duplicate item URLs skipped.
func (r *RunResult) Duplicates() int {
	n := 0
	for _, b := range r.Batches {
		n += b.Duplicates
	}
	return n
}

// Engine drives category and collection exports. The name registry lives as
// long as the Engine, so run every export of one process through one Engine.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	runID     string
	listings  fetcher.Fetcher
	pages     fetcher.Fetcher
	extractor parser.Extractor
	resolver  *identity.Resolver
	metrics   *observability.Metrics

	walker    *Walker
	scheduler *Scheduler
}

// Option configures an Engine.
type Option func(*Engine)

// WithListingFetcher sets the fetcher used for directory and listing pages.
func WithListingFetcher(f fetcher.Fetcher) Option {
	return func(e *Engine) { e.listings = f }
}

// WithPageFetcher sets the fetcher used for product pages.
func WithPageFetcher(f fetcher.Fetcher) Option {
	return func(e *Engine) { e.pages = f }
}

// WithExtractor replaces the configured regex extractor.
func WithExtractor(x parser.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithMetrics shares a metrics instance with the caller.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine from cfg. Unless overridden, listing pages go through
// an HTTP fetcher (behind the robots gate when enabled) and product pages go
// through the same fetcher wrapped in the on-disk cache.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	runID := uuid.NewString()
	e := &Engine{
		cfg:    cfg,
		runID:  runID,
		logger: logger.With("component", "engine", "run_id", runID),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.metrics == nil {
		e.metrics = observability.NewMetrics(logger)
	}
	if e.listings == nil {
		var f fetcher.Fetcher = fetcher.NewHTTPFetcher(cfg, logger)
		if cfg.Engine.RespectRobotsTxt {
			f = fetcher.NewRobotsFetcher(f, logger)
		}
		e.listings = f
	}
	if e.pages == nil {
		e.pages = fetcher.NewCacheFetcher(e.listings, cfg.Fetcher.CacheDir, logger)
	}
	if e.extractor == nil {
		x, err := parser.NewRegexExtractor(cfg.Parser, cfg.Site.ImageScheme)
		if err != nil {
			return nil, fmt.Errorf("creating extractor: %w", err)
		}
		e.extractor = x
	}

	strategy, err := identity.NewStrategy(cfg.Identity.Strategy)
	if err != nil {
		return nil, err
	}
	e.resolver = identity.NewResolver(strategy, identity.WithLogger(e.logger))

	e.walker = NewWalker(e.listings, cfg, e.metrics, e.logger)
	e.scheduler = NewScheduler(e.pages, e.extractor, e.resolver, cfg.Site.BaseURL,
		cfg.Engine.Concurrency, cfg.Engine.DedupURLs, e.metrics, e.logger)
	return e, nil
}

// RunID identifies this engine's run in logs and database sinks.
func (e *Engine) RunID() string { return e.runID }

// Metrics returns the run counters.
func (e *Engine) Metrics() *observability.Metrics { return e.metrics }

// Strategy returns the disambiguation strategy in use.
func (e *Engine) Strategy() string { return e.resolver.Strategy() }

// RunCategory walks the teams listed on the category's directory page and
// exports every product of every team. The category label doubles as the
// collection of the products. A directory failure is returned; a team whose
// listing fails is logged, recorded in Skipped and the walk moves on.
func (e *Engine) RunCategory(ctx context.Context, label, directoryToken string, emit EmitFunc) (*RunResult, error) {
	result := e.newResult(KindCategory, label)
	defer e.finish(result)

	teams, err := e.walker.WalkCategory(ctx, directoryToken)
	if err != nil {
		return result, err
	}
	e.logger.Info("category export started", "category", label, "teams", len(teams))

	for _, team := range teams {
		name := teamName(team.URL)

		items, err := e.walker.WalkItems(ctx, team.URL)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			e.logger.Warn("team skipped", "team", name, "url", team.URL, "error", err)
			result.Skipped = append(result.Skipped, TeamFailure{Team: name, URL: team.URL, Err: err})
			continue
		}

		batch, err := e.scheduler.Run(ctx, Batch{Team: name, Collection: label, URLs: items}, emit)
		result.Batches = append(result.Batches, batch)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// RunCollection exports every product of one paginated collection listing.
// Any listing failure is returned.
func (e *Engine) RunCollection(ctx context.Context, name string, emit EmitFunc) (*RunResult, error) {
	result := e.newResult(KindCollection, name)
	defer e.finish(result)

	items, err := e.walker.WalkItems(ctx, e.walker.CollectionURL(name))
	if err != nil {
		return result, err
	}
	e.logger.Info("collection export started", "collection", name, "items", len(items))

	batch, err := e.scheduler.Run(ctx, Batch{Collection: name, URLs: items}, emit)
	result.Batches = append(result.Batches, batch)
	return result, err
}

// Close releases the fetchers. Fetcher Close methods tolerate repeated calls
// through shared decorators.
func (e *Engine) Close() error {
	return errors.Join(e.pages.Close(), e.listings.Close())
}

func (e *Engine) newResult(kind, name string) *RunResult {
	return &RunResult{
		RunID:   e.runID,
		Kind:    kind,
		Name:    name,
		Started: time.Now(),
	}
}

func (e *Engine) finish(r *RunResult) {
	r.Duration = time.Since(r.Started)
	e.logger.Info("export finished",
		"kind", r.Kind,
		"name", r.Name,
		"exported", r.Exported(),
		"failed", r.Failed(),
		"duplicates", r.Duplicates(),
		"skipped_teams", len(r.Skipped),
		"elapsed", r.Duration.Round(time.Millisecond).String(),
	)
}

// teamName is the last path segment of the team's listing URL.
func teamName(teamURL string) string {
	return types.SlugFromURL(teamURL)
}
