package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/capexport/internal/export"
	"github.com/IshaanNene/capexport/internal/fetcher"
	"github.com/IshaanNene/capexport/internal/identity"
	"github.com/IshaanNene/capexport/internal/observability"
	"github.com/IshaanNene/capexport/internal/parser"
	"github.com/IshaanNene/capexport/internal/pipeline"
	"github.com/IshaanNene/capexport/internal/types"
)

// EmitFunc receives each built export record. The scheduler serializes calls.
// A non-nil error stops the batch.
type EmitFunc func(rec types.ExportRecord) error

// Batch is the set of item URLs discovered for one team or collection.
type Batch struct {
	Team       string
	Collection string
	URLs       []string
}

// ItemFailure records why one item produced no row.
type ItemFailure struct {
	URL string
	Err error
}

// BatchResult summarizes one batch. Counts only; rows went to the EmitFunc.
type BatchResult struct {
	Team       string
	Collection string
	Total      int
	Exported   int
	Duplicates int
	Failures   []ItemFailure

	mu sync.Mutex
}

func (r *BatchResult) addExported() {
	r.mu.Lock()
	r.Exported++
	r.mu.Unlock()
}

func (r *BatchResult) addFailure(rawURL string, err error) {
	r.mu.Lock()
	r.Failures = append(r.Failures, ItemFailure{URL: rawURL, Err: err})
	r.mu.Unlock()
}

// Failed returns the number of items that were skipped after an error.
func (r *BatchResult) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failures)
}

// Scheduler fetches, extracts, resolves and builds every item of a batch with
// bounded concurrency.
type Scheduler struct {
	fetcher     fetcher.Fetcher
	extractor   parser.Extractor
	resolver    *identity.Resolver
	siteURL     string
	concurrency int
	dedupURLs   bool
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewScheduler creates a Scheduler. Every batch it runs shares resolver, so
// names are disambiguated across the whole run.
func NewScheduler(f fetcher.Fetcher, extractor parser.Extractor, resolver *identity.Resolver, siteURL string, concurrency int, dedupURLs bool, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Scheduler{
		fetcher:     f,
		extractor:   extractor,
		resolver:    resolver,
		siteURL:     strings.TrimRight(siteURL, "/"),
		concurrency: concurrency,
		dedupURLs:   dedupURLs,
		metrics:     metrics,
		logger:      logger.With("component", "scheduler"),
	}
}

// ProductURL is the canonical page for an item inside a collection. Only the
// slug of the listing link is kept.
func (s *Scheduler) ProductURL(collection, itemURL string) string {
	return s.siteURL + "/collections/" + strings.ToLower(collection) + "/products/" + types.SlugFromURL(itemURL)
}

// Run processes a batch. Per-item fetch and validation failures are logged,
// recorded in the result and never stop sibling items. Only cancellation of
// ctx or an EmitFunc error ends the batch early, and that error is returned.
func (s *Scheduler) Run(ctx context.Context, batch Batch, emit EmitFunc) (*BatchResult, error) {
	result := &BatchResult{
		Team:       batch.Team,
		Collection: batch.Collection,
		Total:      len(batch.URLs),
	}
	logger := s.logger.With("team", batch.Team, "collection", batch.Collection)
	logger.Info("batch started", "items", len(batch.URLs), "workers", s.concurrency)

	pipe := pipeline.NewProductPipeline(batch.Team, batch.Collection, s.resolver, func(identity.Resolution) {
		s.metrics.NameCollisions.Add(1)
	}, logger)

	var dedup *Deduplicator
	if s.dedupURLs {
		dedup = NewDeduplicator(len(batch.URLs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	// stopped is set once emit fails; guarded by emitMu.
	var (
		emitMu  sync.Mutex
		stopped bool
	)
	for _, itemURL := range batch.URLs {
		if gctx.Err() != nil {
			break
		}

		pageURL := s.ProductURL(batch.Collection, itemURL)
		if dedup != nil && !dedup.Claim(pageURL) {
			result.Duplicates++
			s.metrics.ItemsDuplicate.Add(1)
			logger.Debug("duplicate item skipped", "url", pageURL)
			continue
		}

		g.Go(func() error {
			s.metrics.ActiveWorkers.Add(1)
			defer s.metrics.ActiveWorkers.Add(-1)

			rec, err := s.process(gctx, pipe, pageURL)
			if err != nil {
				if cerr := gctx.Err(); cerr != nil {
					return cerr
				}
				result.addFailure(pageURL, err)
				s.metrics.ItemsFailed.Add(1)
				logger.Warn("item skipped", "url", pageURL, "error", err)
				return nil
			}
			if rec == nil {
				return nil
			}

			emitMu.Lock()
			if stopped {
				emitMu.Unlock()
				return nil
			}
			if cerr := gctx.Err(); cerr != nil {
				emitMu.Unlock()
				return cerr
			}
			err = emit(*rec)
			if err != nil {
				stopped = true
			}
			emitMu.Unlock()
			if err != nil {
				return err
			}
			result.addExported()
			s.metrics.ItemsExported.Add(1)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	unique := len(batch.URLs)
	if dedup != nil {
		unique = dedup.Count()
	}
	logger.Info("batch finished",
		"unique", unique, "exported", result.Exported, "failed", result.Failed(), "duplicates", result.Duplicates)
	return result, err
}

// process runs one item end to end. A nil record with a nil error means a
// middleware dropped the item.
func (s *Scheduler) process(ctx context.Context, pipe *pipeline.Pipeline, pageURL string) (*types.ExportRecord, error) {
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		s.metrics.FetchFailures.Add(1)
		return nil, &types.ItemError{URL: pageURL, Stage: "fetch", Err: err}
	}
	s.metrics.RecordPage(len(page.Body), page.FromCache)

	slug := types.SlugFromURL(pageURL)
	product := s.extractor.Extract(page.Markup(), slug)
	product.SourceURL = pageURL

	out, err := pipe.Process(&product)
	if err != nil || out == nil {
		return nil, err
	}

	rec := export.Build(*out, out.Team, out.Collection)
	return &rec, nil
}
