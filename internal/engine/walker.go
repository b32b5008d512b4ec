package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/IshaanNene/capexport/internal/config"
	"github.com/IshaanNene/capexport/internal/fetcher"
	"github.com/IshaanNene/capexport/internal/observability"
	"github.com/IshaanNene/capexport/internal/parser"
	"github.com/IshaanNene/capexport/internal/types"
)

// Walker discovers team and product URLs from the catalog's listing pages.
type Walker struct {
	fetcher     fetcher.Fetcher
	siteURL     string
	corrections []correction
	maxPages    int
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewWalker creates a Walker. Listing pages are fetched through f as-is; pass
// an uncached fetcher so new products show up on every run.
func NewWalker(f fetcher.Fetcher, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Walker {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Walker{
		fetcher:     f,
		siteURL:     strings.TrimRight(cfg.Site.BaseURL, "/"),
		corrections: compileCorrections(cfg.Site.Corrections),
		maxPages:    cfg.Engine.MaxPages,
		metrics:     metrics,
		logger:      logger.With("component", "walker"),
	}
}

// DirectoryURL returns the category directory page for token.
func (w *Walker) DirectoryURL(token string) string {
	return w.siteURL + "/pages/" + token
}

// CollectionURL returns the first listing page of a collection, without paging.
func (w *Walker) CollectionURL(name string) string {
	return w.siteURL + "/collections/" + name
}

// WalkCategory returns the team links of a category directory page in
// document order, with the configured spelling corrections applied. Any
// failure here, including a directory without teams, is fatal to the run.
func (w *Walker) WalkCategory(ctx context.Context, token string) ([]parser.TeamLink, error) {
	dirURL := w.DirectoryURL(token)

	page, err := w.fetch(ctx, dirURL)
	if err != nil {
		return nil, fmt.Errorf("fetching directory %s: %w", dirURL, err)
	}

	links, err := parser.ParseTeamLinks(page, w.siteURL)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("directory %s: %w", dirURL, types.ErrEmptyListing)
	}

	for i := range links {
		links[i].URL = w.correct(links[i].URL)
		links[i].Label = w.correct(links[i].Label)
	}

	w.logger.Info("category walked", "url", dirURL, "teams", len(links))
	return links, nil
}

// WalkItems fetches listingURL?page=1, 2, ... and accumulates the item links
// of each page until one yields none. Duplicates are kept. With a positive
// max_pages the walk also stops after that many pages.
func (w *Walker) WalkItems(ctx context.Context, listingURL string) ([]string, error) {
	var items []string

	for n := 1; ; n++ {
		if w.maxPages > 0 && n > w.maxPages {
			w.logger.Warn("page limit reached before an empty page",
				"url", listingURL, "max_pages", w.maxPages, "items", len(items))
			break
		}

		pageURL := PageURL(listingURL, n)
		page, err := w.fetch(ctx, pageURL)
		if err != nil {
			return items, fmt.Errorf("fetching listing page %d of %s: %w", n, listingURL, err)
		}
		w.metrics.ListingPages.Add(1)

		found, err := parser.ParseItemLinks(page)
		if err != nil {
			return items, err
		}
		w.logger.Debug("listing page walked", "url", pageURL, "items", len(found))
		if len(found) == 0 {
			break
		}
		items = append(items, found...)
	}

	return items, nil
}

func (w *Walker) fetch(ctx context.Context, rawURL string) (*types.Page, error) {
	page, err := w.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		w.metrics.FetchFailures.Add(1)
		return nil, err
	}
	w.metrics.RecordPage(len(page.Body), page.FromCache)
	return page, nil
}

// correction matches From case-insensitively, so it fixes both the label and
// the lowercase slug of a team URL.
type correction struct {
	pattern *regexp.Regexp
	to      string
}

func compileCorrections(cs []config.Correction) []correction {
	out := make([]correction, 0, len(cs))
	for _, c := range cs {
		if c.From == "" {
			continue
		}
		out = append(out, correction{
			pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(c.From)),
			to:      c.To,
		})
	}
	return out
}

func (w *Walker) correct(s string) string {
	for _, c := range w.corrections {
		s = c.pattern.ReplaceAllStringFunc(s, func(match string) string {
			return matchCase(match, c.to)
		})
	}
	return s
}

// matchCase spells to in the case of match: all lower, all upper, or as configured.
func matchCase(match, to string) string {
	switch {
	case match == strings.ToLower(match):
		return strings.ToLower(to)
	case match == strings.ToUpper(match):
		return strings.ToUpper(to)
	default:
		return to
	}
}

// PageURL appends the page query parameter to a listing URL.
func PageURL(listingURL string, n int) string {
	sep := "?"
	if strings.Contains(listingURL, "?") {
		sep = "&"
	}
	return listingURL + sep + "page=" + strconv.Itoa(n)
}
