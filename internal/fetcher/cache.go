package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/capexport/internal/types"
)

// CacheFetcher serves pages from an on-disk cache, filling it from next on a miss.
// Distinct keys may be read and written concurrently; a key is written at most once per run.
type CacheFetcher struct {
	next   Fetcher
	dir    string
	logger *slog.Logger
}

// NewCacheFetcher wraps next with a cache rooted at dir. An empty dir disables caching.
func NewCacheFetcher(next Fetcher, dir string, logger *slog.Logger) *CacheFetcher {
	return &CacheFetcher{
		next:   next,
		dir:    dir,
		logger: logger.With("component", "page_cache"),
	}
}

// Fetch implements Fetcher.
func (c *CacheFetcher) Fetch(ctx context.Context, rawURL string) (*types.Page, error) {
	if c.dir == "" {
		return c.next.Fetch(ctx, rawURL)
	}
	key := CacheKey(rawURL)
	if key == "" {
		return c.next.Fetch(ctx, rawURL)
	}
	path := filepath.Join(c.dir, key)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		page := types.NewPage(rawURL, 200, nil, data, 0)
		page.FromCache = true
		c.logger.Debug("cache hit", "url", rawURL, "key", key)
		return page, nil
	case !errors.Is(err, fs.ErrNotExist):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	page, err := c.next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := c.store(path, page.Body); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return page, nil
}

// Close closes the wrapped fetcher.
func (c *CacheFetcher) Close() error {
	return c.next.Close()
}

// store writes through a temp file so readers never see a partial page.
func (c *CacheFetcher) store(path string, body []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// CacheKey derives a flat file name from the URL path: characters that are
// invalid in file names are dropped and path separators removed.
func CacheKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || strings.ContainsRune(`"<>|/\:*?`, r) {
			return -1
		}
		return r
	}, u.EscapedPath())
}
