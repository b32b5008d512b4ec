package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/capexport/internal/config"
	"github.com/IshaanNene/capexport/internal/engine"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func resetFlags() {
	cfgFile, verbose = "", false
	outputDir, outputType, strategy, cacheDir, delay, baseURL = "", "", "", "", "", ""
	concurrent = 0
	noCache, respectBots = false, false
	maxPages, maxRetries = -1, -1
}

func TestApplyCLIOverrides(t *testing.T) {
	t.Cleanup(resetFlags)
	resetFlags()

	outputDir = "/tmp/out"
	outputType = " CSV, jsonl ,,"
	concurrent = 8
	strategy = "content_diff"
	noCache = true
	maxPages = 4
	maxRetries = 0
	delay = "250ms"
	baseURL = "https://shop.example.com/"
	respectBots = true

	cfg := config.DefaultConfig()
	require.NoError(t, applyCLIOverrides(cfg))

	assert.Equal(t, "/tmp/out", cfg.Storage.OutputDir)
	assert.Equal(t, []string{"csv", "jsonl"}, cfg.Storage.Types)
	assert.Equal(t, 8, cfg.Engine.Concurrency)
	assert.Equal(t, "content_diff", cfg.Identity.Strategy)
	assert.Empty(t, cfg.Fetcher.CacheDir)
	assert.Equal(t, 4, cfg.Engine.MaxPages)
	assert.Equal(t, 0, cfg.Engine.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.PolitenessDelay)
	assert.Equal(t, "https://shop.example.com", cfg.Site.BaseURL)
	assert.True(t, cfg.Engine.RespectRobotsTxt)
}

func TestApplyCLIOverridesKeepsDefaults(t *testing.T) {
	t.Cleanup(resetFlags)
	resetFlags()

	cfg := config.DefaultConfig()
	require.NoError(t, applyCLIOverrides(cfg))
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestApplyCLIOverridesBadDelay(t *testing.T) {
	t.Cleanup(resetFlags)
	resetFlags()
	delay = "soon"

	assert.Error(t, applyCLIOverrides(config.DefaultConfig()))
}

func TestCatalogJobs(t *testing.T) {
	cfg := config.DefaultConfig()
	jobs := catalogJobs(cfg)

	require.Len(t, jobs, 14)
	assert.Equal(t, job{kind: jobCategory, name: "NCAA", page: "ncaateams"}, jobs[0])
	assert.Equal(t, job{kind: jobCategory, name: "NHL", page: "nhl-teams"}, jobs[1])
	assert.Equal(t, job{kind: jobCollection, name: "blank"}, jobs[2])
	assert.Equal(t, "collection powwow", jobs[13].String())
}

func TestSetupLoggerVerbose(t *testing.T) {
	t.Cleanup(resetFlags)
	resetFlags()

	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))

	verbose = true
	logger = setupLogger(config.LoggingConfig{Level: "warn", Format: "text"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestPrintSummary(t *testing.T) {
	results := []*engine.RunResult{
		{Kind: engine.KindCollection, Name: "knits", Batches: []*engine.BatchResult{{Exported: 3, Duplicates: 1}}},
		{Kind: engine.KindCategory, Name: "NHL", Batches: []*engine.BatchResult{{Exported: 2}, {Exported: 5}}},
	}

	var buf bytes.Buffer
	printSummary(&buf, results, 1500*time.Millisecond)
	out := buf.String()

	assert.Contains(t, out, "Exports:    2")
	assert.Contains(t, out, "Rows:       10")
	assert.Contains(t, out, "Duplicates: 1")
	assert.Contains(t, out, "Elapsed:    1.5s")
}

func storefront() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/knits" && r.URL.Query().Get("page") == "1":
			fmt.Fprint(w, `<div class="product-details"><a href="/collections/knits/products/pom-beanie">a</a></div>`)
			fmt.Fprint(w, `<div class="product-details"><a href="/collections/knits/products/pom-beanie-red">b</a></div>`)
		case r.URL.Path == "/collections/knits":
			fmt.Fprint(w, `<html><body></body></html>`)
		case strings.HasPrefix(r.URL.Path, "/collections/knits/products/"):
			slug := filepath.Base(r.URL.Path)
			fmt.Fprint(w, `<html><head><meta property="og:price:amount" content="19.99"></head><body>`)
			fmt.Fprint(w, `<h1 itemprop="name">Pom Beanie</h1>`)
			fmt.Fprintf(w, `<div class="rte">Knit beanie %s</div>`, slug)
			fmt.Fprintf(w, `<img src="//cdn.example.com/%s.jpg"></body></html>`, slug)
		case r.URL.Path == "/collections/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRunExportsWritesOneFilePerJob(t *testing.T) {
	srv := storefront()
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = srv.URL
	cfg.Fetcher.CacheDir = ""
	cfg.Engine.MaxRetries = 0
	cfg.Storage.OutputDir = t.TempDir()

	jobs := []job{{kind: jobCollection, name: "knits"}, {kind: jobCollection, name: "broken"}}
	err := runExports(context.Background(), cfg, testLogger, jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 exports failed")

	f, err := os.Open(filepath.Join(cfg.Storage.OutputDir, "knits.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	names := []string{rows[1][2], rows[2][2]}
	assert.ElementsMatch(t, []string{"Pom Beanie", "Pom Beanie II"}, names)

	broken, err := os.ReadFile(filepath.Join(cfg.Storage.OutputDir, "broken.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(broken, []byte("\n")), "failed export keeps a header-only file")
}
