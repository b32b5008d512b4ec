package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for an export run.
type Metrics struct {
	// Fetch metrics
	PagesFetched  atomic.Int64
	FetchFailures atomic.Int64
	CacheHits     atomic.Int64
	ListingPages  atomic.Int64

	// Item metrics
	ItemsExported   atomic.Int64
	ItemsFailed     atomic.Int64
	ItemsDuplicate  atomic.Int64
	NameCollisions  atomic.Int64
	BytesDownloaded atomic.Int64

	ActiveWorkers atomic.Int32

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordPage counts a successfully fetched page.
func (m *Metrics) RecordPage(size int, fromCache bool) {
	m.PagesFetched.Add(1)
	m.BytesDownloaded.Add(int64(size))
	if fromCache {
		m.CacheHits.Add(1)
	}
}

type metric struct {
	name  string
	help  string
	kind  string
	value int64
}

func (m *Metrics) metrics() []metric {
	return []metric{
		{"capexport_pages_fetched_total", "Total pages fetched", "counter", m.PagesFetched.Load()},
		{"capexport_fetch_failures_total", "Total failed page fetches", "counter", m.FetchFailures.Load()},
		{"capexport_cache_hits_total", "Total pages served from the response cache", "counter", m.CacheHits.Load()},
		{"capexport_listing_pages_total", "Total listing pages walked", "counter", m.ListingPages.Load()},
		{"capexport_items_exported_total", "Total export rows written", "counter", m.ItemsExported.Load()},
		{"capexport_items_failed_total", "Total items skipped after an error", "counter", m.ItemsFailed.Load()},
		{"capexport_items_duplicate_total", "Total duplicate item URLs skipped", "counter", m.ItemsDuplicate.Load()},
		{"capexport_name_collisions_total", "Total product names disambiguated", "counter", m.NameCollisions.Load()},
		{"capexport_bytes_downloaded_total", "Total bytes downloaded", "counter", m.BytesDownloaded.Load()},
		{"capexport_active_workers", "Currently active workers", "gauge", int64(m.ActiveWorkers.Load())},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.metrics() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server in the background. It stops when
// ctx is canceled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/api/stats", m.handleStats)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}

// handleStats serves the snapshot as JSON for ad-hoc progress checks.
func (m *Metrics) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for k, v := range m.Snapshot() {
		stats[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		m.logger.Debug("stats encode failed", "error", err)
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_fetched":    m.PagesFetched.Load(),
		"fetch_failures":   m.FetchFailures.Load(),
		"cache_hits":       m.CacheHits.Load(),
		"listing_pages":    m.ListingPages.Load(),
		"items_exported":   m.ItemsExported.Load(),
		"items_failed":     m.ItemsFailed.Load(),
		"items_duplicate":  m.ItemsDuplicate.Load(),
		"name_collisions":  m.NameCollisions.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
		"active_workers":   int64(m.ActiveWorkers.Load()),
	}
}

// LogSummary writes the snapshot as one structured log line.
func (m *Metrics) LogSummary() {
	snap := m.Snapshot()
	m.logger.Info("run summary",
		"pages_fetched", snap["pages_fetched"],
		"cache_hits", snap["cache_hits"],
		"fetch_failures", snap["fetch_failures"],
		"items_exported", snap["items_exported"],
		"items_failed", snap["items_failed"],
		"items_duplicate", snap["items_duplicate"],
		"name_collisions", snap["name_collisions"],
	)
}
