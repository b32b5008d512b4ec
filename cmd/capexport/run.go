package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IshaanNene/capexport/internal/config"
	"github.com/IshaanNene/capexport/internal/engine"
	"github.com/IshaanNene/capexport/internal/storage"
	"github.com/IshaanNene/capexport/internal/types"
)

type jobKind int

const (
	jobCategory jobKind = iota
	jobCollection
)

// job is one export entry. Each job writes its own output file named after it.
type job struct {
	kind jobKind
	name string
	page string // directory page token, categories only
}

func (j job) String() string {
	if j.kind == jobCategory {
		return "category " + j.name
	}
	return "collection " + j.name
}

// catalogJobs lists the configured categories first, then the collections.
func catalogJobs(cfg *config.Config) []job {
	jobs := make([]job, 0, len(cfg.Catalog.Categories)+len(cfg.Catalog.Collections))
	for _, c := range cfg.Catalog.Categories {
		jobs = append(jobs, job{kind: jobCategory, name: c.Label, page: c.Page})
	}
	for _, name := range cfg.Catalog.Collections {
		jobs = append(jobs, job{kind: jobCollection, name: name})
	}
	return jobs
}

// runExports runs every job through one engine so product names stay unique
// across all files of the run.
func runExports(parent context.Context, cfg *config.Config, logger *slog.Logger, jobs []job) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close()

	if cfg.Metrics.Enabled {
		eng.Metrics().StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	logger.Info("capexport starting",
		"version", config.Version,
		"run_id", eng.RunID(),
		"site", cfg.Site.BaseURL,
		"exports", len(jobs),
		"strategy", eng.Strategy(),
		"sinks", cfg.Storage.Types,
	)

	start := time.Now()
	var results []*engine.RunResult
	var failed []string
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		res, err := runJob(ctx, eng, cfg, logger, j)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			logger.Error("export failed", "export", j.String(), "error", err)
			failed = append(failed, j.name)
		}
	}

	eng.Metrics().LogSummary()
	printSummary(os.Stdout, results, time.Since(start))

	if ctx.Err() != nil {
		return fmt.Errorf("interrupted: %w", ctx.Err())
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d exports failed: %v", len(failed), len(jobs), failed)
	}
	return nil
}

// runJob opens the sinks for one job, runs it and closes the sinks. Rows
// written before a failure stay in the output.
func runJob(ctx context.Context, eng *engine.Engine, cfg *config.Config, logger *slog.Logger, j job) (*engine.RunResult, error) {
	sink, err := storage.Open(ctx, cfg, j.name, eng.RunID(), logger)
	if err != nil {
		return nil, err
	}

	var res *engine.RunResult
	switch j.kind {
	case jobCategory:
		res, err = eng.RunCategory(ctx, j.name, j.page, sink.Write)
	default:
		res, err = eng.RunCollection(ctx, j.name, sink.Write)
	}

	if cerr := sink.Close(); cerr != nil {
		err = errors.Join(err, &types.StorageError{Backend: sink.Name(), Err: cerr})
	}
	return res, err
}

func printSummary(w io.Writer, results []*engine.RunResult, elapsed time.Duration) {
	var exported, failed, dups int
	fmt.Fprintf(w, "\n--- Export Summary ---\n")
	for _, r := range results {
		fmt.Fprintf(w, "%-12s %-20s exported=%-6d failed=%-4d duplicates=%-4d skipped_teams=%d\n",
			r.Kind, r.Name, r.Exported(), r.Failed(), r.Duplicates(), len(r.Skipped))
		exported += r.Exported()
		failed += r.Failed()
		dups += r.Duplicates()
	}
	fmt.Fprintf(w, "Exports:    %d\n", len(results))
	fmt.Fprintf(w, "Rows:       %d\n", exported)
	fmt.Fprintf(w, "Failed:     %d\n", failed)
	fmt.Fprintf(w, "Duplicates: %d\n", dups)
	fmt.Fprintf(w, "Elapsed:    %s\n", elapsed.Round(time.Millisecond))
}
