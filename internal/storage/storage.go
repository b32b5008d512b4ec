package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/IshaanNene/capexport/internal/config"
	"github.com/IshaanNene/capexport/internal/export"
	"github.com/IshaanNene/capexport/internal/types"
)

// Sink is the interface for all export destinations.
type Sink interface {
	// Write persists one export row. Implementations are safe for concurrent use.
	Write(rec types.ExportRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the sink identifier.
	Name() string
}

// Document is the structured form of an export row used by the JSONL and
// database sinks.
type Document struct {
	RunID      string            `json:"run_id"      bson:"run_id"`
	Export     string            `json:"export"      bson:"export"`
	Name       string            `json:"name"        bson:"name"`
	SourceURL  string            `json:"source_url"  bson:"source_url"`
	Team       string            `json:"team"        bson:"team"`
	Collection string            `json:"collection"  bson:"collection"`
	Fields     map[string]string `json:"fields"      bson:"fields"`
	Row        []string          `json:"row"         bson:"row"`
	ExportedAt time.Time         `json:"exported_at" bson:"exported_at"`
}

// NewDocument converts a row. Fields keeps only populated columns, keyed by
// header name; Row keeps every column in order.
func NewDocument(runID, exportName string, rec types.ExportRecord, now time.Time) Document {
	row := rec.Values()
	fields := make(map[string]string)
	for i, v := range row {
		if v != "" && i < len(export.Header) {
			fields[export.Header[i]] = v
		}
	}
	return Document{
		RunID:      runID,
		Export:     exportName,
		Name:       rec.Name,
		SourceURL:  rec.SourceURL,
		Team:       rec.Team,
		Collection: rec.Collection,
		Fields:     fields,
		Row:        row,
		ExportedAt: now.UTC(),
	}
}

// Open creates the sinks configured in cfg.Storage for one export entry (a
// category or collection). File sinks write <output_dir>/<name>.<ext>; database
// sinks tag every document with name and runID. Several types fan out
// through a MultiSink.
func Open(ctx context.Context, cfg *config.Config, name, runID string, logger *slog.Logger) (Sink, error) {
	var sinks []Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	for _, t := range cfg.Storage.Types {
		var (
			s   Sink
			err error
		)
		switch t {
		case "csv":
			s, err = NewCSVSink(filepath.Join(cfg.Storage.OutputDir, name+".csv"), logger)
		case "jsonl":
			s, err = NewJSONLSink(filepath.Join(cfg.Storage.OutputDir, name+".jsonl"), name, runID, logger)
		case "mongo":
			s, err = NewMongoSink(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, name, runID, logger)
		case "postgres":
			s, err = NewPostgresSink(ctx, cfg.Storage.PostgresDSN, cfg.Storage.PostgresTable, name, runID, logger)
		default:
			err = fmt.Errorf("unsupported storage type: %s", t)
		}
		if err != nil {
			closeAll()
			return nil, &types.StorageError{Backend: t, Err: err}
		}
		sinks = append(sinks, s)
	}

	switch len(sinks) {
	case 0:
		return nil, &types.StorageError{Backend: "none", Err: errors.New("no storage types configured")}
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks, logger), nil
	}
}

// --- Multi-Sink Fan-Out ---

// MultiSink writes rows to multiple sinks.
type MultiSink struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMultiSink creates a sink that fans out to multiple sinks.
func NewMultiSink(sinks []Sink, logger *slog.Logger) *MultiSink {
	return &MultiSink{
		sinks:  sinks,
		logger: logger.With("component", "multi_sink"),
	}
}

func (s *MultiSink) Name() string { return "multi" }

// Write writes to every sink and returns the first error. A failing sink does
// not stop the others.
func (s *MultiSink) Write(rec types.ExportRecord) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Write(rec); err != nil {
			s.logger.Error("sink write failed", "sink", sink.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
