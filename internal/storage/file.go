package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IshaanNene/capexport/internal/export"
	"github.com/IshaanNene/capexport/internal/types"
)

// --- CSV Sink ---

// CSVSink writes rows in the storefront import layout, header first.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	closed bool
	logger *slog.Logger
}

// NewCSVSink creates the file, replacing any previous export, and writes the header.
func NewCSVSink(outputPath string, logger *slog.Logger) (*CSVSink, error) {
	f, err := createOutput(outputPath)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(export.Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write CSV header: %w", err)
	}

	return &CSVSink{
		path:   outputPath,
		file:   f,
		writer: w,
		logger: logger.With("component", "csv_sink"),
	}, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(rec types.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrSinkClosed
	}
	if rec.Len() != export.Columns {
		return fmt.Errorf("row for %s has %d columns, want %d", rec.SourceURL, rec.Len(), export.Columns)
	}
	if err := s.writer.Write(rec.Values()); err != nil {
		return fmt.Errorf("write CSV row: %w", err)
	}
	s.count++
	return nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.writer.Flush()
	err := s.writer.Error()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.logger.Info("CSV written", "path", s.path, "rows", s.count)
	return err
}

// --- JSONL Sink ---

// JSONLSink writes one Document per line.
type JSONLSink struct {
	path   string
	name   string
	runID  string
	file   *os.File
	buf    *bufio.Writer
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	closed bool
	now    func() time.Time
	logger *slog.Logger
}

// NewJSONLSink creates a new JSONL file sink (streaming writes).
func NewJSONLSink(outputPath, name, runID string, logger *slog.Logger) (*JSONLSink, error) {
	f, err := createOutput(outputPath)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)

	return &JSONLSink{
		path:   outputPath,
		name:   name,
		runID:  runID,
		file:   f,
		buf:    buf,
		enc:    json.NewEncoder(buf),
		now:    time.Now,
		logger: logger.With("component", "jsonl_sink"),
	}, nil
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Write(rec types.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrSinkClosed
	}
	if err := s.enc.Encode(NewDocument(s.runID, s.name, rec, s.now())); err != nil {
		return fmt.Errorf("encode JSONL: %w", err)
	}
	s.count++
	return nil
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.buf.Flush()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.logger.Info("JSONL written", "path", s.path, "rows", s.count)
	return err
}

func createOutput(outputPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}
