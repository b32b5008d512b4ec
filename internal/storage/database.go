package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/capexport/internal/types"
)

// defaultBatchSize is how many rows the database sinks buffer per round trip.
const defaultBatchSize = 100

// --- MongoDB ---

// MongoSink writes Documents to a MongoDB collection in batches.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	name       string
	runID      string
	batchSize  int
	pending    []any
	mu         sync.Mutex
	count      int
	closed     bool
	now        func() time.Time
	logger     *slog.Logger
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, uri, database, collection, name, runID string, logger *slog.Logger) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		name:       name,
		runID:      runID,
		batchSize:  defaultBatchSize,
		now:        time.Now,
		logger:     logger.With("component", "mongo_sink"),
	}, nil
}

func (s *MongoSink) Name() string { return "mongo" }

func (s *MongoSink) Write(rec types.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrSinkClosed
	}
	s.pending = append(s.pending, NewDocument(s.runID, s.name, rec, s.now()))
	if len(s.pending) >= s.batchSize {
		return s.flush()
	}
	return nil
}

// flush must be called with mu held.
func (s *MongoSink) flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertMany(ctx, s.pending); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}

	s.count += len(s.pending)
	s.logger.Debug("rows stored in mongodb", "count", len(s.pending), "total", s.count)
	s.pending = s.pending[:0]
	return nil
}

func (s *MongoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.flush()
	s.logger.Info("mongodb sink closing", "export", s.name, "total_rows", s.count)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if derr := s.client.Disconnect(ctx); err == nil {
		err = derr
	}
	return err
}

// --- PostgreSQL ---

var postgresColumns = []string{"run_id", "export", "name", "team", "collection", "source_url", "cells", "exported_at"}

// PostgresSink copies rows into a PostgreSQL table in batches.
type PostgresSink struct {
	pool      *pgxpool.Pool
	table     string
	name      string
	runID     string
	batchSize int
	pending   [][]any
	mu        sync.Mutex
	count     int
	closed    bool
	now       func() time.Time
	logger    *slog.Logger
}

// NewPostgresSink connects to PostgreSQL and creates the table if needed.
func NewPostgresSink(ctx context.Context, dsn, table, name, runID string, logger *slog.Logger) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL(table)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres create table %s: %w", table, err)
	}

	return &PostgresSink{
		pool:      pool,
		table:     table,
		name:      name,
		runID:     runID,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    logger.With("component", "postgres_sink"),
	}, nil
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + pgx.Identifier{table}.Sanitize() + ` (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT        NOT NULL,
	export      TEXT        NOT NULL,
	name        TEXT        NOT NULL,
	team        TEXT        NOT NULL DEFAULT '',
	collection  TEXT        NOT NULL,
	source_url  TEXT        NOT NULL,
	cells       TEXT[]      NOT NULL,
	exported_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
}

// copyRow orders a Document's values like postgresColumns.
func copyRow(doc Document) []any {
	return []any{doc.RunID, doc.Export, doc.Name, doc.Team, doc.Collection, doc.SourceURL, doc.Row, doc.ExportedAt}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(rec types.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrSinkClosed
	}
	s.pending = append(s.pending, copyRow(NewDocument(s.runID, s.name, rec, s.now())))
	if len(s.pending) >= s.batchSize {
		return s.flush()
	}
	return nil
}

// flush must be called with mu held.
func (s *PostgresSink) flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, postgresColumns, pgx.CopyFromRows(s.pending))
	if err != nil {
		return fmt.Errorf("postgres copy: %w", err)
	}

	s.count += int(n)
	s.logger.Debug("rows stored in postgres", "count", n, "total", s.count)
	s.pending = s.pending[:0]
	return nil
}

func (s *PostgresSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.flush()
	s.logger.Info("postgres sink closing", "export", s.name, "total_rows", s.count)
	s.pool.Close()
	return err
}
