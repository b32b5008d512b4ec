// Package identity assigns collision-free export names to products that share
// a display name.
package identity

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Resolution is the outcome of resolving one product name.
type Resolution struct {
	Name       string
	ExportName string
	// Repeat is true when Name had been seen earlier in the run.
	Repeat bool
}

// Resolver owns the name registry for one run. Every lookup and update of the
// registry happens inside a single critical section, so the order in which
// concurrent callers acquire the lock decides which of them is "first".
type Resolver struct {
	lock     sync.Locker
	strategy Strategy
	emitted  map[string]struct{}
	logger   *slog.Logger

	repeats atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLocker replaces the default mutex guarding the registry.
func WithLocker(l sync.Locker) Option {
	return func(r *Resolver) { r.lock = l }
}

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger.With("component", "identity") }
}

// NewResolver creates a Resolver around strategy.
func NewResolver(strategy Strategy, opts ...Option) *Resolver {
	r := &Resolver{
		lock:     &sync.Mutex{},
		strategy: strategy,
		emitted:  make(map[string]struct{}),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the export name for one product.
func (r *Resolver) Resolve(name, description string) Resolution {
	r.lock.Lock()
	exportName, repeat := r.strategy.Next(name, description)
	_, clash := r.emitted[exportName]
	r.emitted[exportName] = struct{}{}
	r.lock.Unlock()

	if repeat {
		r.repeats.Add(1)
		r.logger.Debug("name collision resolved", "name", name, "export_name", exportName, "strategy", r.strategy.Name())
	}
	if clash {
		r.logger.Warn("export name already used", "name", name, "export_name", exportName, "strategy", r.strategy.Name())
	}
	return Resolution{Name: name, ExportName: exportName, Repeat: repeat}
}

// Repeats returns how many resolutions hit an already-seen name.
func (r *Resolver) Repeats() int64 {
	return r.repeats.Load()
}

// Strategy returns the strategy name in use.
func (r *Resolver) Strategy() string {
	return r.strategy.Name()
}
