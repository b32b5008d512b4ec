package fetcher

import (
	"context"

	"github.com/IshaanNene/capexport/internal/types"
)

// Fetcher retrieves the markup behind a URL.
type Fetcher interface {
	// Fetch retrieves the page at rawURL.
	Fetch(ctx context.Context, rawURL string) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, rawURL string) (*types.Page, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, rawURL string) (*types.Page, error) {
	return f(ctx, rawURL)
}

// Close is a no-op.
func (f Func) Close() error { return nil }
