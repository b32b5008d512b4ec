package pipeline

import (
	"log/slog"
	"strings"

	"github.com/IshaanNene/capexport/internal/types"
)

// Middleware processes a product and returns the (possibly modified) product.
// Return nil to drop the product from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a product. Return nil to drop it.
	Process(p *types.Product) (*types.Product, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the product through all middleware in order. A stage error is
// returned as *types.ItemError naming the stage.
func (p *Pipeline) Process(product *types.Product) (*types.Product, error) {
	current := product

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.ItemError{
				URL:   product.SourceURL,
				Stage: mw.Name(),
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("product dropped", "stage", mw.Name(), "url", product.SourceURL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.middlewares))
	for i, mw := range p.middlewares {
		names[i] = mw.Name()
	}
	return names
}

// --- Built-in Middleware ---

// TrimMiddleware trims surrounding whitespace from the name and price.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Price = strings.TrimSpace(p.Price)
	return p, nil
}

// PriceRequiredMiddleware fails products without a price. Every other
// missing field only degrades the row.
type PriceRequiredMiddleware struct{}

func (m *PriceRequiredMiddleware) Name() string { return "price_required" }

func (m *PriceRequiredMiddleware) Process(p *types.Product) (*types.Product, error) {
	if !p.HasPrice() {
		return nil, types.ErrMissingPrice
	}
	return p, nil
}

// ImageLimitMiddleware keeps at most Max images.
type ImageLimitMiddleware struct {
	Max int
}

func (m *ImageLimitMiddleware) Name() string { return "image_limit" }

func (m *ImageLimitMiddleware) Process(p *types.Product) (*types.Product, error) {
	if m.Max >= 0 && len(p.Images) > m.Max {
		p.Images = p.Images[:m.Max]
	}
	return p, nil
}

// ContextMiddleware stamps the walker's team and collection onto the product.
type ContextMiddleware struct {
	Team       string
	Collection string
}

func (m *ContextMiddleware) Name() string { return "context" }

func (m *ContextMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.Team = m.Team
	p.Collection = m.Collection
	return p, nil
}
