package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/capexport/internal/identity"
	"github.com/IshaanNene/capexport/internal/types"
)

// ResolveMiddleware assigns the collision-free export name. It must run after
// every stage that can reject the product, otherwise a rejected product would
// still occupy a slot in the name registry.
type ResolveMiddleware struct {
	resolver *identity.Resolver
	onRepeat func(identity.Resolution)
}

// NewResolveMiddleware creates a ResolveMiddleware. onRepeat, when non-nil, is
// called for every resolution of an already-seen name.
func NewResolveMiddleware(resolver *identity.Resolver, onRepeat func(identity.Resolution)) *ResolveMiddleware {
	return &ResolveMiddleware{resolver: resolver, onRepeat: onRepeat}
}

func (m *ResolveMiddleware) Name() string { return "resolve" }

func (m *ResolveMiddleware) Process(p *types.Product) (*types.Product, error) {
	res := m.resolver.Resolve(p.Name, p.Description)
	p.ExportName = res.ExportName
	if res.Repeat && m.onRepeat != nil {
		m.onRepeat(res)
	}
	return p, nil
}

// NewProductPipeline builds the standard per-item chain:
// context, trim, price gate, image cap, then identity resolution.
func NewProductPipeline(team, collection string, resolver *identity.Resolver, onRepeat func(identity.Resolution), logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&ContextMiddleware{Team: team, Collection: collection})
	p.Use(&TrimMiddleware{})
	p.Use(&PriceRequiredMiddleware{})
	p.Use(&ImageLimitMiddleware{Max: types.MaxImages})
	p.Use(NewResolveMiddleware(resolver, onRepeat))
	return p
}
