package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/IshaanNene/capexport/internal/identity"
	"github.com/IshaanNene/capexport/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newProduct(name, desc, price string) *types.Product {
	return &types.Product{
		Name:        name,
		Description: desc,
		Price:       price,
		SourceURL:   "http://shop.example.com/products/" + name,
	}
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	result, err := p.Process(newProduct("  Classic Cap  ", "", " 24.99 "))
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Name != "Classic Cap" {
		t.Errorf("expected trimmed name, got %q", result.Name)
	}
	if result.Price != "24.99" {
		t.Errorf("expected trimmed price, got %q", result.Price)
	}
}

func TestPriceRequiredMiddleware(t *testing.T) {
	m := &PriceRequiredMiddleware{}

	if result, err := m.Process(newProduct("Cap", "", "10.00")); err != nil || result == nil {
		t.Errorf("product with price should pass, got %v, %v", result, err)
	}

	for _, price := range []string{"", "   "} {
		result, err := m.Process(newProduct("Cap", "", price))
		if !errors.Is(err, types.ErrMissingPrice) {
			t.Errorf("price %q: expected ErrMissingPrice, got %v", price, err)
		}
		if result != nil {
			t.Errorf("price %q: expected no product", price)
		}
	}
}

func TestPipelineWrapsStageError(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(&PriceRequiredMiddleware{})

	prod := newProduct("Cap", "", "")
	_, err := p.Process(prod)

	var itemErr *types.ItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("expected *types.ItemError, got %T", err)
	}
	if itemErr.Stage != "price_required" {
		t.Errorf("expected stage price_required, got %q", itemErr.Stage)
	}
	if itemErr.URL != prod.SourceURL {
		t.Errorf("expected url %q, got %q", prod.SourceURL, itemErr.URL)
	}
	if !errors.Is(err, types.ErrMissingPrice) {
		t.Error("expected error chain to contain ErrMissingPrice")
	}
}

type dropMiddleware struct{}

func (dropMiddleware) Name() string { return "drop" }
func (dropMiddleware) Process(*types.Product) (*types.Product, error) {
	return nil, nil
}

func TestPipelineDropStopsChain(t *testing.T) {
	called := false
	p := New(testLogger)
	p.Use(dropMiddleware{})
	p.Use(NewResolveMiddleware(identity.NewResolver(identity.NewCounting()), func(identity.Resolution) {
		called = true
	}))

	result, err := p.Process(newProduct("Cap", "", "1"))
	if err != nil || result != nil {
		t.Fatalf("expected silent drop, got %v, %v", result, err)
	}
	if called {
		t.Error("stages after a drop must not run")
	}
}

func TestImageLimitMiddleware(t *testing.T) {
	m := &ImageLimitMiddleware{Max: types.MaxImages}
	prod := newProduct("Cap", "", "1")
	prod.Images = []string{"a", "b", "c", "d", "e", "f", "g"}

	result, _ := m.Process(prod)
	if !reflect.DeepEqual(result.Images, []string{"a", "b", "c", "d", "e"}) {
		t.Errorf("unexpected images %v", result.Images)
	}

	prod.Images = []string{"a"}
	result, _ = m.Process(prod)
	if len(result.Images) != 1 {
		t.Errorf("short image list should be untouched, got %v", result.Images)
	}
}

func TestProductPipelineResolvesNames(t *testing.T) {
	tests := []struct {
		strategy identity.Strategy
		want     []string
	}{
		{identity.NewCounting(), []string{"Classic Cap", "Classic Cap II"}},
		{identity.NewContentDiff(), []string{"Classic Cap", "Classic Cap Red"}},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.Name(), func(t *testing.T) {
			repeats := 0
			p := NewProductPipeline("Boston-Bruins", "NHL", identity.NewResolver(tt.strategy), func(identity.Resolution) {
				repeats++
			}, testLogger)

			var got []string
			for _, desc := range []string{"Blue wool cap", "Red wool cap"} {
				result, err := p.Process(newProduct("Classic Cap", desc, "24.99"))
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if result.Team != "Boston-Bruins" || result.Collection != "NHL" {
					t.Errorf("context not stamped: %q/%q", result.Team, result.Collection)
				}
				got = append(got, result.ExportName)
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if repeats != 1 {
				t.Errorf("expected 1 repeat callback, got %d", repeats)
			}
		})
	}
}

func TestRejectedProductDoesNotRegisterName(t *testing.T) {
	p := NewProductPipeline("", "knits", identity.NewResolver(identity.NewCounting()), nil, testLogger)

	if _, err := p.Process(newProduct("Beanie", "", "")); err == nil {
		t.Fatal("expected missing price error")
	}
	result, err := p.Process(newProduct("Beanie", "", "12.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExportName != "Beanie" {
		t.Errorf("rejected product must not count as first sighting, got %q", result.ExportName)
	}
}

func TestPaddedNamesCollideAfterTrim(t *testing.T) {
	p := NewProductPipeline("", "dad-hats", identity.NewResolver(identity.NewCounting()), nil, testLogger)

	var got []string
	for _, name := range []string{"Dad Hat", "  Dad Hat\n"} {
		result, err := p.Process(newProduct(name, "", "20.00"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, result.ExportName)
	}

	want := []string{"Dad Hat", "Dad Hat II"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPipelineNames(t *testing.T) {
	p := NewProductPipeline("", "", identity.NewResolver(identity.NewCounting()), nil, testLogger)
	want := []string{"context", "trim", "price_required", "image_limit", "resolve"}
	if !reflect.DeepEqual(p.Names(), want) {
		t.Errorf("expected %v, got %v", want, p.Names())
	}
	if p.Len() != len(want) {
		t.Errorf("expected len %d, got %d", len(want), p.Len())
	}
}
