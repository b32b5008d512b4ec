package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/IshaanNene/capexport/internal/config"
	"github.com/IshaanNene/capexport/internal/types"
)

// RegexExtractor extracts product fields with regular expressions.
type RegexExtractor struct {
	name        *regexp.Regexp
	description *regexp.Regexp
	price       *regexp.Regexp
	image       *regexp.Regexp
	skipMarkers []string
	imageScheme string
}

// NewRegexExtractor compiles the configured product-page patterns.
func NewRegexExtractor(pc config.ParserConfig, imageScheme string) (*RegexExtractor, error) {
	e := &RegexExtractor{
		skipMarkers: append([]string(nil), pc.ImageSkipMarkers...),
		imageScheme: imageScheme,
	}
	for _, p := range []struct {
		field   string
		pattern string
		dst     **regexp.Regexp
	}{
		{"name", pc.NamePattern, &e.name},
		{"description", pc.DescriptionPattern, &e.description},
		{"price", pc.PricePattern, &e.price},
		{"image", pc.ImagePattern, &e.image},
	} {
		re, err := regexp.Compile(p.pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", p.field, p.pattern, err)
		}
		*p.dst = re
	}
	return e, nil
}

// NewDefaultExtractor returns an extractor for the default catalog layout.
func NewDefaultExtractor() *RegexExtractor {
	cfg := config.DefaultConfig()
	e, err := NewRegexExtractor(cfg.Parser, cfg.Site.ImageScheme)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract implements Extractor.
func (e *RegexExtractor) Extract(markup, sourceID string) types.Product {
	return types.Product{
		Name:        firstMatch(e.name, markup),
		Description: firstMatch(e.description, markup),
		Price:       firstMatch(e.price, markup),
		Images:      e.images(markup, sourceID),
		SourceID:    sourceID,
	}
}

// images keeps candidates that mention the slug and are not an oversized variant.
func (e *RegexExtractor) images(markup, sourceID string) []string {
	slug := strings.ToLower(sourceID)
	seen := make(map[string]struct{})
	var images []string

	for _, candidate := range e.image.FindAllString(markup, -1) {
		if !strings.Contains(strings.ToLower(candidate), slug) {
			continue
		}
		if e.oversized(candidate) {
			continue
		}
		u := e.imageScheme + candidate
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		images = append(images, u)
	}
	return images
}

func (e *RegexExtractor) oversized(candidate string) bool {
	for _, marker := range e.skipMarkers {
		if strings.Contains(candidate, marker) {
			return true
		}
	}
	return false
}

// firstMatch returns the first capture group of the first match, or the whole
// match for patterns without groups.
func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return m[1]
	default:
		return m[0]
	}
}
