package types

import (
	"path"
	"strings"
)

// MaxImages is the number of image slots in the import layout.
const MaxImages = 5

// Product is the record extracted from one product page.
type Product struct {
	// Name is the display name; empty when the page markup is malformed.
	Name string `json:"name"`

	// Description is the raw HTML fragment of the description block.
	Description string `json:"description"`

	// Price is a decimal-looking token. Empty means the page is unusable.
	Price string `json:"price"`

	// Images are absolute image URLs, deduplicated in first-seen order.
	Images []string `json:"images"`

	// SourceID is the product slug, the last path segment of SourceURL.
	SourceID string `json:"source_id"`

	// SourceURL is the page the product was read from.
	SourceURL string `json:"source_url"`

	Team       string `json:"team,omitempty"`
	Collection string `json:"collection"`

	// ExportName is the collision-free name assigned by the identity resolver.
	ExportName string `json:"export_name,omitempty"`
}

// HasPrice reports whether the record may be exported.
func (p *Product) HasPrice() bool {
	return strings.TrimSpace(p.Price) != ""
}

// ExportRecord is one positional import row. It is immutable once built.
type ExportRecord struct {
	// Name is the resolved export name, kept for sinks that index by it.
	Name       string
	SourceURL  string
	Team       string
	Collection string

	values []string
}

// NewExportRecord wraps positional values. The slice is copied.
func NewExportRecord(name, sourceURL, team, collection string, values []string) ExportRecord {
	return ExportRecord{
		Name:       name,
		SourceURL:  sourceURL,
		Team:       team,
		Collection: collection,
		values:     append([]string(nil), values...),
	}
}

// Values returns a copy of the positional row.
func (r ExportRecord) Values() []string {
	return append([]string(nil), r.values...)
}

// Len returns the number of columns in the row.
func (r ExportRecord) Len() int {
	return len(r.values)
}

// Value returns the column at index i, or "" when out of range.
func (r ExportRecord) Value(i int) string {
	if i < 0 || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

// SlugFromURL returns the last path segment of a URL, ignoring query and fragment.
func SlugFromURL(rawURL string) string {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return ""
	}
	return path.Base(s)
}
