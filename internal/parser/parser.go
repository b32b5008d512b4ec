// Package parser reads product records and listing links out of catalog markup.
package parser

import (
	"github.com/IshaanNene/capexport/internal/types"
)

// Extractor turns one product page's markup into a record.
// Implementations must be pure: the same input always yields the same record,
// and missing fields are left empty rather than reported as errors.
type Extractor interface {
	Extract(markup, sourceID string) types.Product
}
