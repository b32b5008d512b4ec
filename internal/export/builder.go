package export

import (
	"strings"

	"github.com/IshaanNene/capexport/internal/types"
)

// Column positions in Header.
const (
	colItemType          = 0
	colName              = 2
	colProductType       = 3
	colOptionSetAlign    = 8
	colDescription       = 9
	colPrice             = 10
	colCostPrice         = 11
	colRetailPrice       = 12
	colSalePrice         = 13
	colFixedShipping     = 14
	colFreeShipping      = 15
	colWeight            = 17
	colWidth             = 18
	colHeight            = 19
	colDepth             = 20
	colAllowPurchases    = 21
	colVisible           = 22
	colTrackInventory    = 24
	colStockLevel        = 25
	colLowStockLevel     = 26
	colCategory          = 27
	colFirstImage        = 29
	colFirstThumbnail    = 31
	colFirstImageSort    = 32
	imageStride          = 5
	colCondition         = 60
	colShowCondition     = 61
	colEventDateRequired = 62
	colEventDateName     = 63
	colEventDateLimited  = 64
	colSortOrder         = 67
	colTaxClass          = 68
	colStopProcessing    = 70
	colGPSEnabled        = 83
)

// CategoryRoot prefixes every category path. The escaped slash is literal.
const CategoryRoot = `Shop/Caps \/ Hats`

// fixed holds the columns whose value never depends on the product.
var fixed = map[int]string{
	colItemType:          "Product",
	colProductType:       "P",
	colOptionSetAlign:    "Right",
	colCostPrice:         "0.00",
	colRetailPrice:       "0.00",
	colSalePrice:         "0.00",
	colFixedShipping:     "0.00",
	colFreeShipping:      "N",
	colWeight:            "16.0000",
	colWidth:             "0.0000",
	colHeight:            "0.0000",
	colDepth:             "0.0000",
	colAllowPurchases:    "Y",
	colVisible:           "Y",
	colTrackInventory:    "none",
	colStockLevel:        "0",
	colLowStockLevel:     "0",
	colFirstThumbnail:    "Y",
	colFirstImageSort:    "0",
	colCondition:         "New",
	colShowCondition:     "N",
	colEventDateRequired: "N",
	colEventDateName:     "Delivery Date",
	colEventDateLimited:  "N",
	colSortOrder:         "0",
	colTaxClass:          "Non - Taxable Products",
	colStopProcessing:    "N",
	colGPSEnabled:        "N",
}

// Build maps a resolved product onto the import layout. The export name is
// used when set, otherwise the extracted name. Images beyond MaxImages are
// dropped; missing image slots stay empty.
func Build(p types.Product, team, collection string) types.ExportRecord {
	row := make([]string, Columns)
	for i, v := range fixed {
		row[i] = v
	}

	name := p.ExportName
	if name == "" {
		name = p.Name
	}

	row[colName] = name
	row[colDescription] = "<p><span>" + SanitizeDescription(p.Description) + "</span></p>"
	row[colPrice] = p.Price
	row[colCategory] = CategoryPath(collection, team)

	for i, img := range p.Images {
		if i >= types.MaxImages {
			break
		}
		row[colFirstImage+i*imageStride] = img
	}

	return types.NewExportRecord(name, p.SourceURL, team, collection, row)
}

// SanitizeDescription flattens a description onto one line.
func SanitizeDescription(desc string) string {
	desc = strings.Trim(desc, " \n\r")
	return strings.NewReplacer("\r", "", "\n", "").Replace(desc)
}

// CategoryPath is the storefront category for a team within a collection.
// Team tokens use '-' as a word separator.
func CategoryPath(collection, team string) string {
	return CategoryRoot + "/" + collection + "/" + strings.ReplaceAll(team, "-", " ")
}
