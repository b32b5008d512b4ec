package export

// Header is the storefront bulk-import layout. Column order is part of the contract.
var Header = []string{
	"Item Type",
	"Product ID",
	"Product Name",
	"Product Type",
	"Product Code/SKU",
	"Bin Picking Number",
	"Brand Name",
	"Option Set",
	"Option Set Align",
	"Product Description",
	"Price",
	"Cost Price",
	"Retail Price",
	"Sale Price",
	"Fixed Shipping Cost",
	"Free Shipping",
	"Product Warranty",
	"Product Weight",
	"Product Width",
	"Product Height",
	"Product Depth",
	"Allow Purchases?",
	"Product Visible?",
	"Product Availability",
	"Track Inventory",
	"Current Stock Level",
	"Low Stock Level",
	"Category",
	"Product Image ID - 1",
	"Product Image File - 1",
	"Product Image Description - 1",
	"Product Image Is Thumbnail - 1",
	"Product Image Sort - 1",
	"Product Image ID - 2",
	"Product Image File - 2",
	"Product Image Description - 2",
	"Product Image Is Thumbnail - 2",
	"Product Image Sort - 2",
	"Product Image ID - 3",
	"Product Image File - 3",
	"Product Image Description - 3",
	"Product Image Is Thumbnail - 3",
	"Product Image Sort - 3",
	"Product Image ID - 4",
	"Product Image File - 4",
	"Product Image Description - 4",
	"Product Image Is Thumbnail - 4",
	"Product Image Sort - 4",
	"Product Image ID - 5",
	"Product Image File - 5",
	"Product Image Description - 5",
	"Product Image Is Thumbnail - 5",
	"Product Image Sort - 5",
	"Search Keywords",
	"Page Title",
	"Meta Keywords",
	"Meta Description",
	"MYOB Asset Acct",
	"MYOB Income Acct",
	"MYOB Expense Acct",
	"Product Condition",
	"Show Product Condition?",
	"Event Date Required?",
	"Event Date Name",
	"Event Date Is Limited?",
	"Event Date Start Date",
	"Event Date End Date",
	"Sort Order",
	"Product Tax Class",
	"Product UPC/EAN",
	"Stop Processing Rules",
	"Product URL",
	"Redirect Old URL?",
	"GPS Global Trade Item Number",
	"GPS Manufacturer Part Number",
	"GPS Gender",
	"GPS Age Group",
	"GPS Color",
	"GPS Size",
	"GPS Material",
	"GPS Pattern",
	"GPS Item Group ID",
	"GPS Category",
	"GPS Enabled",
	"Avalara Product Tax Code",
	"Product Custom Fields",
}

// Columns is the width of every export row.
var Columns = len(Header)
