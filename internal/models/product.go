package models

import (
	"github.com/shopspring/decimal"
)

// IncomingProduct is one row of the new/updated-products feed after
// normalization. Matching against the remote catalog is by Barcode.
type IncomingProduct struct {
	Code        string          `json:"code"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Barcode     string          `json:"barcode"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	AuxCode     string          `json:"auxCode"`
	ImageURL    string          `json:"imageUrl"`
}

// DelistedProduct is one row of the out-of-stock feed. Matching against the
// remote catalog is by Code.
type DelistedProduct struct {
	Code string `json:"code"`
}

// RemoteProductRef identifies an existing remote product by the identifiers
// needed for updates and inventory adjustments.
type RemoteProductRef struct {
	ProductID       string `json:"productId"`
	InventoryItemID string `json:"inventoryItemId"`
}

// DelistedPolicy selects how delisted products are handled, resolved once per
// run from configuration.
type DelistedPolicy string

const (
	// DelistedZeroStock zeroes remote stock but keeps the product record.
	DelistedZeroStock DelistedPolicy = "zero-stock"
	// DelistedDelete removes the remote product record entirely.
	DelistedDelete DelistedPolicy = "delete"
)

// Valid reports whether p is a known policy value.
func (p DelistedPolicy) Valid() bool {
	return p == DelistedZeroStock || p == DelistedDelete
}
