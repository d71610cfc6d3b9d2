package clients

import (
	"context"

	"github.com/shopspring/decimal"
)

// CatalogClient defines the remote catalog operations the sync engine needs.
// Implementations wrap every call with throttle-aware retry.
type CatalogClient interface {
	// QueryProductRefs looks up existing products by an OR-of-exact-key
	// filter over the given business keys, following cursor pagination one
	// page per call.
	QueryProductRefs(ctx context.Context, keys []string, cursor string) (*ProductRefPage, error)

	// ProductSetBatch dispatches one combined create-or-update mutation with
	// one sub-operation per input. Results are positional: result i belongs
	// to input i.
	ProductSetBatch(ctx context.Context, inputs []ProductSetInput) ([]ProductSetResult, error)

	// AdjustInventory applies quantity deltas as one combined mutation.
	AdjustInventory(ctx context.Context, adjustments []InventoryAdjustment) ([]UserError, error)

	// DeleteProducts removes products as one combined mutation. Results are
	// positional.
	DeleteProducts(ctx context.Context, productIDs []string) ([]DeleteResult, error)

	// AttachImage attaches an image by source URL to a product. Best-effort;
	// failures never affect the owning product's create/update outcome.
	AttachImage(ctx context.Context, productID, imageURL string) error
}

// ProductRef is one existing remote product, keyed by its first variant's
// barcode.
type ProductRef struct {
	ProductID       string
	Barcode         string
	InventoryItemID string
}

// ProductRefPage is one page of a product-reference query.
type ProductRefPage struct {
	Refs       []ProductRef
	NextCursor string
	HasMore    bool
}

// ProductSetInput is one sub-operation of a combined create-or-update
// mutation. An empty ProductID requests a create; a non-empty one an
// in-place update.
type ProductSetInput struct {
	ProductID   string
	Title       string
	Description string
	Brand       string
	ProductType string
	SKU         string
	Barcode     string
	Price       decimal.Decimal
}

// UserError is a field-level rejection returned by the remote platform for
// one sub-operation. Recoverable: the item is excluded, the run continues.
type UserError struct {
	Field   string
	Message string
}

// ProductSetResult is the per-item outcome of a combined mutation: either a
// success payload or a non-empty user-error list.
type ProductSetResult struct {
	ProductID       string
	InventoryItemID string
	Created         bool
	UserErrors      []UserError
}

// Failed reports whether the sub-operation was rejected.
func (r ProductSetResult) Failed() bool {
	return len(r.UserErrors) > 0
}

// InventoryAdjustment is one (inventory item, delta, location) triple.
type InventoryAdjustment struct {
	InventoryItemID string
	Delta           int
	LocationID      string
}

// DeleteResult is the per-item outcome of a combined delete mutation.
type DeleteResult struct {
	ProductID  string
	UserErrors []UserError
}
