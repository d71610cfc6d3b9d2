package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/clients"
)

// fakeCatalogClient is an in-memory CatalogClient that records every call.
// Pre-seed it with existing remote products via newFakeCatalogClient.
type fakeCatalogClient struct {
	mu   sync.Mutex
	refs []clients.ProductRef

	// pageSize caps refs per QueryProductRefs page; zero means everything
	// in one page.
	pageSize int

	// failBarcodes maps a barcode to a user-error message returned for its
	// sub-operation.
	failBarcodes map[string]string

	// dropUpdateInventoryID omits InventoryItemID from update results.
	dropUpdateInventoryID bool

	queryErr  error
	setErr    error
	adjustErr error
	imageErr  error

	adjustUserErrors []clients.UserError
	deleteUserErrors map[string]string

	queryCalls  int
	setBatches  [][]clients.ProductSetInput
	adjustCalls [][]clients.InventoryAdjustment
	deleteCalls [][]string
	imageCalls  []string

	nextID int
}

func newFakeCatalogClient(existing ...clients.ProductRef) *fakeCatalogClient {
	return &fakeCatalogClient{
		refs:             existing,
		failBarcodes:     make(map[string]string),
		deleteUserErrors: make(map[string]string),
	}
}

func (f *fakeCatalogClient) QueryProductRefs(_ context.Context, keys []string, cursor string) (*clients.ProductRefPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		wanted[key] = true
	}
	var matched []clients.ProductRef
	for _, ref := range f.refs {
		if wanted[ref.Barcode] {
			matched = append(matched, ref)
		}
	}

	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := len(matched)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}
	if start > end {
		start = end
	}

	return &clients.ProductRefPage{
		Refs:       matched[start:end],
		NextCursor: strconv.Itoa(end),
		HasMore:    end < len(matched),
	}, nil
}

func (f *fakeCatalogClient) ProductSetBatch(_ context.Context, inputs []clients.ProductSetInput) ([]clients.ProductSetResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setBatches = append(f.setBatches, inputs)
	if f.setErr != nil {
		return nil, f.setErr
	}

	results := make([]clients.ProductSetResult, len(inputs))
	for i, input := range inputs {
		if msg, rejected := f.failBarcodes[input.Barcode]; rejected {
			results[i] = clients.ProductSetResult{
				UserErrors: []clients.UserError{{Field: "barcode", Message: msg}},
			}
			continue
		}
		if input.ProductID == "" {
			f.nextID++
			results[i] = clients.ProductSetResult{
				ProductID:       fmt.Sprintf("prod-new-%d", f.nextID),
				InventoryItemID: fmt.Sprintf("inv-new-%d", f.nextID),
				Created:         true,
			}
			continue
		}
		result := clients.ProductSetResult{ProductID: input.ProductID}
		if !f.dropUpdateInventoryID {
			for _, ref := range f.refs {
				if ref.ProductID == input.ProductID {
					result.InventoryItemID = ref.InventoryItemID
					break
				}
			}
		}
		results[i] = result
	}
	return results, nil
}

func (f *fakeCatalogClient) AdjustInventory(_ context.Context, adjustments []clients.InventoryAdjustment) ([]clients.UserError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjustCalls = append(f.adjustCalls, adjustments)
	if f.adjustErr != nil {
		return nil, f.adjustErr
	}
	return f.adjustUserErrors, nil
}

func (f *fakeCatalogClient) DeleteProducts(_ context.Context, productIDs []string) ([]clients.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, productIDs)

	results := make([]clients.DeleteResult, len(productIDs))
	for i, id := range productIDs {
		results[i] = clients.DeleteResult{ProductID: id}
		if msg, rejected := f.deleteUserErrors[id]; rejected {
			results[i].UserErrors = []clients.UserError{{Message: msg}}
		}
	}
	return results, nil
}

func (f *fakeCatalogClient) AttachImage(_ context.Context, productID, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls = append(f.imageCalls, productID+" "+imageURL)
	return f.imageErr
}

func testRunContext() *RunContext {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return NewRunContext(logger, nil)
}
