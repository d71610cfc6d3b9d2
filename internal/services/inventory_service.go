package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/feed"
	"catalog-sync-service/internal/models"
)

// InventoryService handles the delisted-products phase: stock zeroing or
// product deletion, selected once per run by policy.
type InventoryService struct {
	client     clients.CatalogClient
	locationID string
	policy     models.DelistedPolicy
}

// NewInventoryService creates a new inventory service
func NewInventoryService(client clients.CatalogClient, locationID string, policy models.DelistedPolicy) *InventoryService {
	return &InventoryService{client: client, locationID: locationID, policy: policy}
}

// ProcessDelisted applies the run's delisted policy to every delisted
// product present in the index. A code absent from the index is not a remote
// error; it is recorded and skipped. Remote-call failures are fatal,
// per-item rejections are recorded and the phase continues.
func (s *InventoryService) ProcessDelisted(ctx context.Context, rc *RunContext, delisted []models.DelistedProduct, index map[string]models.RemoteProductRef) error {
	var refs []models.RemoteProductRef
	for _, product := range delisted {
		key := feed.NormalizeKey(product.Code)
		ref, exists := index[key]
		if !exists {
			rc.Ledger.Add("not found: %s", product.Code)
			continue
		}
		refs = append(refs, ref)
	}

	for start := 0; start < len(refs); start += mutationBatchWidth {
		end := start + mutationBatchWidth
		if end > len(refs) {
			end = len(refs)
		}
		batch := refs[start:end]

		var err error
		if s.policy == models.DelistedDelete {
			err = s.deleteBatch(ctx, rc, batch)
		} else {
			err = s.zeroStockBatch(ctx, rc, batch)
		}
		if err != nil {
			return err
		}
	}

	rc.Log.WithFields(logrus.Fields{
		"delisted": len(delisted),
		"matched":  len(refs),
		"policy":   string(s.policy),
	}).Info("Delisted products processed")
	rc.Progress.Advance(ProgressDelistedWeight)
	return nil
}

// zeroStockBatch issues one combined adjustment with delta zero per item.
// The zero delta is the documented contract: stock converges to zero
// idempotently rather than by a computed negative delta.
func (s *InventoryService) zeroStockBatch(ctx context.Context, rc *RunContext, refs []models.RemoteProductRef) error {
	adjustments := make([]clients.InventoryAdjustment, len(refs))
	for i, ref := range refs {
		adjustments[i] = clients.InventoryAdjustment{
			InventoryItemID: ref.InventoryItemID,
			Delta:           0,
			LocationID:      s.locationID,
		}
	}
	userErrors, err := s.client.AdjustInventory(ctx, adjustments)
	if err != nil {
		return fmt.Errorf("delisted stock adjustment failed: %w", err)
	}
	for _, ue := range userErrors {
		rc.Ledger.Add("delisted stock adjustment rejected: %s", formatUserError(ue))
	}
	return nil
}

// deleteBatch removes the remote product records as one combined mutation.
func (s *InventoryService) deleteBatch(ctx context.Context, rc *RunContext, refs []models.RemoteProductRef) error {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ProductID
	}
	results, err := s.client.DeleteProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("delisted product deletion failed: %w", err)
	}
	for _, result := range results {
		if len(result.UserErrors) > 0 {
			rc.Ledger.Add("deletion rejected for %s: %s", result.ProductID, joinUserErrors(result.UserErrors))
		}
	}
	return nil
}
