package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/feed"
	"catalog-sync-service/internal/models"
)

const (
	// mutationBatchWidth is the maximum number of sub-operations per
	// combined mutation.
	mutationBatchWidth = 50

	// maxTextLength bounds free-text fields before they are embedded in a
	// mutation.
	maxTextLength = 255
)

// ReconcileOutcome summarizes the create/update counts of the
// reconciliation phase.
type ReconcileOutcome struct {
	Created int
	Updated int
}

// ReconcileService is the sync engine: it decides create vs. update per
// validated product, dispatches combined mutations in bounded batches and
// merges per-item results into the run's failure ledger.
type ReconcileService struct {
	client     clients.CatalogClient
	locationID string
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(client clients.CatalogClient, locationID string) *ReconcileService {
	return &ReconcileService{client: client, locationID: locationID}
}

// Reconcile processes validated incoming products in source order, one batch
// at a time. A remote-call failure is fatal and aborts the phase; per-item
// rejections are recorded and skipped. Matching is solely by business key,
// so re-running with identical input and remote state performs only updates.
func (s *ReconcileService) Reconcile(ctx context.Context, rc *RunContext, products []models.IncomingProduct, index map[string]models.RemoteProductRef) (*ReconcileOutcome, error) {
	outcome := &ReconcileOutcome{}
	total := len(products)
	if total == 0 {
		rc.Progress.Advance(ProgressReconcileWeight)
		return outcome, nil
	}

	awarded := 0
	for start := 0; start < total; start += mutationBatchWidth {
		end := start + mutationBatchWidth
		if end > total {
			end = total
		}
		batch := products[start:end]

		if err := s.reconcileBatch(ctx, rc, batch, index, outcome); err != nil {
			return nil, err
		}

		// Apportion the phase weight by cumulative item count so rounding
		// never pushes the phase past its share.
		cumulative := ProgressReconcileWeight * end / total
		rc.Progress.Advance(cumulative - awarded)
		awarded = cumulative
	}

	rc.Log.WithFields(logrus.Fields{
		"created": outcome.Created,
		"updated": outcome.Updated,
	}).Info("Reconciliation completed")
	return outcome, nil
}

// reconcileBatch dispatches one combined create-or-update mutation and one
// combined inventory adjustment for the batch.
func (s *ReconcileService) reconcileBatch(ctx context.Context, rc *RunContext, batch []models.IncomingProduct, index map[string]models.RemoteProductRef, outcome *ReconcileOutcome) error {
	inputs := make([]clients.ProductSetInput, len(batch))
	for i, product := range batch {
		key := feed.NormalizeKey(product.Barcode)
		input := clients.ProductSetInput{
			Title:       sanitizeText(product.Title),
			Description: sanitizeText(product.Description),
			Brand:       product.Brand,
			ProductType: productType(product),
			SKU:         product.Code,
			Barcode:     key,
			Price:       product.Price,
		}
		if ref, exists := index[key]; exists {
			input.ProductID = ref.ProductID
		}
		inputs[i] = input
	}

	results, err := s.client.ProductSetBatch(ctx, inputs)
	if err != nil {
		return fmt.Errorf("product mutation batch failed: %w", err)
	}

	var adjustments []clients.InventoryAdjustment
	for i, result := range results {
		product := batch[i]
		if result.Failed() {
			rc.Ledger.Add("sync failed for %s (barcode %s): %s",
				product.Code, product.Barcode, joinUserErrors(result.UserErrors))
			continue
		}

		if result.Created {
			outcome.Created++
		} else {
			outcome.Updated++
		}

		inventoryItemID := result.InventoryItemID
		if inventoryItemID == "" {
			if ref, exists := index[feed.NormalizeKey(product.Barcode)]; exists {
				inventoryItemID = ref.InventoryItemID
			}
		}
		if inventoryItemID == "" {
			rc.Ledger.Add("no inventory item for %s (barcode %s)", product.Code, product.Barcode)
		} else {
			adjustments = append(adjustments, clients.InventoryAdjustment{
				InventoryItemID: inventoryItemID,
				Delta:           product.Stock,
				LocationID:      s.locationID,
			})
		}

		// Image attachment is best-effort and only for newly created
		// products; failure never affects the item's sync outcome.
		if result.Created && product.ImageURL != "" {
			if err := s.client.AttachImage(ctx, result.ProductID, product.ImageURL); err != nil {
				rc.Ledger.Add("image upload failed for %s: %v", product.Code, err)
			}
		}
	}

	if len(adjustments) > 0 {
		userErrors, err := s.client.AdjustInventory(ctx, adjustments)
		if err != nil {
			return fmt.Errorf("inventory adjustment batch failed: %w", err)
		}
		for _, ue := range userErrors {
			rc.Ledger.Add("inventory adjustment rejected: %s", formatUserError(ue))
		}
	}

	return nil
}

// sanitizeText strips encoding artifacts and bounds length before a value
// is embedded in a mutation.
func sanitizeText(s string) string {
	return feed.TruncateRunes(feed.StripArtifacts(s), maxTextLength)
}

func productType(p models.IncomingProduct) string {
	if p.Subcategory == "" {
		return p.Category
	}
	return p.Category + " > " + p.Subcategory
}

func formatUserError(ue clients.UserError) string {
	if ue.Field == "" {
		return ue.Message
	}
	return ue.Field + ": " + ue.Message
}

func joinUserErrors(errs []clients.UserError) string {
	parts := make([]string, len(errs))
	for i, ue := range errs {
		parts[i] = formatUserError(ue)
	}
	return strings.Join(parts, "; ")
}
