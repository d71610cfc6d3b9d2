package services

import (
	"context"
	"fmt"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/feed"
	"catalog-sync-service/internal/models"
)

// indexKeyBatchSize is the number of business keys per catalog query.
const indexKeyBatchSize = 250

// IndexService builds the per-run index of existing remote products, keyed
// by first-variant barcode under the same normalization rules applied to
// feed values.
type IndexService struct {
	client clients.CatalogClient
}

// NewIndexService creates a new index service
func NewIndexService(client clients.CatalogClient) *IndexService {
	return &IndexService{client: client}
}

// BuildIndex queries the remote catalog for every key and returns the
// key -> RemoteProductRef mapping. Keys are queried in bounded batches; each
// batch follows cursor pagination until exhausted. First writer wins on
// duplicate keys.
func (s *IndexService) BuildIndex(ctx context.Context, rc *RunContext, keys []string) (map[string]models.RemoteProductRef, error) {
	index := make(map[string]models.RemoteProductRef, len(keys))

	for start := 0; start < len(keys); start += indexKeyBatchSize {
		end := start + indexKeyBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		cursor := ""
		for {
			page, err := s.client.QueryProductRefs(ctx, batch, cursor)
			if err != nil {
				return nil, fmt.Errorf("catalog index query failed: %w", err)
			}
			for _, ref := range page.Refs {
				key := feed.NormalizeKey(ref.Barcode)
				if key == "" {
					continue
				}
				if _, exists := index[key]; exists {
					continue
				}
				index[key] = models.RemoteProductRef{
					ProductID:       ref.ProductID,
					InventoryItemID: ref.InventoryItemID,
				}
			}
			if !page.HasMore {
				break
			}
			cursor = page.NextCursor
		}
	}

	rc.Log.WithField("matched", len(index)).Info("Remote catalog index built")
	rc.Progress.Advance(ProgressIndexWeight)
	return index, nil
}
