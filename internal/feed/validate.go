package feed

import (
	"fmt"
	"strings"

	"catalog-sync-service/internal/models"
)

// ValidateIncoming checks the minimal business-validity rules an incoming
// product must satisfy before it may reach the remote mutation layer. The
// returned error names the offending field.
func ValidateIncoming(p models.IncomingProduct) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("empty title")
	}
	if strings.TrimSpace(p.Barcode) == "" {
		return fmt.Errorf("empty barcode")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("negative price %s", p.Price)
	}
	if p.Stock < 0 {
		return fmt.Errorf("negative stock %d", p.Stock)
	}
	return nil
}

// ValidateDelisted checks that a delisted record carries a business key.
func ValidateDelisted(p models.DelistedProduct) error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("empty code")
	}
	return nil
}
