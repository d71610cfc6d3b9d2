package feed

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"catalog-sync-service/internal/models"
)

const delimiter = ";"

// Positional column schema of the incoming-products feed.
const (
	colCode = iota
	colTitle
	colDescription
	colBrand
	colCategory
	colSubcategory
	colBarcode
	colPrice
	colStock
	colAuxCode
	colImageURL

	incomingColumns = 11
)

// The delisted feed carries six columns but only the product code is consumed.
const (
	delistedColCode = 0
	delistedColumns = 6
)

// ParseIncoming decodes the new/updated-products feed into normalized records.
// Rows that fail structural parsing are skipped with a warning; an entirely
// empty feed is an error. Source order is preserved.
func ParseIncoming(r io.Reader, logger logrus.FieldLogger) ([]models.IncomingProduct, error) {
	var products []models.IncomingProduct

	err := scanRows(r, func(lineNo int, fields []string) {
		if len(fields) < incomingColumns {
			logger.WithFields(logrus.Fields{
				"line":    lineNo,
				"columns": len(fields),
			}).Warn("Skipping malformed incoming feed row")
			return
		}
		products = append(products, models.IncomingProduct{
			Code:        fields[colCode],
			Title:       fields[colTitle],
			Description: fields[colDescription],
			Brand:       fields[colBrand],
			Category:    fields[colCategory],
			Subcategory: fields[colSubcategory],
			Barcode:     fields[colBarcode],
			Price:       parsePrice(fields[colPrice]),
			Stock:       parseStock(fields[colStock]),
			AuxCode:     fields[colAuxCode],
			ImageURL:    fields[colImageURL],
		})
	})
	if err != nil {
		return nil, err
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("incoming feed contains no rows")
	}
	return products, nil
}

// ParseDelisted decodes the out-of-stock feed. Only the product code column
// is consumed.
func ParseDelisted(r io.Reader, logger logrus.FieldLogger) ([]models.DelistedProduct, error) {
	var products []models.DelistedProduct

	err := scanRows(r, func(lineNo int, fields []string) {
		if len(fields) < delistedColumns || fields[delistedColCode] == "" {
			logger.WithFields(logrus.Fields{
				"line":    lineNo,
				"columns": len(fields),
			}).Warn("Skipping malformed delisted feed row")
			return
		}
		products = append(products, models.DelistedProduct{Code: fields[delistedColCode]})
	})
	if err != nil {
		return nil, err
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("delisted feed contains no rows")
	}
	return products, nil
}

// scanRows decodes the legacy single-byte feed encoding to UTF-8, splits each
// line on the feed delimiter and hands cleaned fields to fn.
func scanRows(r io.Reader, fn func(lineNo int, fields []string)) error {
	decoded := transform.NewReader(r, charmap.Windows1255.NewDecoder())
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		raw := strings.Split(line, delimiter)
		fields := make([]string, len(raw))
		for i, f := range raw {
			fields[i] = CleanField(f)
		}
		fn(lineNo, fields)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read feed: %w", err)
	}
	return nil
}

// parsePrice casts the price column to a decimal; parse failure yields zero.
func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseStock casts the stock column to an integer, floor-truncating
// fractional quantities; parse failure yields zero.
func parseStock(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(math.Floor(f))
	}
	return 0
}
