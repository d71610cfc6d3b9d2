package feed

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

// encodeLegacy converts UTF-8 test fixtures into the single-byte feed
// encoding, as the upstream export produces it.
func encodeLegacy(t *testing.T, s string) []byte {
	t.Helper()
	encoded, err := charmap.Windows1255.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return encoded
}

func TestParseIncoming(t *testing.T) {
	raw := encodeLegacy(t, "001;Widget;desc;BrandX;Cat;Sub;1234567890123;19.99;10;BEC1;http://img\n")

	products, err := ParseIncoming(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "001", p.Code)
	assert.Equal(t, "Widget", p.Title)
	assert.Equal(t, "desc", p.Description)
	assert.Equal(t, "BrandX", p.Brand)
	assert.Equal(t, "Cat", p.Category)
	assert.Equal(t, "Sub", p.Subcategory)
	assert.Equal(t, "1234567890123", p.Barcode)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, "BEC1", p.AuxCode)
	assert.Equal(t, "http://img", p.ImageURL)
}

func TestParseIncomingHebrewFields(t *testing.T) {
	raw := encodeLegacy(t, "002;מוצר בדיקה;תיאור;מותג;קטגוריה;תת;7290000000001;5.50;3;X;\n")

	products, err := ParseIncoming(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "מוצר בדיקה", products[0].Title)
	assert.Equal(t, "7290000000001", products[0].Barcode)
}

func TestParseIncomingStripsQuotesAndArtifacts(t *testing.T) {
	raw := []byte("003;\"Widget\";desc;B;C;S;\"123\";1.00;1;A;u\n")

	products, err := ParseIncoming(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "Widget", products[0].Title)
	assert.Equal(t, "123", products[0].Barcode)
}

func TestParseIncomingSkipsMalformedRows(t *testing.T) {
	raw := []byte("too;few;columns\n004;T;d;B;C;S;999;2.00;5;A;u\n")

	products, err := ParseIncoming(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "004", products[0].Code)
}

func TestParseIncomingPreservesOrder(t *testing.T) {
	raw := []byte("1;A;d;B;C;S;111;1;1;x;u\n2;B;d;B;C;S;222;1;1;x;u\n3;C;d;B;C;S;333;1;1;x;u\n")

	products, err := ParseIncoming(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "111", products[0].Barcode)
	assert.Equal(t, "222", products[1].Barcode)
	assert.Equal(t, "333", products[2].Barcode)
}

func TestParseIncomingNumericFallbacks(t *testing.T) {
	raw := []byte("005;T;d;B;C;S;999;not-a-price;not-a-stock;A;u\n")

	products, err := ParseIncoming(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	assert.True(t, products[0].Price.IsZero())
	assert.Equal(t, 0, products[0].Stock)
}

func TestParseIncomingFloorsFractionalStock(t *testing.T) {
	raw := []byte("006;T;d;B;C;S;999;1.00;7.9;A;u\n")

	products, err := ParseIncoming(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	assert.Equal(t, 7, products[0].Stock)
}

func TestParseIncomingEmptyFeedFails(t *testing.T) {
	_, err := ParseIncoming(strings.NewReader(""), testLogger())
	assert.Error(t, err)

	_, err = ParseIncoming(strings.NewReader("\n\n"), testLogger())
	assert.Error(t, err)
}

func TestParseDelisted(t *testing.T) {
	raw := []byte("999;x;x;x;x;x\n888;y;y;y;y;y\n")

	products, err := ParseDelisted(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "999", products[0].Code)
	assert.Equal(t, "888", products[1].Code)
}

func TestParseDelistedSkipsShortRows(t *testing.T) {
	raw := []byte("too;short\n777;a;b;c;d;e\n")

	products, err := ParseDelisted(bytes.NewReader(raw), testLogger())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "777", products[0].Code)
}

func TestParseDelistedEmptyFeedFails(t *testing.T) {
	_, err := ParseDelisted(strings.NewReader(""), testLogger())
	assert.Error(t, err)
}
