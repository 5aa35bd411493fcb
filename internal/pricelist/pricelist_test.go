package pricelist

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
shop: Svyaznoy
categories:
  - id: 224
    name: Smartphones
  - id: 15
    name: Accessories
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Smartphone Apple iPhone XS Max 512GB (gold)
    price: 110000.00
    price_rrc: 116990.00
    quantity: 14
    parameters:
      "Screen size (inch)": "6.5"
      "Color": "gold"
  - id: 4216313
    category: 224
    model: apple/iphone/xr
    name: Smartphone Apple iPhone XR 256GB (red)
    price: 65000
    price_rrc: 69990
    quantity: 9
    parameters:
      "Color": "red"
  - id: 9900001
    category: 15
    model: apple/cable/lightning
    name: Lightning cable 1m
    price: 1500
    price_rrc: 1990
    quantity: 120
    parameters: {}
  - id: 9900002
    category: 15
    model: apple/case/xr
    name: Silicone case iPhone XR
    price: 2500
    price_rrc: 2990
    quantity: 44
    parameters:
      "Color": "black"
`

func TestParseValidDocument(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "Svyaznoy", doc.Shop)
	require.Len(t, doc.Categories, 2)
	assert.Equal(t, int64(224), doc.Categories[0].ID)
	assert.Equal(t, "Smartphones", doc.Categories[0].Name)

	require.Len(t, doc.Goods, 4)
	first := doc.Goods[0]
	assert.Equal(t, int64(4216292), first.ExternalID)
	assert.Equal(t, int64(224), first.CategoryID)
	assert.Equal(t, "apple/iphone/xs-max", first.Model)
	assert.Equal(t, 14, first.Quantity)
	assert.True(t, first.Price.Equal(decimal.NewFromFloat(110000.00)), first.Price.String())
	assert.True(t, first.PriceRRC.Equal(decimal.NewFromFloat(116990.00)))
}

func TestParseSortsParametersByName(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	params := doc.Goods[0].Parameters
	require.Len(t, params, 2)
	assert.Equal(t, "Color", params[0].Name)
	assert.Equal(t, "gold", params[0].Value)
	assert.Equal(t, "Screen size (inch)", params[1].Name)
}

func TestParseMissingShop(t *testing.T) {
	_, err := Parse([]byte("categories:\n  - id: 1\n    name: A\ngoods:\n  - id: 1\n"))
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "shop", fieldErr.Section)
	assert.Equal(t, -1, fieldErr.Index)
}

func TestParseMissingTopLevelSections(t *testing.T) {
	_, err := Parse([]byte("shop: X\ngoods:\n  - id: 1\n"))
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "categories", fieldErr.Section)

	_, err = Parse([]byte("shop: X\ncategories:\n  - id: 1\n    name: A\n"))
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "goods", fieldErr.Section)
}

func TestParseIdentifiesBadGoodField(t *testing.T) {
	doc := `
shop: X
categories:
  - id: 1
    name: A
goods:
  - id: 7
    category: 1
    model: m
    name: thing
    price: 0
    price_rrc: 10
    quantity: 1
`
	_, err := Parse([]byte(doc))
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "goods", fieldErr.Section)
	assert.Equal(t, 0, fieldErr.Index)
	assert.Equal(t, "price", fieldErr.Field)
}

func TestParseIdentifiesBadCategoryEntry(t *testing.T) {
	doc := `
shop: X
categories:
  - id: 1
    name: A
  - id: 2
goods:
  - id: 7
    category: 1
    model: m
    name: thing
    price: 10
    price_rrc: 12
    quantity: 1
`
	_, err := Parse([]byte(doc))
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "categories", fieldErr.Section)
	assert.Equal(t, 1, fieldErr.Index)
	assert.Equal(t, "name", fieldErr.Field)
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("shop: [unterminated"))
	assert.Error(t, err)
}
