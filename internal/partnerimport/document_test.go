package partnerimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
shop: Connected
url: https://connected.example.com
categories:
  - id: 224
    name: Smartphones
  - id: 15
    name: Accessories
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Apple iPhone XS Max 512GB
    price: 110000
    price_rrc: 116990
    quantity: 14
    parameters:
      "Screen (inch)": 6.5
      Color: gold
  - id: 4216313
    category: 15
    model: case
    name: Leather case
    price: "19.99"
    price_rrc: N/A
    quantity: 3
`

func TestParseYAML(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, doc.Validate())

	assert.Equal(t, "Connected", doc.Shop)
	require.Len(t, doc.Categories, 2)
	assert.Equal(t, int64(224), doc.Categories[0].ID)
	require.Len(t, doc.Goods, 2)

	g := doc.Goods[0]
	assert.Equal(t, int64(4216292), g.ID)
	assert.Equal(t, "110000", g.Price)
	assert.Equal(t, "116990", g.PriceRrc)
	assert.Equal(t, 14, g.Quantity)
	assert.Equal(t, "6.5", g.Parameters["Screen (inch)"])
	assert.Equal(t, []string{"Color", "Screen (inch)"}, g.ParameterNames())

	// a missing recommended price falls back to the price
	assert.Equal(t, "19.99", doc.Goods[1].PriceRrc)
}

func TestParseJSON(t *testing.T) {
	doc, err := Parse([]byte(`{"shop":"Json Shop","categories":[{"id":"1","name":"Books"}],
		"goods":[{"id":7,"category":1,"name":"Go book","price":25.5,"quantity":"2"}]}`))
	require.NoError(t, err)
	require.NoError(t, doc.Validate())
	assert.Equal(t, int64(1), doc.Categories[0].ID)
	assert.Equal(t, "25.5", doc.Goods[0].Price)
	assert.Equal(t, 2, doc.Goods[0].Quantity)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("- just\n- a list\n"))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Parse([]byte(""))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestValidate(t *testing.T) {
	base := func() *Document {
		return &Document{
			Shop:       "s",
			Categories: []Category{{ID: 1, Name: "c"}},
			Goods:      []Good{{ID: 1, Category: 1, Name: "g", Price: "1.00", PriceRrc: "1.00", Quantity: 1}},
		}
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(d *Document){
		"no shop":          func(d *Document) { d.Shop = "" },
		"unknown category": func(d *Document) { d.Goods[0].Category = 9 },
		"negative price":   func(d *Document) { d.Goods[0].Price = "-1" },
		"bad price":        func(d *Document) { d.Goods[0].Price = "cheap" },
		"missing price":    func(d *Document) { d.Goods[0].Price = "" },
		"negative qty":     func(d *Document) { d.Goods[0].Quantity = -1 },
		"duplicate good": func(d *Document) {
			d.Goods = append(d.Goods, Good{ID: 1, Category: 1, Name: "h", Price: "1", PriceRrc: "1"})
		},
		"duplicate name": func(d *Document) {
			d.Goods = append(d.Goods, Good{ID: 2, Category: 1, Name: "g", Price: "1", PriceRrc: "1"})
		},
		"duplicate category": func(d *Document) { d.Categories = append(d.Categories, Category{ID: 1, Name: "x"}) },
		"long parameter": func(d *Document) {
			d.Goods[0].Parameters = map[string]interface{}{"Color": string(make([]byte, 101))}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := base()
			mutate(d)
			assert.ErrorIs(t, d.Validate(), ErrInvalidDocument)
		})
	}
}
