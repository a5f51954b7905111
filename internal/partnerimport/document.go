// Package partnerimport loads and exports shop price lists.
//
// A price list document looks like
//
//	shop: Connected
//	url: https://connected.example.com
//	categories:
//	  - id: 224
//	    name: Smartphones
//	goods:
//	  - id: 4216292
//	    category: 224
//	    model: apple/iphone/xs-max
//	    name: Apple iPhone XS Max 512GB
//	    price: 110000
//	    price_rrc: 116990
//	    quantity: 14
//	    parameters:
//	      "Screen (inch)": 6.5
//	      Color: gold
//
// JSON documents with the same keys are accepted as well.
package partnerimport

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/talkincode/retailhub/pkg/common"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidDocument = errors.New("invalid price list document")
	ErrShopOwned       = errors.New("shop belongs to another user")
)

type Category struct {
	ID   int64  `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
}

type Good struct {
	ID         int64                  `mapstructure:"id" yaml:"id"`
	Category   int64                  `mapstructure:"category" yaml:"category"`
	Model      string                 `mapstructure:"model" yaml:"model"`
	Name       string                 `mapstructure:"name" yaml:"name"`
	Price      string                 `mapstructure:"price" yaml:"price"`
	PriceRrc   string                 `mapstructure:"price_rrc" yaml:"price_rrc"`
	Quantity   int                    `mapstructure:"quantity" yaml:"quantity"`
	Parameters map[string]interface{} `mapstructure:"parameters" yaml:"parameters,omitempty"`
}

type Document struct {
	Shop       string     `mapstructure:"shop" yaml:"shop"`
	Url        string     `mapstructure:"url" yaml:"url,omitempty"`
	Categories []Category `mapstructure:"categories" yaml:"categories"`
	Goods      []Good     `mapstructure:"goods" yaml:"goods"`
}

// Parse decodes a YAML or JSON price list. Scalars are converted loosely, so
// prices and ids may be written as numbers or strings.
func Parse(data []byte) (*Document, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrInvalidDocument, err.Error())
	}
	if raw == nil {
		return nil, errors.Wrap(ErrInvalidDocument, "empty document")
	}

	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(ErrInvalidDocument, err.Error())
	}
	doc.normalize()
	return &doc, nil
}

func (d *Document) normalize() {
	d.Shop = strings.TrimSpace(d.Shop)
	d.Url = strings.TrimSpace(d.Url)
	for i := range d.Categories {
		d.Categories[i].Name = strings.TrimSpace(d.Categories[i].Name)
	}
	for i := range d.Goods {
		g := &d.Goods[i]
		g.Name = strings.TrimSpace(g.Name)
		g.Model = strings.TrimSpace(g.Model)
		g.Price = strings.TrimSpace(g.Price)
		g.PriceRrc = strings.TrimSpace(g.PriceRrc)
		if common.IsEmptyOrNA(g.PriceRrc) {
			g.PriceRrc = g.Price
		}
		for k, v := range g.Parameters {
			g.Parameters[k] = cast.ToString(v)
		}
	}
}

// Validate checks the document before anything is written
func (d *Document) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Wrapf(ErrInvalidDocument, format, args...)
	}
	if d.Shop == "" || utf8.RuneCountInString(d.Shop) > 50 {
		return invalid("shop name must be 1..50 characters")
	}
	if len(d.Url) > 200 {
		return invalid("url is too long")
	}

	categories := make(map[int64]bool, len(d.Categories))
	for i, c := range d.Categories {
		if c.Name == "" || utf8.RuneCountInString(c.Name) > 40 {
			return invalid("categories[%d]: name must be 1..40 characters", i)
		}
		if categories[c.ID] {
			return invalid("categories[%d]: duplicate id %d", i, c.ID)
		}
		categories[c.ID] = true
	}

	ids := make(map[int64]bool, len(d.Goods))
	names := make(map[string]bool, len(d.Goods))
	for i, g := range d.Goods {
		if g.Name == "" || utf8.RuneCountInString(g.Name) > 80 {
			return invalid("goods[%d]: name must be 1..80 characters", i)
		}
		if utf8.RuneCountInString(g.Model) > 80 {
			return invalid("goods[%d]: model is too long", i)
		}
		if !categories[g.Category] {
			return invalid("goods[%d]: unknown category %d", i, g.Category)
		}
		if g.ID != 0 && ids[g.ID] {
			return invalid("goods[%d]: duplicate id %d", i, g.ID)
		}
		if names[g.Name] {
			return invalid("goods[%d]: duplicate name %q", i, g.Name)
		}
		ids[g.ID], names[g.Name] = true, true
		if _, err := parsePrice(g.Price); err != nil {
			return invalid("goods[%d]: price %v", i, err)
		}
		if _, err := parsePrice(g.PriceRrc); err != nil {
			return invalid("goods[%d]: price_rrc %v", i, err)
		}
		if g.Quantity < 0 {
			return invalid("goods[%d]: quantity must be >= 0", i)
		}
		for name, value := range g.Parameters {
			if name == "" || utf8.RuneCountInString(name) > 40 {
				return invalid("goods[%d]: parameter name must be 1..40 characters", i)
			}
			if utf8.RuneCountInString(cast.ToString(value)) > 100 {
				return invalid("goods[%d]: parameter %q value is too long", i, name)
			}
		}
	}
	return nil
}

// ParameterNames returns the parameter names of g in a stable order
func (g Good) ParameterNames() []string {
	names := make([]string, 0, len(g.Parameters))
	for name := range g.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errors.New("is required")
	}
	p, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Errorf("%q is not a number", s)
	}
	if p.IsNegative() {
		return decimal.Zero, errors.New("must be >= 0")
	}
	return p.Round(2), nil
}
