// Package pricelist parses supplier price-list documents and reconciles
// them into the catalog store.
package pricelist

import (
	"fmt"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"
)

// PriceList is a validated supplier catalog snapshot.
type PriceList struct {
	Shop       string
	Categories []CategoryEntry
	Goods      []Good
}

// CategoryEntry carries the supplier-assigned category id.
type CategoryEntry struct {
	ID   int64
	Name string
}

// Good is one offering in the snapshot. ExternalID is the supplier's own
// product id and, together with the shop, the stable identity of the
// offering across re-uploads.
type Good struct {
	ExternalID int64
	Name       string
	CategoryID int64
	Model      string
	Price      decimal.Decimal
	PriceRRC   decimal.Decimal
	Quantity   int
	Parameters []ParameterEntry
}

// ParameterEntry is a free-form attribute; entries are sorted by name so
// ingestion order is deterministic.
type ParameterEntry struct {
	Name  string
	Value string
}

// FieldError identifies the document section, entry and field that failed
// validation. Index is -1 for top-level sections.
type FieldError struct {
	Section string
	Index   int
	Field   string
	Reason  string
}

func (e *FieldError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("price list: section %q: %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("price list: %s[%d].%s: %s", e.Section, e.Index, e.Field, e.Reason)
}

// rawDocument mirrors the YAML shape before validation.
type rawDocument struct {
	Shop       string        `yaml:"shop"`
	Categories []rawCategory `yaml:"categories"`
	Goods      []rawGood     `yaml:"goods"`
}

type rawCategory struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type rawGood struct {
	ID         int64             `yaml:"id"`
	Name       string            `yaml:"name"`
	Category   int64             `yaml:"category"`
	Model      string            `yaml:"model"`
	Price      float64           `yaml:"price"`
	PriceRRC   float64           `yaml:"price_rrc"`
	Quantity   int               `yaml:"quantity"`
	Parameters map[string]string `yaml:"parameters"`
}

// Parse decodes and validates a YAML price-list document. Any missing
// required field aborts the whole parse with a field-identifying error.
func Parse(data []byte) (*PriceList, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("price list: malformed document: %w", err)
	}

	if raw.Shop == "" {
		return nil, &FieldError{Section: "shop", Index: -1, Reason: "missing shop name"}
	}
	if len(raw.Categories) == 0 {
		return nil, &FieldError{Section: "categories", Index: -1, Reason: "missing or empty categories list"}
	}
	if len(raw.Goods) == 0 {
		return nil, &FieldError{Section: "goods", Index: -1, Reason: "missing or empty goods list"}
	}

	doc := &PriceList{Shop: raw.Shop}

	for i, c := range raw.Categories {
		if c.ID <= 0 {
			return nil, &FieldError{Section: "categories", Index: i, Field: "id", Reason: "must be a positive integer"}
		}
		if c.Name == "" {
			return nil, &FieldError{Section: "categories", Index: i, Field: "name", Reason: "required"}
		}
		doc.Categories = append(doc.Categories, CategoryEntry{ID: c.ID, Name: c.Name})
	}

	for i, g := range raw.Goods {
		if g.ID <= 0 {
			return nil, &FieldError{Section: "goods", Index: i, Field: "id", Reason: "must be a positive integer"}
		}
		if g.Name == "" {
			return nil, &FieldError{Section: "goods", Index: i, Field: "name", Reason: "required"}
		}
		if g.Category <= 0 {
			return nil, &FieldError{Section: "goods", Index: i, Field: "category", Reason: "required"}
		}
		if g.Model == "" {
			return nil, &FieldError{Section: "goods", Index: i, Field: "model", Reason: "required"}
		}
		if g.Price <= 0 {
			return nil, &FieldError{Section: "goods", Index: i, Field: "price", Reason: "must be greater than zero"}
		}
		if g.PriceRRC <= 0 {
			return nil, &FieldError{Section: "goods", Index: i, Field: "price_rrc", Reason: "must be greater than zero"}
		}
		if g.Quantity < 0 {
			return nil, &FieldError{Section: "goods", Index: i, Field: "quantity", Reason: "must not be negative"}
		}

		good := Good{
			ExternalID: g.ID,
			Name:       g.Name,
			CategoryID: g.Category,
			Model:      g.Model,
			Price:      decimal.NewFromFloat(g.Price).Round(2),
			PriceRRC:   decimal.NewFromFloat(g.PriceRRC).Round(2),
			Quantity:   g.Quantity,
		}
		for name, value := range g.Parameters {
			if name == "" {
				return nil, &FieldError{Section: "goods", Index: i, Field: "parameters", Reason: "empty parameter name"}
			}
			good.Parameters = append(good.Parameters, ParameterEntry{Name: name, Value: value})
		}
		sort.Slice(good.Parameters, func(a, b int) bool {
			return good.Parameters[a].Name < good.Parameters[b].Name
		})

		doc.Goods = append(doc.Goods, good)
	}

	return doc, nil
}
