package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shop is the model for the 'shops' table. One per supplier account,
// created on the first price-list upload.
type Shop struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"-" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	URL        *string    `json:"url,omitempty" db:"url"`
	LastUpdate *time.Time `json:"lastUpdate,omitempty" db:"last_update"`
}

// Category is the model for the 'categories' table. Ids come from the
// suppliers' price lists, not from auto increment, so the same category
// can be shared across shops.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Product is the abstract catalog entry. Concrete stock and pricing live
// in ProductInfo, one row per shop that carries it.
type Product struct {
	ID         int64  `json:"id" db:"id"`
	CategoryID int64  `json:"categoryId" db:"category_id"`
	Name       string `json:"name" db:"name"`
}

// ProductInfo is one shop's offering of a product. ExternalID is the
// supplier's own id from its price list and stays stable across uploads.
type ProductInfo struct {
	ID         int64           `json:"id" db:"id"`
	ProductID  int64           `json:"productId" db:"product_id"`
	ShopID     int64           `json:"shopId" db:"shop_id"`
	ExternalID int64           `json:"externalId" db:"external_id"`
	Model      string          `json:"model" db:"model"`
	Quantity   int             `json:"quantity" db:"quantity"`
	Price      decimal.Decimal `json:"price" db:"price"`
	PriceRRC   decimal.Decimal `json:"priceRrc" db:"price_rrc"`

	// Joined fields, populated by catalog queries.
	ProductName  string             `json:"productName" db:"-"`
	CategoryID   int64              `json:"categoryId" db:"-"`
	CategoryName string             `json:"categoryName" db:"-"`
	ShopName     string             `json:"shopName" db:"-"`
	Parameters   []ProductParameter `json:"parameters,omitempty" db:"-"`
}

// Parameter is a characteristic name shared across offerings.
type Parameter struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// ProductParameter is one characteristic value of an offering.
type ProductParameter struct {
	ProductInfoID int64  `json:"-" db:"product_info_id"`
	ParameterID   int64  `json:"-" db:"parameter_id"`
	Name          string `json:"name" db:"-"`
	Value         string `json:"value" db:"value"`
}
