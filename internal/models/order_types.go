package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. A buyer has at most one 'basket' order at a time; placing
// it moves it to 'placed', and it closes once every line item is delivered.
const (
	OrderStatusBasket = "basket"
	OrderStatusPlaced = "placed"
	OrderStatusClose  = "close"
)

// Line-item fulfillment statuses, in delivery-pipeline order. A line has no
// status while its order is still a basket.
const (
	ItemStatusNew         = "new"
	ItemStatusConfirmed   = "confirmed"
	ItemStatusAssembled   = "assembled"
	ItemStatusTransferred = "transferred"
	ItemStatusSend        = "send"
	ItemStatusDelivered   = "delivered"
)

// itemStatusRank orders the pipeline. Transitions may only move forward;
// skipping ahead is allowed (a supplier can mark 'delivered' straight from
// 'assembled'), moving backward or to an unknown status is not.
var itemStatusRank = map[string]int{
	ItemStatusNew:         0,
	ItemStatusConfirmed:   1,
	ItemStatusAssembled:   2,
	ItemStatusTransferred: 3,
	ItemStatusSend:        4,
	ItemStatusDelivered:   5,
}

// ItemStatusValid reports whether s names a fulfillment status at all.
func ItemStatusValid(s string) bool {
	_, ok := itemStatusRank[s]
	return ok
}

// CanTransition reports whether a line item may move from 'from' to 'to'.
func CanTransition(from, to string) bool {
	fromRank, ok := itemStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := itemStatusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// ItemStatusLabel is the human-readable form used in notifications.
func ItemStatusLabel(s string) string {
	switch s {
	case ItemStatusNew:
		return "awaiting confirmation"
	case ItemStatusConfirmed:
		return "confirmed by supplier"
	case ItemStatusAssembled:
		return "assembled"
	case ItemStatusTransferred:
		return "handed over for delivery"
	case ItemStatusSend:
		return "in transit"
	case ItemStatusDelivered:
		return "delivered"
	}
	return s
}

// Order is the model for the 'orders' table.
type Order struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Status    string    `json:"status" db:"status"`
	ContactID *int64    `json:"contactId,omitempty" db:"contact_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Joins, populated manually.
	Items    []OrderItem     `json:"items,omitempty" db:"-"`
	TotalSum decimal.Decimal `json:"totalSum" db:"-"`
}

// OrderItem is one shop offering's quantity within an order, individually
// status-tracked by the owning supplier after placement.
type OrderItem struct {
	ID            int64  `json:"id" db:"id"`
	OrderID       int64  `json:"orderId" db:"order_id"`
	ProductInfoID int64  `json:"productInfo" db:"product_info_id"`
	Quantity      int    `json:"quantity" db:"quantity"`
	Status        string `json:"status,omitempty" db:"status"`

	// Joins, populated manually.
	ProductName  string          `json:"productName,omitempty" db:"-"`
	Model        string          `json:"model,omitempty" db:"-"`
	CategoryName string          `json:"categoryName,omitempty" db:"-"`
	ShopName     string          `json:"shopName,omitempty" db:"-"`
	Price        decimal.Decimal `json:"price" db:"-"`
	LineTotal    decimal.Decimal `json:"lineTotal" db:"-"`
}
