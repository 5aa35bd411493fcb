package notify

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Composer builds notification messages from relational reads. Handlers use
// it after their transaction commits and pass the results to the
// Dispatcher.
type Composer struct {
	DB *sql.DB
}

type orderLine struct {
	quantity      int
	productName   string
	categoryName  string
	shopName      string
	supplierID    int64
	supplierEmail string
}

// OrderPlaced composes the placement fan-out: one summary for the buyer and
// one message per distinct supplier, each scoped to only that supplier's
// line items.
func (c *Composer) OrderPlaced(ctx context.Context, orderID int64) ([]Message, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT oi.quantity, p.name, cat.name, s.name, su.id, su.email, b.id, b.email,
			ct.city, ct.street, ct.house, ct.phone
		FROM order_items oi
		JOIN product_info pi ON oi.product_info_id = pi.id
		JOIN products p ON pi.product_id = p.id
		JOIN categories cat ON p.category_id = cat.id
		JOIN shops s ON pi.shop_id = s.id
		JOIN users su ON s.user_id = su.id
		JOIN orders o ON oi.order_id = o.id
		JOIN users b ON o.user_id = b.id
		JOIN contacts ct ON o.contact_id = ct.id
		WHERE oi.order_id = ?
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %d for notification: %w", orderID, err)
	}
	defer rows.Close()

	var lines []orderLine
	var buyerID int64
	var buyerEmail, contactLine string
	for rows.Next() {
		var l orderLine
		var city, street, house, phone string
		if err := rows.Scan(&l.quantity, &l.productName, &l.categoryName, &l.shopName,
			&l.supplierID, &l.supplierEmail, &buyerID, &buyerEmail,
			&city, &street, &house, &phone); err != nil {
			return nil, err
		}
		contactLine = fmt.Sprintf("%s, %s %s, phone %s", city, street, house, phone)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("order %d has no line items", orderID)
	}

	var buyerBody strings.Builder
	fmt.Fprintf(&buyerBody, "Order #%d has been placed.\nOrder contents:\n\n", orderID)
	for _, l := range lines {
		fmt.Fprintf(&buyerBody, "Shop: %s\nCategory: %s\nProduct: %s\nQuantity: %d\n\n",
			l.shopName, l.categoryName, l.productName, l.quantity)
	}

	messages := []Message{{
		UserID:  buyerID,
		To:      buyerEmail,
		Subject: "Your order has been placed",
		Body:    buyerBody.String(),
	}}

	// One message per distinct supplier, in first-appearance order.
	bySupplier := make(map[int64]*strings.Builder)
	var supplierOrder []int64
	supplierEmails := make(map[int64]string)
	for _, l := range lines {
		b, ok := bySupplier[l.supplierID]
		if !ok {
			b = &strings.Builder{}
			fmt.Fprintf(b, "You received order #%d.\nCustomer: %s\nDelivery contact: %s\nOrder contents:\n\n",
				orderID, buyerEmail, contactLine)
			bySupplier[l.supplierID] = b
			supplierEmails[l.supplierID] = l.supplierEmail
			supplierOrder = append(supplierOrder, l.supplierID)
		}
		fmt.Fprintf(b, "Category: %s\nProduct: %s\nQuantity: %d\n\n",
			l.categoryName, l.productName, l.quantity)
	}
	for _, supplierID := range supplierOrder {
		messages = append(messages, Message{
			UserID:  supplierID,
			To:      supplierEmails[supplierID],
			Subject: "New order received",
			Body:    bySupplier[supplierID].String(),
		})
	}

	return messages, nil
}

// ItemStatusChanged composes the buyer-facing message for a line-item
// transition. statusLabel is the human-readable form of the new status.
func (c *Composer) ItemStatusChanged(ctx context.Context, itemID int64, statusLabel string) (*Message, error) {
	var orderID, buyerID int64
	var buyerEmail, productName string
	err := c.DB.QueryRowContext(ctx, `
		SELECT oi.order_id, b.id, b.email, p.name
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id
		JOIN users b ON o.user_id = b.id
		JOIN product_info pi ON oi.product_info_id = pi.id
		JOIN products p ON pi.product_id = p.id
		WHERE oi.id = ?`, itemID).Scan(&orderID, &buyerID, &buyerEmail, &productName)
	if err != nil {
		return nil, fmt.Errorf("load order item %d for notification: %w", itemID, err)
	}

	body := fmt.Sprintf("Order #%d: item %d (%s) is now %q.", orderID, itemID, productName, statusLabel)
	return &Message{
		UserID:  buyerID,
		To:      buyerEmail,
		Subject: "Order status updated",
		Body:    body,
	}, nil
}
