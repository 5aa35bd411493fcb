package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tradelink/tradelink-api/internal/middleware"
	"github.com/tradelink/tradelink-api/internal/models"
	"go.uber.org/zap"
)

//
// --- Order Handlers (Buyer-Only) ---
//

// PlaceOrderInput is the JSON body for POST /v1/order. ContactID is
// optional when the buyer has at least one saved contact.
type PlaceOrderInput struct {
	ContactID *int64 `json:"contact_id"`
}

// PlaceOrder is the handler for POST /v1/order. It converts the basket
// into a placed order under a serializable transaction: every line's stock
// is checked and decremented with the offering rows locked, so two buyers
// cannot both claim the last unit.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	userID := middleware.UserID(c)

	var input PlaceOrderInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 1. Start a serializable transaction. Stock decrements race with
	// other checkouts and with price-list ingestion.
	tx, err := h.DB.BeginTx(c.Request.Context(), &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	// 2. Find and lock the basket.
	var basketID int64
	err = tx.QueryRow(
		"SELECT id FROM orders WHERE user_id = ? AND status = 'basket' FOR UPDATE",
		userID).Scan(&basketID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Basket is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find basket"})
		return
	}

	// 3. Lock the basket lines together with their offerings.
	type checkoutLine struct {
		itemID        int64
		productInfoID int64
		quantity      int
		stock         int
		productName   string
	}
	rows, err := tx.Query(`
		SELECT oi.id, oi.product_info_id, oi.quantity, pi.quantity, p.name
		FROM order_items oi
		JOIN product_info pi ON oi.product_info_id = pi.id
		JOIN products p ON pi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id
		FOR UPDATE`, basketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load basket items"})
		return
	}

	var lines []checkoutLine
	for rows.Next() {
		var line checkoutLine
		if err := rows.Scan(&line.itemID, &line.productInfoID, &line.quantity, &line.stock, &line.productName); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan basket item"})
			return
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating basket items"})
		return
	}
	rows.Close()

	if len(lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Basket is empty"})
		return
	}

	// 4. Resolve the delivery contact. An explicit contact_id must belong
	// to the caller; otherwise fall back to the first saved contact.
	var contactID int64
	if input.ContactID != nil {
		err = tx.QueryRow(
			"SELECT id FROM contacts WHERE id = ? AND user_id = ?",
			*input.ContactID, userID).Scan(&contactID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve contact"})
			return
		}
	} else {
		err = tx.QueryRow(
			"SELECT id FROM contacts WHERE user_id = ? ORDER BY id LIMIT 1",
			userID).Scan(&contactID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Add a delivery contact before placing an order"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve contact"})
			return
		}
	}

	// 5. Validate stock before touching anything. The first violation
	// fails the whole checkout.
	for _, line := range lines {
		if line.quantity > line.stock {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Insufficient stock for %q: %d requested, %d available",
					line.productName, line.quantity, line.stock),
			})
			return
		}
	}

	// 6. Decrement stock and mark every line as new.
	for _, line := range lines {
		if _, err := tx.Exec(
			"UPDATE product_info SET quantity = quantity - ? WHERE id = ?",
			line.quantity, line.productInfoID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reserve stock"})
			return
		}
	}
	if _, err := tx.Exec(
		"UPDATE order_items SET status = ? WHERE order_id = ?",
		models.ItemStatusNew, basketID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order items"})
		return
	}

	// 7. Promote the basket to a placed order.
	if _, err := tx.Exec(
		"UPDATE orders SET status = 'placed', contact_id = ?, updated_at = NOW() WHERE id = ?",
		contactID, basketID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	// 8. Fan out the confirmation emails after commit so a mail failure
	// can never undo a placed order.
	orderID := basketID
	go func() {
		messages, err := h.Composer.OrderPlaced(context.Background(), orderID)
		if err != nil {
			h.Log.Error("failed to compose order notifications",
				zap.Int64("order_id", orderID), zap.Error(err))
			return
		}
		for _, msg := range messages {
			h.Notify.Enqueue(msg)
		}
	}()

	c.JSON(http.StatusCreated, gin.H{"message": "Order placed", "id": orderID})
}

// GetMyOrders is the handler for GET /v1/order. Baskets are not orders
// and never appear here.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID := middleware.UserID(c)

	rows, err := h.DB.Query(`
		SELECT o.id, o.user_id, o.status, o.contact_id, o.created_at, o.updated_at,
			COALESCE(SUM(oi.quantity * pi.price), 0)
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN product_info pi ON oi.product_info_id = pi.id
		WHERE o.user_id = ? AND o.status <> 'basket'
		GROUP BY o.id
		ORDER BY o.created_at DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query orders"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.ContactID,
			&order.CreatedAt, &order.UpdatedAt, &order.TotalSum); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderDetails is the handler for GET /v1/order/:id. A basket id or
// another buyer's order id both read as absent.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	userID := middleware.UserID(c)
	orderID := c.Param("id")

	var order models.Order
	err := h.DB.QueryRow(`
		SELECT id, user_id, status, contact_id, created_at, updated_at
		FROM orders
		WHERE id = ? AND user_id = ? AND status <> 'basket'`,
		orderID, userID).Scan(&order.ID, &order.UserID, &order.Status,
		&order.ContactID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	items, total, err := h.loadOrderItems(order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order items"})
		return
	}
	order.Items = items
	order.TotalSum = total

	c.JSON(http.StatusOK, gin.H{"order": order})
}
