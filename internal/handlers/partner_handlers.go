package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tradelink/tradelink-api/internal/middleware"
	"github.com/tradelink/tradelink-api/internal/models"
	"github.com/tradelink/tradelink-api/internal/pricelist"
	"go.uber.org/zap"
)

//
// --- Partner Handlers (Shop-Only) ---
//

// UpdatePriceListInput is the JSON body for POST /v1/partner/update. URL
// is recorded as the feed location; Filename names the local YAML export
// to ingest.
type UpdatePriceListInput struct {
	URL      *string `json:"url"`
	Filename string  `json:"filename" binding:"required"`
}

// UpdatePriceList is the handler for POST /v1/partner/update. It parses
// the supplier's YAML export and reconciles the catalog in one
// transaction: either the full document lands or nothing changes.
func (h *Handlers) UpdatePriceList(c *gin.Context) {
	userID := middleware.UserID(c)

	var input UpdatePriceListInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 1. Validate the feed URL before touching the filesystem.
	if input.URL != nil {
		parsed, err := url.Parse(*input.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid url"})
			return
		}
	}

	// 2. Read and parse the export.
	data, err := os.ReadFile(input.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price list file not found"})
		return
	}

	doc, err := pricelist.Parse(data)
	if err != nil {
		var fieldErr *pricelist.FieldError
		if errors.As(err, &fieldErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fieldErr.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed price list: " + err.Error()})
		return
	}

	// 3. Run the reconciliation.
	stats, err := h.Importer.Run(c.Request.Context(), userID, input.URL, doc)
	if err != nil {
		var conflict *pricelist.ConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusBadRequest, gin.H{"error": conflict.Message})
			return
		}
		h.Log.Error("price list import failed", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import price list"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Price list imported",
		"shop_id": stats.ShopID,
		"created": stats.Created,
		"updated": stats.Updated,
		"deleted": stats.Deleted,
	})
}

// UpdateItemStatusInput is the JSON body for POST /v1/partner/status/:order_item_id.
type UpdateItemStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateItemStatus is the handler for POST /v1/partner/status/:order_item_id.
// Fulfilment only moves forward; skipping intermediate stages is fine,
// going back is not. When the last line of an order reaches delivered the
// order itself closes.
func (h *Handlers) UpdateItemStatus(c *gin.Context) {
	userID := middleware.UserID(c)

	itemID, err := strconv.ParseInt(c.Param("order_item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order item not found"})
		return
	}

	var input UpdateItemStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ItemStatusValid(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + input.Status})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	// 1. Look up the line scoped to the caller's shop. A line belonging to
	// another supplier, or still sitting in a basket, reads as absent.
	var current string
	var orderID int64
	err = tx.QueryRow(`
		SELECT oi.status, oi.order_id
		FROM order_items oi
		JOIN product_info pi ON oi.product_info_id = pi.id
		JOIN shops s ON pi.shop_id = s.id
		JOIN orders o ON oi.order_id = o.id
		WHERE oi.id = ? AND s.user_id = ? AND o.status <> 'basket'
		FOR UPDATE`, itemID, userID).Scan(&current, &orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order item"})
		return
	}

	// 2. Enforce the forward-only progression.
	if !models.CanTransition(current, input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot move item from '" + current + "' to '" + input.Status + "'",
		})
		return
	}

	if _, err := tx.Exec("UPDATE order_items SET status = ? WHERE id = ?", input.Status, itemID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	// 3. Close the order once every line is delivered. Rescanning all
	// lines keeps the derivation correct no matter which supplier moved
	// last.
	orderClosed := false
	if input.Status == models.ItemStatusDelivered {
		var pending int
		err = tx.QueryRow(
			"SELECT COUNT(*) FROM order_items WHERE order_id = ? AND status <> ?",
			orderID, models.ItemStatusDelivered).Scan(&pending)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check order completion"})
			return
		}
		if pending == 0 {
			if _, err := tx.Exec(
				"UPDATE orders SET status = 'close', updated_at = NOW() WHERE id = ?",
				orderID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close order"})
				return
			}
			orderClosed = true
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	// 4. Tell the buyer after commit.
	newStatus := input.Status
	go func() {
		msg, err := h.Composer.ItemStatusChanged(context.Background(), itemID, models.ItemStatusLabel(newStatus))
		if err != nil {
			h.Log.Error("failed to compose status notification",
				zap.Int64("order_item_id", itemID), zap.Error(err))
			return
		}
		if msg != nil {
			h.Notify.Enqueue(*msg)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"status": newStatus, "order_closed": orderClosed})
}

// GetPartnerOrders is the handler for GET /v1/partner/orders. It lists
// placed orders containing at least one of the caller's offerings, with
// totals covering only the caller's lines.
func (h *Handlers) GetPartnerOrders(c *gin.Context) {
	userID := middleware.UserID(c)

	rows, err := h.DB.Query(`
		SELECT o.id, o.user_id, o.status, o.created_at, o.updated_at,
			SUM(oi.quantity * pi.price)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN product_info pi ON oi.product_info_id = pi.id
		JOIN shops s ON pi.shop_id = s.id
		WHERE s.user_id = ? AND o.status <> 'basket'
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
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status,
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

// GetPartnerOrderDetails is the handler for GET /v1/partner/orders/:id.
// Only the caller's lines are returned; an order without any reads as
// absent.
func (h *Handlers) GetPartnerOrderDetails(c *gin.Context) {
	userID := middleware.UserID(c)
	orderID := c.Param("id")

	var order models.Order
	err := h.DB.QueryRow(`
		SELECT DISTINCT o.id, o.user_id, o.status, o.created_at, o.updated_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN product_info pi ON oi.product_info_id = pi.id
		JOIN shops s ON pi.shop_id = s.id
		WHERE o.id = ? AND s.user_id = ? AND o.status <> 'basket'`,
		orderID, userID).Scan(&order.ID, &order.UserID, &order.Status,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT oi.id, oi.order_id, oi.product_info_id, oi.quantity, oi.status,
			p.name, pi.model, cat.name, s.name, pi.price
		FROM order_items oi
		JOIN product_info pi ON oi.product_info_id = pi.id
		JOIN products p ON pi.product_id = p.id
		JOIN categories cat ON p.category_id = cat.id
		JOIN shops s ON pi.shop_id = s.id
		WHERE oi.order_id = ? AND s.user_id = ?
		ORDER BY oi.id`, order.ID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order items"})
		return
	}
	defer rows.Close()

	items := []models.OrderItem{}
	total := order.TotalSum
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductInfoID, &item.Quantity,
			&item.Status, &item.ProductName, &item.Model, &item.CategoryName,
			&item.ShopName, &item.Price); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order item"})
			return
		}
		item.LineTotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.LineTotal)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating order items"})
		return
	}
	order.Items = items
	order.TotalSum = total

	c.JSON(http.StatusOK, gin.H{"order": order})
}
