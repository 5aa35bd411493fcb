package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/tradelink/tradelink-api/internal/middleware"
	"github.com/tradelink/tradelink-api/internal/models"
)

//
// --- Basket Handlers (Buyer-Only) ---
//

// BasketItemInput is one {product_info, quantity} entry of a batch request.
type BasketItemInput struct {
	ProductInfo int64 `json:"product_info" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required,gt=0"`
}

// BasketItemsInput is the JSON body for POST and PUT /v1/basket.
type BasketItemsInput struct {
	Items []BasketItemInput `json:"items" binding:"required,min=1,dive"`
}

// basketItemResult reports the outcome for one entry of a batch request.
type basketItemResult struct {
	ProductInfo int64  `json:"product_info"`
	Quantity    int    `json:"quantity,omitempty"`
	ID          int64  `json:"id,omitempty"`
	Error       string `json:"error,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

// AddBasketItems is the handler for POST /v1/basket.
//
// Entries are isolated: a duplicate line or an unknown offering is reported
// in the 'errors' list while the remaining entries are still created. The
// stock check here is advisory only (a warning, not a reservation); the
// authoritative check happens at placement.
func (h *Handlers) AddBasketItems(c *gin.Context) {
	userID := middleware.UserID(c)

	var input BasketItemsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	basketID, err := h.getOrCreateBasketID(tx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Basket initialization failed"})
		return
	}

	var created []basketItemResult
	var failed []basketItemResult

	for _, item := range input.Items {
		var stock int
		err := tx.QueryRow("SELECT quantity FROM product_info WHERE id = ?", item.ProductInfo).Scan(&stock)
		if err != nil {
			if err == sql.ErrNoRows {
				failed = append(failed, basketItemResult{
					ProductInfo: item.ProductInfo,
					Error:       "Offering not found",
				})
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		res, err := tx.Exec(
			"INSERT INTO order_items (order_id, product_info_id, quantity, status) VALUES (?, ?, ?, '')",
			basketID, item.ProductInfo, item.Quantity)
		if err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				failed = append(failed, basketItemResult{
					ProductInfo: item.ProductInfo,
					Error:       "Item is already in the basket",
				})
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item"})
			return
		}

		itemID, _ := res.LastInsertId()
		result := basketItemResult{
			ProductInfo: item.ProductInfo,
			Quantity:    item.Quantity,
			ID:          itemID,
		}
		if item.Quantity > stock {
			result.Warning = fmt.Sprintf("Requested quantity exceeds current stock (%d available)", stock)
		}
		created = append(created, result)
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	response := gin.H{}
	if len(created) > 0 {
		response["created"] = created
	}
	if len(failed) > 0 {
		response["errors"] = failed
	}
	c.JSON(http.StatusOK, response)
}

// UpdateBasketItems is the handler for PUT /v1/basket.
//
// Unlike AddBasketItems, the batch is all-or-nothing: if any entry names a
// line that is not in the basket or asks for more than the supplier has in
// stock, nothing is written.
func (h *Handlers) UpdateBasketItems(c *gin.Context) {
	userID := middleware.UserID(c)

	var input BasketItemsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	basketID, err := h.getOrCreateBasketID(tx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Basket initialization failed"})
		return
	}

	// Validate the whole batch before writing anything.
	type pendingUpdate struct {
		itemID   int64
		quantity int
	}
	var updates []pendingUpdate
	var failed []basketItemResult

	for _, item := range input.Items {
		var itemID int64
		var stock int
		err := tx.QueryRow(`
			SELECT oi.id, pi.quantity
			FROM order_items oi
			JOIN product_info pi ON oi.product_info_id = pi.id
			WHERE oi.order_id = ? AND oi.product_info_id = ?`,
			basketID, item.ProductInfo).Scan(&itemID, &stock)
		if err != nil {
			if err == sql.ErrNoRows {
				failed = append(failed, basketItemResult{
					ProductInfo: item.ProductInfo,
					Error:       "Item is not in the basket",
				})
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if item.Quantity > stock {
			failed = append(failed, basketItemResult{
				ProductInfo: item.ProductInfo,
				Error:       fmt.Sprintf("Requested quantity exceeds current stock (%d available)", stock),
			})
			continue
		}
		updates = append(updates, pendingUpdate{itemID: itemID, quantity: item.Quantity})
	}

	if len(failed) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": failed})
		return
	}

	updated := make([]basketItemResult, 0, len(updates))
	for i, u := range updates {
		if _, err := tx.Exec("UPDATE order_items SET quantity = ? WHERE id = ?", u.quantity, u.itemID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
			return
		}
		updated = append(updated, basketItemResult{
			ProductInfo: input.Items[i].ProductInfo,
			Quantity:    u.quantity,
			ID:          u.itemID,
		})
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// RemoveItemRef is one entry of a DELETE /v1/basket batch: either a numeric
// product_info id or the sentinel "all", which clears the whole basket.
type RemoveItemRef struct {
	All         bool
	ProductInfo int64
}

func (r *RemoveItemRef) UnmarshalJSON(data []byte) error {
	var probe struct {
		ProductInfo json.RawMessage `json:"product_info"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if len(probe.ProductInfo) == 0 {
		return errors.New("product_info is required")
	}

	var sentinel string
	if err := json.Unmarshal(probe.ProductInfo, &sentinel); err == nil {
		if sentinel != "all" {
			return fmt.Errorf("product_info must be a number or \"all\", got %q", sentinel)
		}
		r.All = true
		return nil
	}

	return json.Unmarshal(probe.ProductInfo, &r.ProductInfo)
}

// RemoveBasketItemsInput is the JSON body for DELETE /v1/basket.
type RemoveBasketItemsInput struct {
	Items []RemoveItemRef `json:"items" binding:"required,min=1"`
}

// RemoveBasketItems is the handler for DELETE /v1/basket. The "all"
// sentinel short-circuits and clears the basket unconditionally; otherwise
// every referenced line must exist or nothing is deleted.
func (h *Handlers) RemoveBasketItems(c *gin.Context) {
	userID := middleware.UserID(c)

	var input RemoveBasketItemsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	basketID, err := h.getOrCreateBasketID(tx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Basket initialization failed"})
		return
	}

	for _, ref := range input.Items {
		if ref.All {
			if _, err := tx.Exec("DELETE FROM order_items WHERE order_id = ?", basketID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear basket"})
				return
			}
			if err := tx.Commit(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Basket cleared"})
			return
		}
	}

	var itemIDs []int64
	var failed []basketItemResult
	for _, ref := range input.Items {
		var itemID int64
		err := tx.QueryRow(
			"SELECT id FROM order_items WHERE order_id = ? AND product_info_id = ?",
			basketID, ref.ProductInfo).Scan(&itemID)
		if err != nil {
			if err == sql.ErrNoRows {
				failed = append(failed, basketItemResult{
					ProductInfo: ref.ProductInfo,
					Error:       "Item is not in the basket",
				})
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		itemIDs = append(itemIDs, itemID)
	}

	if len(failed) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": failed})
		return
	}

	for _, itemID := range itemIDs {
		if _, err := tx.Exec("DELETE FROM order_items WHERE id = ?", itemID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Items removed", "deleted": len(itemIDs)})
}

// GetBasket is the handler for GET /v1/basket.
func (h *Handlers) GetBasket(c *gin.Context) {
	userID := middleware.UserID(c)

	var order models.Order
	err := h.DB.QueryRow(
		"SELECT id, user_id, status, created_at, updated_at FROM orders WHERE user_id = ? AND status = 'basket'",
		userID).Scan(&order.ID, &order.UserID, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusOK, gin.H{"items": []models.OrderItem{}, "totalSum": decimal.Zero})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find basket"})
		return
	}

	items, total, err := h.loadOrderItems(order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load basket items"})
		return
	}
	order.Items = items
	order.TotalSum = total

	c.JSON(http.StatusOK, gin.H{"basket": order})
}

// loadOrderItems fetches an order's lines with product details and returns
// them alongside the order total.
func (h *Handlers) loadOrderItems(orderID int64) ([]models.OrderItem, decimal.Decimal, error) {
	rows, err := h.DB.Query(`
		SELECT oi.id, oi.order_id, oi.product_info_id, oi.quantity, oi.status,
			p.name, pi.model, cat.name, s.name, pi.price
		FROM order_items oi
		JOIN product_info pi ON oi.product_info_id = pi.id
		JOIN products p ON pi.product_id = p.id
		JOIN categories cat ON p.category_id = cat.id
		JOIN shops s ON pi.shop_id = s.id
		WHERE oi.order_id = ?
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	total := decimal.Zero
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductInfoID, &item.Quantity,
			&item.Status, &item.ProductName, &item.Model, &item.CategoryName,
			&item.ShopName, &item.Price); err != nil {
			return nil, decimal.Zero, err
		}
		item.LineTotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.LineTotal)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, err
	}

	return items, total, nil
}
