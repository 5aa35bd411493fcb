package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tradelink/tradelink-api/internal/models"
)

//
// --- Catalog Handlers (Public) ---
//

// GetProducts is the handler for GET /v1/products.
// Supports optional ?shop_id= and ?category_id= filters.
func (h *Handlers) GetProducts(c *gin.Context) {
	query := `
		SELECT pi.id, pi.product_id, pi.shop_id, pi.external_id, pi.model,
			pi.quantity, pi.price, pi.price_rrc,
			p.name, p.category_id, cat.name, s.name
		FROM product_info pi
		JOIN products p ON pi.product_id = p.id
		JOIN categories cat ON p.category_id = cat.id
		JOIN shops s ON pi.shop_id = s.id`

	var args []interface{}
	where := ""
	if shopID := c.Query("shop_id"); shopID != "" {
		where += " AND pi.shop_id = ?"
		args = append(args, shopID)
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		where += " AND p.category_id = ?"
		args = append(args, categoryID)
	}
	if where != "" {
		query += " WHERE" + where[4:] // strip the leading " AND"
	}
	query += " ORDER BY pi.id"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query products"})
		return
	}
	defer rows.Close()

	products := []models.ProductInfo{}
	for rows.Next() {
		var info models.ProductInfo
		if err := rows.Scan(&info.ID, &info.ProductID, &info.ShopID, &info.ExternalID,
			&info.Model, &info.Quantity, &info.Price, &info.PriceRRC,
			&info.ProductName, &info.CategoryID, &info.CategoryName, &info.ShopName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		products = append(products, info)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct is the handler for GET /v1/products/:id. It returns a single
// offering together with its parameters.
func (h *Handlers) GetProduct(c *gin.Context) {
	infoID := c.Param("id")

	var info models.ProductInfo
	err := h.DB.QueryRow(`
		SELECT pi.id, pi.product_id, pi.shop_id, pi.external_id, pi.model,
			pi.quantity, pi.price, pi.price_rrc,
			p.name, p.category_id, cat.name, s.name
		FROM product_info pi
		JOIN products p ON pi.product_id = p.id
		JOIN categories cat ON p.category_id = cat.id
		JOIN shops s ON pi.shop_id = s.id
		WHERE pi.id = ?`, infoID).Scan(
		&info.ID, &info.ProductID, &info.ShopID, &info.ExternalID,
		&info.Model, &info.Quantity, &info.Price, &info.PriceRRC,
		&info.ProductName, &info.CategoryID, &info.CategoryName, &info.ShopName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT par.name, pp.value
		FROM product_parameters pp
		JOIN parameters par ON pp.parameter_id = par.id
		WHERE pp.product_info_id = ?
		ORDER BY par.name`, info.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch parameters"})
		return
	}
	defer rows.Close()

	for rows.Next() {
		var p models.ProductParameter
		if err := rows.Scan(&p.Name, &p.Value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan parameter"})
			return
		}
		info.Parameters = append(info.Parameters, p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating parameters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": info})
}

// GetCategories is the handler for GET /v1/categories.
func (h *Handlers) GetCategories(c *gin.Context) {
	rows, err := h.DB.Query("SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query categories"})
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan category"})
			return
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetShops is the handler for GET /v1/shops.
func (h *Handlers) GetShops(c *gin.Context) {
	rows, err := h.DB.Query("SELECT id, name, url, last_update FROM shops ORDER BY id")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query shops"})
		return
	}
	defer rows.Close()

	shops := []models.Shop{}
	for rows.Next() {
		var shop models.Shop
		if err := rows.Scan(&shop.ID, &shop.Name, &shop.URL, &shop.LastUpdate); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan shop"})
			return
		}
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating shops"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"shops": shops})
}
