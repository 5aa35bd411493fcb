package pricelist

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ConflictError is an integrity conflict between the document and existing
// catalog data (shop name mismatch, category id collision, duplicate
// external id). Reported to the supplier, never silently merged.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Stats summarizes one reconciliation run.
type Stats struct {
	ShopID  int64
	Created int
	Updated int
	Deleted int
}

// Importer reconciles parsed price lists into the catalog store. The whole
// run executes in a single transaction: a buyer can never observe a
// half-replaced catalog, and any failure leaves the previous snapshot
// intact.
type Importer struct {
	DB  *sql.DB
	Log *zap.Logger
}

// Run reconciles doc as the catalog of the shop owned by userID.
//
// Offerings are keyed by (shop, external_id). Rows present in both the old
// and the new snapshot are updated in place so their ids survive and open
// basket/order lines keep their references; rows absent from the new
// snapshot are deleted (their basket lines cascade). After a successful run
// the shop's offering set is exactly the document's goods list.
func (imp *Importer) Run(ctx context.Context, userID int64, url *string, doc *PriceList) (*Stats, error) {
	tx, err := imp.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ingestion: %w", err)
	}
	defer tx.Rollback()

	stats := &Stats{}
	now := time.Now()

	// The shop row doubles as the advisory lock: concurrent ingestions for
	// the same supplier, and placements reading its offerings FOR UPDATE,
	// serialize behind it.
	var shopID int64
	var shopName string
	err = tx.QueryRow("SELECT id, name FROM shops WHERE user_id = ? FOR UPDATE", userID).Scan(&shopID, &shopName)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO shops (name, url, user_id, last_update) VALUES (?, ?, ?, ?)",
			doc.Shop, url, userID, now)
		if err != nil {
			return nil, fmt.Errorf("create shop: %w", err)
		}
		if shopID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("load shop: %w", err)
	default:
		if shopName != doc.Shop {
			return nil, &ConflictError{
				Field:   "shop",
				Message: fmt.Sprintf("price list names shop %q but your shop is registered as %q", doc.Shop, shopName),
			}
		}
		if _, err := tx.Exec("UPDATE shops SET url = ?, last_update = ? WHERE id = ?", url, now, shopID); err != nil {
			return nil, fmt.Errorf("update shop: %w", err)
		}
	}
	stats.ShopID = shopID

	knownCategories := make(map[int64]bool, len(doc.Categories))
	for _, c := range doc.Categories {
		var existingName string
		err := tx.QueryRow("SELECT name FROM categories WHERE id = ?", c.ID).Scan(&existingName)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec("INSERT INTO categories (id, name) VALUES (?, ?)", c.ID, c.Name); err != nil {
				return nil, fmt.Errorf("create category %d: %w", c.ID, err)
			}
		case err != nil:
			return nil, fmt.Errorf("load category %d: %w", c.ID, err)
		default:
			if existingName != c.Name {
				return nil, &ConflictError{
					Field:   "categories",
					Message: fmt.Sprintf("category %d already exists as %q, got %q", c.ID, existingName, c.Name),
				}
			}
		}

		// Idempotent many-to-many add.
		if _, err := tx.Exec("INSERT IGNORE INTO shop_categories (shop_id, category_id) VALUES (?, ?)", shopID, c.ID); err != nil {
			return nil, fmt.Errorf("associate category %d: %w", c.ID, err)
		}
		knownCategories[c.ID] = true
	}

	// Current offerings, locked for the duration of the reconcile.
	existing := make(map[int64]int64)
	rows, err := tx.Query("SELECT id, external_id FROM product_info WHERE shop_id = ? FOR UPDATE", shopID)
	if err != nil {
		return nil, fmt.Errorf("load offerings: %w", err)
	}
	for rows.Next() {
		var id, externalID int64
		if err := rows.Scan(&id, &externalID); err != nil {
			rows.Close()
			return nil, err
		}
		existing[externalID] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(doc.Goods))
	for _, g := range doc.Goods {
		if seen[g.ExternalID] {
			return nil, &ConflictError{
				Field:   "goods",
				Message: fmt.Sprintf("duplicate external id %d", g.ExternalID),
			}
		}
		seen[g.ExternalID] = true

		if !knownCategories[g.CategoryID] {
			// The category may exist globally from another shop's upload.
			var one int
			err := tx.QueryRow("SELECT 1 FROM categories WHERE id = ?", g.CategoryID).Scan(&one)
			if err == sql.ErrNoRows {
				return nil, &ConflictError{
					Field:   "goods",
					Message: fmt.Sprintf("good %d references unknown category %d", g.ExternalID, g.CategoryID),
				}
			}
			if err != nil {
				return nil, fmt.Errorf("check category %d: %w", g.CategoryID, err)
			}
			knownCategories[g.CategoryID] = true
		}

		productID, err := upsertProduct(tx, g.CategoryID, g.Name)
		if err != nil {
			return nil, err
		}

		infoID, ok := existing[g.ExternalID]
		if ok {
			// Surviving offering: update in place, preserving the row id.
			_, err = tx.Exec(
				"UPDATE product_info SET product_id = ?, model = ?, quantity = ?, price = ?, price_rrc = ? WHERE id = ?",
				productID, g.Model, g.Quantity, g.Price, g.PriceRRC, infoID)
			if err != nil {
				return nil, fmt.Errorf("update offering %d: %w", g.ExternalID, err)
			}
			if _, err := tx.Exec("DELETE FROM product_parameters WHERE product_info_id = ?", infoID); err != nil {
				return nil, fmt.Errorf("reset parameters for offering %d: %w", g.ExternalID, err)
			}
			stats.Updated++
		} else {
			res, err := tx.Exec(
				"INSERT INTO product_info (product_id, shop_id, external_id, model, quantity, price, price_rrc) VALUES (?, ?, ?, ?, ?, ?, ?)",
				productID, shopID, g.ExternalID, g.Model, g.Quantity, g.Price, g.PriceRRC)
			if err != nil {
				return nil, fmt.Errorf("create offering %d: %w", g.ExternalID, err)
			}
			if infoID, err = res.LastInsertId(); err != nil {
				return nil, err
			}
			stats.Created++
		}

		for _, p := range g.Parameters {
			parameterID, err := upsertParameter(tx, p.Name)
			if err != nil {
				return nil, err
			}
			_, err = tx.Exec(
				"INSERT INTO product_parameters (product_info_id, parameter_id, value) VALUES (?, ?, ?)",
				infoID, parameterID, p.Value)
			if err != nil {
				return nil, fmt.Errorf("create parameter %q for offering %d: %w", p.Name, g.ExternalID, err)
			}
		}
	}

	// Offerings missing from the new snapshot are gone: delete them, letting
	// the cascade remove any basket lines that referenced them.
	stale := make([]int64, 0)
	for externalID, infoID := range existing {
		if !seen[externalID] {
			stale = append(stale, infoID)
		}
	}
	sort.Slice(stale, func(a, b int) bool { return stale[a] < stale[b] })
	for _, infoID := range stale {
		if _, err := tx.Exec("DELETE FROM product_info WHERE id = ?", infoID); err != nil {
			return nil, fmt.Errorf("delete stale offering: %w", err)
		}
		stats.Deleted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ingestion: %w", err)
	}

	imp.Log.Info("price list ingested",
		zap.Int64("shopID", shopID),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("deleted", stats.Deleted))

	return stats, nil
}

func upsertProduct(tx *sql.Tx, categoryID int64, name string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM products WHERE category_id = ? AND name = ?", categoryID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("load product %q: %w", name, err)
	}

	res, err := tx.Exec("INSERT INTO products (category_id, name) VALUES (?, ?)", categoryID, name)
	if err != nil {
		return 0, fmt.Errorf("create product %q: %w", name, err)
	}
	return res.LastInsertId()
}

func upsertParameter(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM parameters WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("load parameter %q: %w", name, err)
	}

	res, err := tx.Exec("INSERT INTO parameters (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("create parameter %q: %w", name, err)
	}
	return res.LastInsertId()
}
