package pricelist

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newImporter(t *testing.T) (*Importer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Importer{DB: db, Log: zap.NewNop()}, mock
}

func reconcileDoc() *PriceList {
	return &PriceList{
		Shop: "TechnoTrade",
		Categories: []CategoryEntry{
			{ID: 224, Name: "Smartphones"},
		},
		Goods: []Good{
			{
				ExternalID: 100,
				Name:       "Smartphone Apple iPhone XR 256GB (red)",
				CategoryID: 224,
				Model:      "apple/iphone/xr",
				Price:      decimal.NewFromInt(65000),
				PriceRRC:   decimal.NewFromInt(69990),
				Quantity:   9,
				Parameters: []ParameterEntry{{Name: "Color", Value: "red"}},
			},
			{
				ExternalID: 200,
				Name:       "Smartphone Apple iPhone XS Max 512GB (gold)",
				CategoryID: 224,
				Model:      "apple/iphone/xs-max",
				Price:      decimal.NewFromInt(110000),
				PriceRRC:   decimal.NewFromInt(116990),
				Quantity:   14,
			},
		},
	}
}

// A re-ingestion must update surviving offerings in place (row id kept),
// insert new ones and delete the ones missing from the snapshot.
func TestRunReconcilesExistingCatalog(t *testing.T) {
	imp, mock := newImporter(t)
	doc := reconcileDoc()

	mock.ExpectBegin()

	mock.ExpectQuery("SELECT id, name FROM shops WHERE user_id = ? FOR UPDATE").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(5, "TechnoTrade"))
	mock.ExpectExec("UPDATE shops SET url = ?, last_update = ? WHERE id = ?").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT name FROM categories WHERE id = ?").
		WithArgs(int64(224)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Smartphones"))
	mock.ExpectExec("INSERT IGNORE INTO shop_categories (shop_id, category_id) VALUES (?, ?)").
		WithArgs(int64(5), int64(224)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Existing offerings: external 100 survives, external 300 is stale.
	mock.ExpectQuery("SELECT id, external_id FROM product_info WHERE shop_id = ? FOR UPDATE").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id"}).
			AddRow(41, 100).
			AddRow(42, 300))

	// Good 100: update in place.
	mock.ExpectQuery("SELECT id FROM products WHERE category_id = ? AND name = ?").
		WithArgs(int64(224), doc.Goods[0].Name).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(71))
	mock.ExpectExec("UPDATE product_info SET product_id = ?, model = ?, quantity = ?, price = ?, price_rrc = ? WHERE id = ?").
		WithArgs(int64(71), "apple/iphone/xr", 9, sqlmock.AnyArg(), sqlmock.AnyArg(), int64(41)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM product_parameters WHERE product_info_id = ?").
		WithArgs(int64(41)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM parameters WHERE name = ?").
		WithArgs("Color").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec("INSERT INTO product_parameters (product_info_id, parameter_id, value) VALUES (?, ?, ?)").
		WithArgs(int64(41), int64(3), "red").
		WillReturnResult(sqlmock.NewResult(91, 1))

	// Good 200: brand new product and offering.
	mock.ExpectQuery("SELECT id FROM products WHERE category_id = ? AND name = ?").
		WithArgs(int64(224), doc.Goods[1].Name).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO products (category_id, name) VALUES (?, ?)").
		WithArgs(int64(224), doc.Goods[1].Name).
		WillReturnResult(sqlmock.NewResult(72, 1))
	mock.ExpectExec("INSERT INTO product_info (product_id, shop_id, external_id, model, quantity, price, price_rrc) VALUES (?, ?, ?, ?, ?, ?, ?)").
		WithArgs(int64(72), int64(5), int64(200), "apple/iphone/xs-max", 14, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(43, 1))

	// Stale offering 300 is removed.
	mock.ExpectExec("DELETE FROM product_info WHERE id = ?").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	stats, err := imp.Run(context.Background(), 9, nil, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.ShopID)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCreatesShopOnFirstIngestion(t *testing.T) {
	imp, mock := newImporter(t)
	doc := &PriceList{
		Shop:       "FreshShop",
		Categories: []CategoryEntry{{ID: 7, Name: "Cables"}},
		Goods: []Good{{
			ExternalID: 1,
			Name:       "Lightning cable 1m",
			CategoryID: 7,
			Model:      "apple/cable/lightning",
			Price:      decimal.NewFromInt(1500),
			PriceRRC:   decimal.NewFromInt(1990),
			Quantity:   120,
		}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name FROM shops WHERE user_id = ? FOR UPDATE").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectExec("INSERT INTO shops (name, url, user_id, last_update) VALUES (?, ?, ?, ?)").
		WithArgs("FreshShop", sqlmock.AnyArg(), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))

	mock.ExpectQuery("SELECT name FROM categories WHERE id = ?").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectExec("INSERT INTO categories (id, name) VALUES (?, ?)").
		WithArgs(int64(7), "Cables").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT IGNORE INTO shop_categories (shop_id, category_id) VALUES (?, ?)").
		WithArgs(int64(11), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT id, external_id FROM product_info WHERE shop_id = ? FOR UPDATE").
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id"}))

	mock.ExpectQuery("SELECT id FROM products WHERE category_id = ? AND name = ?").
		WithArgs(int64(7), "Lightning cable 1m").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO products (category_id, name) VALUES (?, ?)").
		WithArgs(int64(7), "Lightning cable 1m").
		WillReturnResult(sqlmock.NewResult(81, 1))
	mock.ExpectExec("INSERT INTO product_info (product_id, shop_id, external_id, model, quantity, price, price_rrc) VALUES (?, ?, ?, ?, ?, ?, ?)").
		WithArgs(int64(81), int64(11), int64(1), "apple/cable/lightning", 120, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(51, 1))

	mock.ExpectCommit()

	stats, err := imp.Run(context.Background(), 2, nil, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 0, stats.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRejectsShopNameConflict(t *testing.T) {
	imp, mock := newImporter(t)
	doc := reconcileDoc()
	doc.Shop = "SomebodyElse"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name FROM shops WHERE user_id = ? FOR UPDATE").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(5, "TechnoTrade"))
	mock.ExpectRollback()

	_, err := imp.Run(context.Background(), 9, nil, doc)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "shop", conflict.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRejectsCategoryIDCollision(t *testing.T) {
	imp, mock := newImporter(t)
	doc := reconcileDoc()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name FROM shops WHERE user_id = ? FOR UPDATE").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(5, "TechnoTrade"))
	mock.ExpectExec("UPDATE shops SET url = ?, last_update = ? WHERE id = ?").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT name FROM categories WHERE id = ?").
		WithArgs(int64(224)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Laptops"))
	mock.ExpectRollback()

	_, err := imp.Run(context.Background(), 9, nil, doc)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "categories", conflict.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}
