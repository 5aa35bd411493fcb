package handlers

import (
	"database/sql"
	"time"

	"github.com/tradelink/tradelink-api/internal/notify"
	"github.com/tradelink/tradelink-api/internal/pricelist"
	"go.uber.org/zap"
)

// Notifier is the enqueue side of the notification dispatcher. Handlers
// only ever enqueue; delivery runs on the dispatcher's own workers.
type Notifier interface {
	Enqueue(msg notify.Message) bool
}

// Handlers holds all dependencies for the HTTP handlers.
type Handlers struct {
	DB       *sql.DB
	Notify   Notifier
	Composer *notify.Composer
	Importer *pricelist.Importer
	Log      *zap.Logger
}

// getOrCreateBasketID resolves the caller's single basket order, creating
// it when absent. The INSERT relies on the (user_id, is_basket) unique
// index: two concurrent requests both land on the same row, and
// LAST_INSERT_ID(id) makes LastInsertId return the surviving row's id
// either way. No check-then-act window.
func (h *Handlers) getOrCreateBasketID(tx *sql.Tx, userID int64) (int64, error) {
	now := time.Now()
	res, err := tx.Exec(`
		INSERT INTO orders (user_id, status, created_at, updated_at)
		VALUES (?, 'basket', ?, ?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`,
		userID, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
