package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateItemStatusClosesOrderOnLastDelivery(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT oi.status, oi.order_id").
		WithArgs(int64(55), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "order_id"}).AddRow("send", 20))
	mock.ExpectExec("UPDATE order_items SET status").
		WithArgs("delivered", int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(20), "delivered").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE orders SET status = 'close'").
		WithArgs(int64(20)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, w := testCtx(http.MethodPost, `{"status": "delivered"}`, 9)
	c.Params = gin.Params{{Key: "order_item_id", Value: "55"}}
	h.UpdateItemStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"order_closed":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemStatusLeavesOrderOpenWhilePeersPending(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT oi.status, oi.order_id").
		WithArgs(int64(55), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "order_id"}).AddRow("send", 20))
	mock.ExpectExec("UPDATE order_items SET status").
		WithArgs("delivered", int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(20), "delivered").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	c, w := testCtx(http.MethodPost, `{"status": "delivered"}`, 9)
	c.Params = gin.Params{{Key: "order_item_id", Value: "55"}}
	h.UpdateItemStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"order_closed":false`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemStatusRejectsBackwardTransition(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT oi.status, oi.order_id").
		WithArgs(int64(55), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "order_id"}).AddRow("send", 20))
	mock.ExpectRollback()

	c, w := testCtx(http.MethodPost, `{"status": "assembled"}`, 9)
	c.Params = gin.Params{{Key: "order_item_id", Value: "55"}}
	h.UpdateItemStatus(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot move item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemStatusForeignSupplierReadsAsAbsent(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT oi.status, oi.order_id").
		WithArgs(int64(55), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "order_id"}))
	mock.ExpectRollback()

	c, w := testCtx(http.MethodPost, `{"status": "confirmed"}`, 9)
	c.Params = gin.Params{{Key: "order_item_id", Value: "55"}}
	h.UpdateItemStatus(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Order item not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemStatusRejectsUnknownStatus(t *testing.T) {
	h, mock := newTestHandlers(t)

	c, w := testCtx(http.MethodPost, `{"status": "vanished"}`, 9)
	c.Params = gin.Params{{Key: "order_item_id", Value: "55"}}
	h.UpdateItemStatus(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown status")
	assert.NoError(t, mock.ExpectationsWereMet())
}
