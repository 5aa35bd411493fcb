package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tradelink/tradelink-api/internal/middleware"
	"github.com/tradelink/tradelink-api/internal/notify"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// noopNotifier accepts every message and drops it.
type noopNotifier struct{}

func (noopNotifier) Enqueue(msg notify.Message) bool { return true }

// newTestHandlers wires a Handlers value around a sqlmock connection.
func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &Handlers{
		DB:       db,
		Notify:   noopNotifier{},
		Composer: &notify.Composer{DB: db},
		Log:      zap.NewNop(),
	}
	return h, mock
}

// testCtx builds a gin context for calling a handler directly, with the
// authenticated user already resolved.
func testCtx(method, body string, userID int64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.CtxUserID, userID)
	return c, w
}
