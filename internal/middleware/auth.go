package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tradelink/tradelink-api/internal/auth"
	"github.com/tradelink/tradelink-api/internal/models"
)

// Context keys set by AuthMiddleware and read by handlers.
const (
	CtxUserID   = "userID"
	CtxUserType = "userType"
)

// AuthMiddleware validates the bearer token and stores the principal's id
// and account kind in the gin context. Role enforcement happens in the
// Require* policies below, once per route group.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserType, claims.UserType)
		c.Next()
	}
}

// RequireShop allows only supplier accounts through.
func RequireShop() gin.HandlerFunc {
	return requireType(models.UserTypeShop, "Only supplier accounts may access this resource")
}

// RequireBuyer allows only buyer accounts through.
func RequireBuyer() gin.HandlerFunc {
	return requireType(models.UserTypeBuyer, "Only buyer accounts may access this resource")
}

func requireType(userType, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserType) != userType {
			c.JSON(http.StatusForbidden, gin.H{"error": message})
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's id from the context.
func UserID(c *gin.Context) int64 {
	raw, _ := c.Get(CtxUserID)
	id, _ := raw.(int64)
	return id
}
