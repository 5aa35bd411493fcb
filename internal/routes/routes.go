package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tradelink/tradelink-api/internal/handlers"
	"github.com/tradelink/tradelink-api/internal/middleware"
)

// CORSMiddleware allows the local frontend to talk to the API during
// development. The allowed origin is intentionally strict.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register/buyer", h.RegisterBuyer)
		v1.POST("/register/shop", h.RegisterShop)
		v1.POST("/login", h.Login)
		v1.POST("/auth/verify-email", h.VerifyEmail)

		// --- Public Catalog Routes ---
		v1.GET("/products", h.GetProducts)
		v1.GET("/products/:id", h.GetProduct)
		v1.GET("/categories", h.GetCategories)
		v1.GET("/shops", h.GetShops)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			// --- Notification Routes ---
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			// --- Delivery Contacts ---
			auth.POST("/user/contact", h.CreateContact)
			auth.GET("/user/contact", h.GetMyContacts)
			auth.DELETE("/user/contact/:id", h.DeleteContact)
		}

		// --- Buyer-Only Routes ---
		buyer := v1.Group("/")
		buyer.Use(middleware.AuthMiddleware())
		buyer.Use(middleware.RequireBuyer())
		{
			buyer.GET("/basket", h.GetBasket)
			buyer.POST("/basket", h.AddBasketItems)
			buyer.PUT("/basket", h.UpdateBasketItems)
			buyer.DELETE("/basket", h.RemoveBasketItems)

			buyer.POST("/order", h.PlaceOrder)
			buyer.GET("/order", h.GetMyOrders)
			buyer.GET("/order/:id", h.GetOrderDetails)
		}

		// --- Shop-Only Routes ---
		partner := v1.Group("/partner")
		partner.Use(middleware.AuthMiddleware())
		partner.Use(middleware.RequireShop())
		{
			partner.POST("/update", h.UpdatePriceList)
			partner.POST("/status/:order_item_id", h.UpdateItemStatus)
			partner.GET("/orders", h.GetPartnerOrders)
			partner.GET("/orders/:id", h.GetPartnerOrderDetails)
		}
	}

	return router
}
