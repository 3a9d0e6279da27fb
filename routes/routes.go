package routes

import (
	"net/http"

	"food-order-tracker/handlers"
	"food-order-tracker/simulator"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, delays simulator.Delays) {
	handlers.RegisterValidators()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Food Order Tracker API",
		})
	})

	api := r.Group("/api")
	{
		// Menu and lifecycle info
		api.GET("/menu", h.GetMenu)
		api.GET("/order-statuses", h.GetOrderStatuses)
		api.GET("/state-machine", handlers.StateMachineInfo(delays))

		// Orders
		orders := api.Group("/orders")
		orders.POST("", h.PlaceOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/status", h.UpdateOrderStatus)
		orders.GET("/:id/stream", h.StreamOrder)
	}
}
