package handlers

import (
	"net/http"

	"food-order-tracker/models"
	"food-order-tracker/simulator"
	"food-order-tracker/statemachine"

	"github.com/gin-gonic/gin"
)

// GetMenu returns the menu (public)
func (h *Handler) GetMenu(c *gin.Context) {
	items, err := h.menu.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load menu"})
		return
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	c.JSON(http.StatusOK, items)
}

// GetOrderStatuses returns the status lifecycle in order
func (h *Handler) GetOrderStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, h.orders.Statuses())
}

// StateMachineInfo describes the lifecycle for informational purposes
func StateMachineInfo(delays simulator.Delays) gin.HandlerFunc {
	statuses := statemachine.Statuses()
	auto := make([]gin.H, 0, len(statuses)-1)
	for _, t := range statemachine.GetAllTransitions() {
		auto = append(auto, gin.H{
			"from":          t.From,
			"to":            t.To,
			"after_seconds": delays.For(t.From).Seconds(),
		})
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"state_machine":   auto,
			"terminal_states": []models.OrderStatus{statuses[len(statuses)-1]},
			"description":     statemachine.Describe(),
		})
	}
}
