package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"food-order-tracker/catalog"
	"food-order-tracker/models"
	"food-order-tracker/statemachine"
	"food-order-tracker/store"

	"github.com/gin-gonic/gin"
)

type DeliveryDetailsRequest struct {
	Name    string `json:"name" binding:"required,personname"`
	Address string `json:"address" binding:"required,address"`
	Phone   string `json:"phone" binding:"required,phone"`
}

type OrderItemRequest struct {
	MenuItemID string `json:"menuItemId" binding:"required,notblank"`
	Quantity   int    `json:"quantity" binding:"required,min=1,max=99"`
}

type PlaceOrderRequest struct {
	DeliveryDetails *DeliveryDetailsRequest `json:"deliveryDetails" binding:"required"`
	Items           []OrderItemRequest      `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// PlaceOrder validates the request, snapshots item names and prices from the
// menu, stores the order and starts its status progression
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for i, it := range req.Items {
		id := strings.TrimSpace(it.MenuItemID)
		menuItem, err := h.menu.Get(c.Request.Context(), id)
		if errors.Is(err, catalog.ErrMenuItemNotFound) {
			abortWithFieldErrors(c, []FieldError{{
				Field:   fmt.Sprintf("items[%d].menuItemId", i),
				Message: "Invalid menu item: " + id,
			}})
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
			return
		}
		items = append(items, models.OrderItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Price:      menuItem.Price,
			Quantity:   it.Quantity,
		})
	}

	details := models.DeliveryDetails{
		Name:    strings.TrimSpace(req.DeliveryDetails.Name),
		Address: strings.TrimSpace(req.DeliveryDetails.Address),
		Phone:   strings.TrimSpace(req.DeliveryDetails.Phone),
	}
	order := h.orders.Create(details, items)
	h.progression.Start(order.ID)

	c.JSON(http.StatusCreated, order)
}

// ListOrders returns all orders, newest first, optionally filtered by status
func (h *Handler) ListOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !statemachine.IsValid(status) {
		abortWithFieldErrors(c, []FieldError{{Field: "status", Message: "Invalid status"}})
		return
	}

	all := h.orders.List()
	orders := make([]models.Order, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if status == "" || all[i].Status == status {
			orders = append(orders, all[i])
		}
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder returns a single order
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Param("id"))
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus moves an order one step forward by hand
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}
	req.Status = models.OrderStatus(strings.TrimSpace(string(req.Status)))
	if !statemachine.IsValid(req.Status) {
		abortWithFieldErrors(c, []FieldError{{Field: "status", Message: "Invalid status"}})
		return
	}

	order, err := h.orders.UpdateStatus(c.Param("id"), req.Status)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) writeStoreError(c *gin.Context, err error) {
	var te *statemachine.TransitionError
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, store.ErrInvalidStatus):
		abortWithFieldErrors(c, []FieldError{{Field: "status", Message: "Invalid status"}})
	case errors.As(err, &te):
		next, _ := statemachine.Next(te.From)
		valid := []models.OrderStatus{}
		if next != "" {
			valid = append(valid, next)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    te.From,
			"requested":         te.To,
			"reason":            err.Error(),
			"valid_next_states": valid,
		})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
