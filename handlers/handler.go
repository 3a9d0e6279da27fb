package handlers

import (
	"context"
	"log/slog"

	"food-order-tracker/models"
	"food-order-tracker/store"
)

// OrderStore is what the order routes need from the store
type OrderStore interface {
	Create(details models.DeliveryDetails, items []models.OrderItem) models.Order
	Get(id string) (models.Order, error)
	List() []models.Order
	UpdateStatus(id string, status models.OrderStatus) (models.Order, error)
	Watch(id string) (models.Order, *store.Subscription, error)
	Statuses() []models.OrderStatus
}

// Progression starts the automatic status advance of a new order
type Progression interface {
	Start(orderID string)
}

// Catalog resolves menu items
type Catalog interface {
	List(ctx context.Context, category string) ([]models.MenuItem, error)
	Get(ctx context.Context, id string) (models.MenuItem, error)
}

type Handler struct {
	orders      OrderStore
	progression Progression
	menu        Catalog
	logger      *slog.Logger
}

func New(orders OrderStore, progression Progression, menu Catalog, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		orders:      orders,
		progression: progression,
		menu:        menu,
		logger:      logger.With("component", "handlers"),
	}
}
