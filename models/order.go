package models

import "time"

// OrderStatus represents the lifecycle states of a food order
type OrderStatus string

const (
	StatusReceived       OrderStatus = "Order Received"
	StatusPreparing      OrderStatus = "Preparing"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
)

// DeliveryDetails is where and to whom the order goes
type DeliveryDetails struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type Order struct {
	ID              string          `json:"id"`
	Status          OrderStatus     `json:"status"`
	DeliveryDetails DeliveryDetails `json:"deliveryDetails"`
	Items           []OrderItem     `json:"items"`
	Total           float64         `json:"total"`
	StatusHistory   []StatusChange  `json:"statusHistory"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
}

type OrderItem struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`  // snapshot name
	Price      float64 `json:"price"` // snapshot price at time of order
	Quantity   int     `json:"quantity"`
}

// StatusChange records one applied transition
type StatusChange struct {
	From OrderStatus `json:"from"`
	To   OrderStatus `json:"to"`
	At   time.Time   `json:"at"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (o Order) Clone() Order {
	c := o
	c.Items = append(make([]OrderItem, 0, len(o.Items)), o.Items...)
	c.StatusHistory = append(make([]StatusChange, 0, len(o.StatusHistory)), o.StatusHistory...)
	if o.UpdatedAt != nil {
		t := *o.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}
