// Package store holds orders in memory and pushes their status changes to a
// single live subscription per order.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"food-order-tracker/models"
	"food-order-tracker/statemachine"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = statemachine.ErrInvalidTransition
)

// Clock supplies timestamps for created and updated orders.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type Option func(*OrderStore)

func WithClock(c Clock) Option {
	return func(s *OrderStore) { s.clock = c }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *OrderStore) { s.newID = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *OrderStore) { s.logger = l }
}

// OrderStore is the only writer of order state.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	ids    []string // insertion order
	subs   map[string]*Subscription

	clock  Clock
	newID  func() string
	logger *slog.Logger
}

func NewOrderStore(opts ...Option) *OrderStore {
	s := &OrderStore{
		orders: make(map[string]*models.Order),
		subs:   make(map[string]*Subscription),
		clock:  ClockFunc(time.Now),
		newID:  func() string { return "ord_" + uuid.NewString() },
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "order_store")
	return s
}

// Create stores a new order in the initial status. Input is trusted: the
// caller has already validated details and resolved item snapshots.
func (s *OrderStore) Create(details models.DeliveryDetails, items []models.OrderItem) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for _, taken := s.orders[id]; taken; _, taken = s.orders[id] {
		id = s.newID()
	}

	order := &models.Order{
		ID:              id,
		Status:          statemachine.Initial(),
		DeliveryDetails: details,
		Items:           append([]models.OrderItem(nil), items...),
		Total:           orderTotal(items),
		StatusHistory:   []models.StatusChange{},
		CreatedAt:       s.clock.Now().UTC(),
	}
	s.orders[id] = order
	s.ids = append(s.ids, id)

	s.logger.Info("order created", "order_id", id, "items", len(items), "total", order.Total)
	return order.Clone()
}

func (s *OrderStore) Get(id string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	return order.Clone(), nil
}

// List returns every order in insertion order.
func (s *OrderStore) List() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Order, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.orders[id].Clone())
	}
	return out
}

// UpdateStatus moves an order one step forward and pushes the updated record
// to its subscription, if any. The subscription is closed after the terminal
// status has been delivered.
func (s *OrderStore) UpdateStatus(id string, status models.OrderStatus) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	if !statemachine.IsValid(status) {
		return models.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := statemachine.CanTransition(order.Status, status); err != nil {
		return models.Order{}, err
	}

	now := s.clock.Now().UTC()
	order.StatusHistory = append(order.StatusHistory, models.StatusChange{From: order.Status, To: status, At: now})
	order.Status = status
	order.UpdatedAt = &now

	updated := order.Clone()
	s.logger.Info("order status updated", "order_id", id, "status", status)

	if sub, ok := s.subs[id]; ok {
		s.deliverLocked(sub, updated)
		if statemachine.IsTerminal(status) {
			delete(s.subs, id)
			sub.closeLocked()
		}
	}
	return updated, nil
}

// Subscribe registers the single live subscription for id, closing any
// previous one.
func (s *OrderStore) Subscribe(id string) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return nil, ErrOrderNotFound
	}
	return s.subscribeLocked(id), nil
}

// Watch returns the current record and a subscription registered in the
// same critical section, so no transition falls between the two.
func (s *OrderStore) Watch(id string) (models.Order, *Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, nil, ErrOrderNotFound
	}
	return order.Clone(), s.subscribeLocked(id), nil
}

// Statuses returns the ordered status enumeration.
func (s *OrderStore) Statuses() []models.OrderStatus {
	return statemachine.Statuses()
}

func (s *OrderStore) subscribeLocked(id string) *Subscription {
	if prev, ok := s.subs[id]; ok {
		prev.closeLocked()
	}
	sub := &Subscription{
		orderID: id,
		ch:      make(chan models.Order, len(statemachine.Statuses())),
		store:   s,
	}
	s.subs[id] = sub
	return sub
}

func (s *OrderStore) deliverLocked(sub *Subscription, order models.Order) {
	select {
	case sub.ch <- order:
	default:
		s.logger.Warn("subscription buffer full, update dropped", "order_id", order.ID, "status", order.Status)
	}
}

func orderTotal(items []models.OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return math.Round(total*100) / 100
}

// Subscription receives every status change of one order until it is
// closed, replaced, or the terminal status has been delivered.
type Subscription struct {
	orderID string
	ch      chan models.Order
	store   *OrderStore
	closed  bool // guarded by store.mu
}

func (sub *Subscription) OrderID() string { return sub.orderID }

// Updates is closed when the subscription ends.
func (sub *Subscription) Updates() <-chan models.Order { return sub.ch }

// Close deregisters the subscription. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()

	if cur, ok := sub.store.subs[sub.orderID]; ok && cur == sub {
		delete(sub.store.subs, sub.orderID)
	}
	sub.closeLocked()
}

func (sub *Subscription) closeLocked() {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
}
