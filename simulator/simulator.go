// Package simulator walks orders through the status lifecycle on a timer,
// one step per delay, until they are delivered.
package simulator

import (
	"log/slog"
	"sync"
	"time"

	"food-order-tracker/models"
	"food-order-tracker/scheduler"
	"food-order-tracker/statemachine"
)

// OrderStore is the part of the order store the simulator drives.
type OrderStore interface {
	Get(id string) (models.Order, error)
	UpdateStatus(id string, status models.OrderStatus) (models.Order, error)
}

// Delays is how long an order stays in each status before advancing.
type Delays struct {
	Received       time.Duration
	Preparing      time.Duration
	OutForDelivery time.Duration
	// Default applies to any status without its own delay.
	Default time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Received:       8 * time.Second,
		Preparing:      10 * time.Second,
		OutForDelivery: 12 * time.Second,
		Default:        5 * time.Second,
	}
}

// For returns the delay before leaving status.
func (d Delays) For(status models.OrderStatus) time.Duration {
	switch status {
	case models.StatusReceived:
		return d.Received
	case models.StatusPreparing:
		return d.Preparing
	case models.StatusOutForDelivery:
		return d.OutForDelivery
	default:
		return d.Default
	}
}

// Simulator keeps at most one pending advance per order.
type Simulator struct {
	store  OrderStore
	sched  scheduler.Scheduler
	delays Delays
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]uint64
	gen     uint64
	stopped bool
}

func New(store OrderStore, sched scheduler.Scheduler, delays Delays, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Simulator{
		store:   store,
		sched:   sched,
		delays:  delays,
		logger:  logger.With("component", "status_simulator"),
		pending: make(map[string]uint64),
	}
}

// Start schedules the next advance for orderID. It does nothing when an
// advance is already pending, the order is unknown or delivered, or after
// StopAll.
func (s *Simulator) Start(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Debug("progression refused after stop", "order_id", orderID)
		return
	}
	s.startLocked(orderID)
}

// Stop cancels the pending advance for orderID, if any.
func (s *Simulator) Stop(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[orderID]; !ok {
		return
	}
	delete(s.pending, orderID)
	s.sched.Cancel(orderID)
	s.logger.Debug("progression stopped", "order_id", orderID)
}

// StopAll cancels every pending advance. Later calls to Start are ignored.
func (s *Simulator) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id := range s.pending {
		s.sched.Cancel(id)
		delete(s.pending, id)
	}
	s.logger.Info("all progressions stopped")
}

// Pending reports whether an advance is scheduled for orderID.
func (s *Simulator) Pending(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[orderID]
	return ok
}

func (s *Simulator) startLocked(orderID string) {
	if _, ok := s.pending[orderID]; ok {
		return
	}
	order, err := s.store.Get(orderID)
	if err != nil {
		return
	}
	if statemachine.IsTerminal(order.Status) {
		return
	}

	delay := s.delays.For(order.Status)
	s.gen++
	token := s.gen
	s.pending[orderID] = token
	s.sched.Schedule(orderID, delay, func() { s.fire(orderID, token) })

	s.logger.Debug("advance scheduled", "order_id", orderID, "status", order.Status, "delay", delay)
}

func (s *Simulator) fire(orderID string, token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// stale: stopped or rescheduled since this timer was set
	if s.pending[orderID] != token {
		return
	}
	delete(s.pending, orderID)

	order, err := s.store.Get(orderID)
	if err != nil {
		return
	}
	next, ok := statemachine.Next(order.Status)
	if !ok {
		return
	}
	if _, err := s.store.UpdateStatus(orderID, next); err != nil {
		s.logger.Warn("advance rejected", "order_id", orderID, "from", order.Status, "to", next, "error", err)
		return
	}
	if !statemachine.IsTerminal(next) {
		s.startLocked(orderID)
	}
}
