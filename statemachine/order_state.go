package statemachine

import (
	"errors"
	"strings"

	"food-order-tracker/models"
)

// ErrInvalidTransition is returned by CanTransition for any move other than
// a single forward step.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition defines a valid state change
type Transition struct {
	From models.OrderStatus `json:"from"`
	To   models.OrderStatus `json:"to"`
}

// sequence is the authoritative lifecycle, terminal last
var sequence = []models.OrderStatus{
	models.StatusReceived,
	models.StatusPreparing,
	models.StatusOutForDelivery,
	models.StatusDelivered,
}

// Build a lookup map for O(1) position checks
var positions = func() map[models.OrderStatus]int {
	m := make(map[models.OrderStatus]int, len(sequence))
	for i, s := range sequence {
		m[s] = i
	}
	return m
}()

// Statuses returns the lifecycle in order. The slice is a copy.
func Statuses() []models.OrderStatus {
	return append([]models.OrderStatus(nil), sequence...)
}

// Initial is the status every new order starts in.
func Initial() models.OrderStatus {
	return sequence[0]
}

// IsValid reports whether status is part of the lifecycle.
func IsValid(status models.OrderStatus) bool {
	_, ok := positions[status]
	return ok
}

// IsTerminal reports whether no further transitions exist from status.
func IsTerminal(status models.OrderStatus) bool {
	return status == sequence[len(sequence)-1]
}

// Next returns the immediate successor of status. ok is false for the
// terminal status and for values outside the lifecycle.
func Next(status models.OrderStatus) (next models.OrderStatus, ok bool) {
	i, known := positions[status]
	if !known || i >= len(sequence)-1 {
		return "", false
	}
	return sequence[i+1], true
}

// CanTransition checks that to is the immediate successor of from
func CanTransition(from, to models.OrderStatus) error {
	if next, ok := Next(from); ok && next == to {
		return nil
	}
	return &TransitionError{From: from, To: to}
}

// TransitionError describes a rejected move and what would have been allowed.
type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *TransitionError) Error() string {
	return "invalid transition: " + string(e.From) + " → " + string(e.To) +
		" is not allowed. Valid transitions from " + string(e.From) + " are: " + describeValidFrom(e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func describeValidFrom(status models.OrderStatus) string {
	next, ok := Next(status)
	if !ok {
		if IsTerminal(status) {
			return "none (terminal state)"
		}
		return "none (unknown state)"
	}
	return string(next)
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	transitions := make([]Transition, 0, len(sequence)-1)
	for i := 0; i < len(sequence)-1; i++ {
		transitions = append(transitions, Transition{From: sequence[i], To: sequence[i+1]})
	}
	return transitions
}

// Describe renders the lifecycle as "A → B → C".
func Describe() string {
	parts := make([]string, len(sequence))
	for i, s := range sequence {
		parts[i] = string(s)
	}
	return strings.Join(parts, " → ")
}
