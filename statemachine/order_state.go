package statemachine

import (
	"errors"

	"restaurant-orders-api/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string // "waiter", "driver", "customer", "admin"
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Waiter confirms a tab's order for the kitchen
	{From: models.StatusOpenTable, To: models.StatusConfirmed, Actor: "waiter"},
	// Waiter or Customer can cancel before the kitchen starts
	{From: models.StatusOpenTable, To: models.StatusCancelled, Actor: "waiter"},
	{From: models.StatusOpenTable, To: models.StatusCancelled, Actor: "customer"},
	{From: models.StatusConfirmed, To: models.StatusPreparing, Actor: "waiter"},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: "waiter"},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: "customer"},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: "admin"},
	// Kitchen progress is reported by the waiter
	{From: models.StatusPreparing, To: models.StatusReady, Actor: "waiter"},
	// Driver takes ready delivery orders out
	{From: models.StatusReady, To: models.StatusDelivered, Actor: "driver"},
	// Dine-in tables pay at the table; an open tab can be paid directly on close
	{From: models.StatusOpenTable, To: models.StatusPaid, Actor: "waiter"},
	{From: models.StatusReady, To: models.StatusPaid, Actor: "waiter"},
	{From: models.StatusDelivered, To: models.StatusPaid, Actor: "waiter"},
	{From: models.StatusDelivered, To: models.StatusPaid, Actor: "admin"},
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor string) error {
	key := transitionKey{From: from, To: to, Actor: actor}
	if transitionMap[key] {
		return nil
	}
	return errors.New(
		"invalid transition: " + string(from) + " -> " + string(to) +
			" is not allowed for actor '" + actor + "'. " +
			"Valid transitions from " + string(from) + " are: " + describeValidFrom(from),
	)
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
