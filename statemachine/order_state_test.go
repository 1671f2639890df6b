package statemachine

import (
	"testing"

	"restaurant-orders-api/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name  string
		from  models.OrderStatus
		to    models.OrderStatus
		actor string
		ok    bool
	}{
		{"waiter confirms open tab", models.StatusOpenTable, models.StatusConfirmed, "waiter", true},
		{"waiter pays open tab on close", models.StatusOpenTable, models.StatusPaid, "waiter", true},
		{"customer cancels open tab", models.StatusOpenTable, models.StatusCancelled, "customer", true},
		{"waiter starts preparing", models.StatusConfirmed, models.StatusPreparing, "waiter", true},
		{"customer cancels confirmed order", models.StatusConfirmed, models.StatusCancelled, "customer", true},
		{"waiter marks ready", models.StatusPreparing, models.StatusReady, "waiter", true},
		{"driver delivers ready order", models.StatusReady, models.StatusDelivered, "driver", true},
		{"waiter collects at table", models.StatusReady, models.StatusPaid, "waiter", true},
		{"waiter settles delivered order", models.StatusDelivered, models.StatusPaid, "waiter", true},

		{"driver cannot confirm", models.StatusOpenTable, models.StatusConfirmed, "driver", false},
		{"customer cannot mark ready", models.StatusPreparing, models.StatusReady, "customer", false},
		{"cannot skip kitchen", models.StatusConfirmed, models.StatusDelivered, "waiter", false},
		{"customer cannot cancel preparing order", models.StatusPreparing, models.StatusCancelled, "customer", false},
		{"paid is terminal", models.StatusPaid, models.StatusOpenTable, "admin", false},
		{"cancelled is terminal", models.StatusCancelled, models.StatusConfirmed, "waiter", false},
		{"no backwards movement", models.StatusReady, models.StatusPreparing, "waiter", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CanTransition(tc.from, tc.to, tc.actor)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	assert.Empty(t, ValidTransitionsFrom(models.StatusPaid))
	assert.Empty(t, ValidTransitionsFrom(models.StatusCancelled))
}

func TestValidTransitionsFromDeduplicates(t *testing.T) {
	nexts := ValidTransitionsFrom(models.StatusOpenTable)
	seen := map[models.OrderStatus]bool{}
	for _, s := range nexts {
		assert.False(t, seen[s], "duplicate next state %s", s)
		seen[s] = true
	}
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusConfirmed, models.StatusCancelled, models.StatusPaid},
		nexts)
}

func TestGetAllTransitionsCoversEveryStatus(t *testing.T) {
	covered := map[models.OrderStatus]bool{}
	for _, tr := range GetAllTransitions() {
		covered[tr.From] = true
		covered[tr.To] = true
	}
	for _, s := range []models.OrderStatus{
		models.StatusOpenTable, models.StatusConfirmed, models.StatusPreparing,
		models.StatusReady, models.StatusDelivered, models.StatusPaid, models.StatusCancelled,
	} {
		assert.True(t, covered[s], "status %s missing from state machine", s)
	}
}
