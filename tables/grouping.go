package tables

import (
	"time"

	"restaurant-orders-api/models"

	"github.com/shopspring/decimal"
)

// ConsolidatedTable is the derived, non-persisted aggregate of every order
// sharing a grouping key (a physical table label or a unified table name).
type ConsolidatedTable struct {
	TableName    string          `json:"table_name"`
	Orders       []models.Order  `json:"orders"`
	OrderCount   int             `json:"order_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	AllItems     []LineItem      `json:"all_items"`
	FirstOrderAt time.Time       `json:"first_order_at"`
	LastOrderAt  time.Time       `json:"last_order_at"`
}

// GroupOrdersByTable folds a flat list of orders into one consolidated view
// per grouping key. It is a pure function: no storage access, no hidden
// state, and feeding the same slice twice yields identical groups.
//
// Groups come back in first-seen key order, and orders stay in the order they
// were fed in (callers typically pre-sort by created_at descending). Orders
// without a grouping key (delivery orders) are skipped. An order whose items
// column fails to parse still contributes its total and timestamps; only its
// item list degrades to empty.
func GroupOrdersByTable(orders []models.Order) []*ConsolidatedTable {
	groups := make(map[string]*ConsolidatedTable)
	var ordered []*ConsolidatedTable

	for _, o := range orders {
		key := o.GroupingKey()
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &ConsolidatedTable{
				TableName:    key,
				Orders:       []models.Order{},
				TotalAmount:  decimal.Zero,
				AllItems:     []LineItem{},
				FirstOrderAt: o.CreatedAt,
				LastOrderAt:  o.CreatedAt,
			}
			groups[key] = g
			ordered = append(ordered, g)
		}

		g.Orders = append(g.Orders, o)
		g.OrderCount++
		g.TotalAmount = g.TotalAmount.Add(o.Total)
		g.AllItems = append(g.AllItems, ParseItems(o.Items)...)
		if o.CreatedAt.Before(g.FirstOrderAt) {
			g.FirstOrderAt = o.CreatedAt
		}
		if o.CreatedAt.After(g.LastOrderAt) {
			g.LastOrderAt = o.CreatedAt
		}
	}

	return ordered
}
