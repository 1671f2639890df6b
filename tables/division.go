package tables

import (
	"fmt"

	"restaurant-orders-api/models"

	"github.com/shopspring/decimal"
)

// BillLine is one assigned product on a customer's sub-bill.
type BillLine struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CustomerBill is one named customer's share of a table's consolidated bill.
type CustomerBill struct {
	CustomerName string          `json:"customer_name"`
	Products     []BillLine      `json:"products"`
	Total        decimal.Decimal `json:"total"`
}

// ComputeSplitBills partitions a table's product assignments into per-customer
// sub-bills. Product display names are resolved from the parent order's item
// list; an assignment whose product no longer appears there keeps a
// placeholder name rather than being dropped.
//
// Unassigned items simply appear on no bill: waiters assign incrementally, so
// the sum of all bills is at most the table's consolidated total, with
// equality only once every item has been fully assigned.
func ComputeSplitBills(orders []models.Order, assignments []models.ProductAssignment) []CustomerBill {
	itemsByOrder := make(map[uint][]LineItem, len(orders))
	for _, o := range orders {
		itemsByOrder[o.ID] = ParseItems(o.Items)
	}

	bills := make(map[string]*CustomerBill)
	var ordered []*CustomerBill

	for _, a := range assignments {
		if a.Quantity <= 0 {
			continue
		}

		name := fmt.Sprintf("Product %d", a.ProductID)
		for _, item := range itemsByOrder[a.OrderID] {
			if item.ProductID == a.ProductID {
				name = item.Name
				break
			}
		}

		subtotal := a.UnitPrice.Mul(decimal.NewFromInt(int64(a.Quantity)))
		if subtotal.IsNegative() {
			subtotal = decimal.Zero
		}

		b, ok := bills[a.CustomerName]
		if !ok {
			b = &CustomerBill{
				CustomerName: a.CustomerName,
				Products:     []BillLine{},
				Total:        decimal.Zero,
			}
			bills[a.CustomerName] = b
			ordered = append(ordered, b)
		}
		b.Products = append(b.Products, BillLine{
			Name:      name,
			UnitPrice: a.UnitPrice,
			Quantity:  a.Quantity,
			Subtotal:  subtotal,
		})
		b.Total = b.Total.Add(subtotal)
	}

	out := make([]CustomerBill, 0, len(ordered))
	for _, b := range ordered {
		out = append(out, *b)
	}
	return out
}

// AssignedQuantity sums how many units of a product have already been
// assigned from a single order across all customers.
func AssignedQuantity(assignments []models.ProductAssignment, orderID, productID uint) int {
	total := 0
	for _, a := range assignments {
		if a.OrderID == orderID && a.ProductID == productID && a.Quantity > 0 {
			total += a.Quantity
		}
	}
	return total
}
