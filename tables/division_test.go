package tables

import (
	"testing"

	"restaurant-orders-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitOrder(id uint, total string, items string) models.Order {
	return models.Order{
		ID:     id,
		Status: models.StatusOpenTable,
		Items:  []byte(items),
		Total:  decimal.RequireFromString(total),
	}
}

func assignment(orderID, productID uint, customer string, qty int, price string) models.ProductAssignment {
	return models.ProductAssignment{
		OrderID:      orderID,
		ProductID:    productID,
		CustomerName: customer,
		Quantity:     qty,
		UnitPrice:    decimal.RequireFromString(price),
	}
}

func TestComputeSplitBills(t *testing.T) {
	orders := []models.Order{
		splitOrder(1, "32.50", `[
			{"productId":1,"name":"Paella","unitPrice":12.50,"quantity":2},
			{"productId":2,"name":"Cerveza","unitPrice":2.50,"quantity":3}
		]`),
	}
	assignments := []models.ProductAssignment{
		assignment(1, 1, "Ana", 1, "12.50"),
		assignment(1, 2, "Ana", 2, "2.50"),
		assignment(1, 1, "Luis", 1, "12.50"),
	}

	bills := ComputeSplitBills(orders, assignments)
	require.Len(t, bills, 2)

	// first-seen customer order
	assert.Equal(t, "Ana", bills[0].CustomerName)
	assert.Equal(t, "Luis", bills[1].CustomerName)

	assert.True(t, bills[0].Total.Equal(decimal.RequireFromString("17.50")),
		"got %s", bills[0].Total)
	require.Len(t, bills[0].Products, 2)
	assert.Equal(t, "Paella", bills[0].Products[0].Name)
	assert.Equal(t, "Cerveza", bills[0].Products[1].Name)

	assert.True(t, bills[1].Total.Equal(decimal.RequireFromString("12.50")))
}

func TestComputeSplitBillsPartialAllocation(t *testing.T) {
	orders := []models.Order{
		splitOrder(1, "20.00", `[{"productId":1,"name":"Pizza","unitPrice":10.00,"quantity":2}]`),
	}
	// only one of two pizzas assigned so far
	assignments := []models.ProductAssignment{
		assignment(1, 1, "Ana", 1, "10.00"),
	}

	bills := ComputeSplitBills(orders, assignments)
	require.Len(t, bills, 1)

	assignedTotal := decimal.Zero
	for _, b := range bills {
		assignedTotal = assignedTotal.Add(b.Total)
	}
	assert.True(t, assignedTotal.LessThanOrEqual(orders[0].Total))
	assert.True(t, assignedTotal.Equal(decimal.RequireFromString("10.00")))
}

func TestComputeSplitBillsNameFallback(t *testing.T) {
	orders := []models.Order{
		splitOrder(1, "5.00", `not parseable`),
	}
	assignments := []models.ProductAssignment{
		assignment(1, 42, "Ana", 1, "5.00"),
	}

	bills := ComputeSplitBills(orders, assignments)
	require.Len(t, bills, 1)
	require.Len(t, bills[0].Products, 1)
	assert.Equal(t, "Product 42", bills[0].Products[0].Name)
	assert.True(t, bills[0].Total.Equal(decimal.RequireFromString("5.00")))
}

func TestComputeSplitBillsSkipsNonPositiveQuantities(t *testing.T) {
	orders := []models.Order{
		splitOrder(1, "10.00", `[{"productId":1,"name":"Tarta","unitPrice":10.00,"quantity":1}]`),
	}
	assignments := []models.ProductAssignment{
		assignment(1, 1, "Ana", 0, "10.00"),
		assignment(1, 1, "Luis", -2, "10.00"),
	}

	bills := ComputeSplitBills(orders, assignments)
	assert.Empty(t, bills)
}

func TestComputeSplitBillsNegativePriceClampedToZero(t *testing.T) {
	orders := []models.Order{
		splitOrder(1, "0.00", `[{"productId":1,"name":"Ajuste","unitPrice":-2.00,"quantity":1}]`),
	}
	assignments := []models.ProductAssignment{
		assignment(1, 1, "Ana", 1, "-2.00"),
	}

	bills := ComputeSplitBills(orders, assignments)
	require.Len(t, bills, 1)
	assert.True(t, bills[0].Total.IsZero())
}

func TestAssignedQuantity(t *testing.T) {
	assignments := []models.ProductAssignment{
		assignment(1, 1, "Ana", 1, "1.00"),
		assignment(1, 1, "Luis", 2, "1.00"),
		assignment(1, 2, "Ana", 5, "1.00"),
		assignment(2, 1, "Ana", 7, "1.00"),
		assignment(1, 1, "Eve", -3, "1.00"),
	}

	assert.Equal(t, 3, AssignedQuantity(assignments, 1, 1))
	assert.Equal(t, 5, AssignedQuantity(assignments, 1, 2))
	assert.Equal(t, 0, AssignedQuantity(assignments, 3, 1))
}
