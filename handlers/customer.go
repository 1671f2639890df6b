package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"restaurant-orders-api/config"
	"restaurant-orders-api/middleware"
	"restaurant-orders-api/models"
	"restaurant-orders-api/statemachine"
	"restaurant-orders-api/tables"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type PlaceOrderRequest struct {
	DeliveryAddress string             `json:"delivery_address" binding:"required"`
	Notes           string             `json:"notes"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1"`
}

// snapshotItems resolves requested products, checks availability and stock,
// decrements stock and returns the price-snapshotted line items plus total.
// Must run inside the order-creating transaction so a failed order leaves
// stock untouched.
func snapshotItems(tx *gorm.DB, reqItems []OrderItemRequest) ([]tables.LineItem, decimal.Decimal, int, error) {
	var lineItems []tables.LineItem
	total := decimal.Zero

	for _, reqItem := range reqItems {
		var product models.Product
		if err := tx.First(&product, reqItem.ProductID).Error; err != nil {
			return nil, decimal.Zero, http.StatusBadRequest,
				fmt.Errorf("product %d not found", reqItem.ProductID)
		}
		if !product.IsAvailable {
			return nil, decimal.Zero, http.StatusBadRequest,
				fmt.Errorf("product '%s' is not available", product.Name)
		}
		if product.Stock < reqItem.Quantity {
			return nil, decimal.Zero, http.StatusUnprocessableEntity,
				fmt.Errorf("insufficient stock for '%s' (%d left)", product.Name, product.Stock)
		}
		if err := tx.Model(&product).Update("stock", product.Stock-reqItem.Quantity).Error; err != nil {
			return nil, decimal.Zero, http.StatusInternalServerError,
				fmt.Errorf("failed to update stock")
		}

		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(reqItem.Quantity))))
		lineItems = append(lineItems, tables.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  reqItem.Quantity,
		})
	}

	return lineItems, total, http.StatusOK, nil
}

// PlaceOrder creates a new delivery order (customer only)
func PlaceOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var order models.Order
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		lineItems, total, status, err := snapshotItems(tx, req.Items)
		if err != nil {
			c.JSON(status, gin.H{"error": err.Error()})
			return err
		}

		itemsJSON, err := json.Marshal(lineItems)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode order items"})
			return err
		}

		// Delivery orders skip the dine-in tab stage and enter the kitchen
		// queue directly (payment handling is an external concern).
		order = models.Order{
			CustomerID:      &customerID,
			Status:          models.StatusConfirmed,
			Items:           itemsJSON,
			Total:           total,
			DeliveryAddress: req.DeliveryAddress,
			Notes:           req.Notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
			return err
		}

		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusConfirmed,
			ChangedBy: customerID,
			Note:      "Order placed by customer",
		}
		if err := tx.Create(&history).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record status history"})
			return err
		}
		return nil
	})
	if err != nil {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders returns all orders for the logged-in customer
func GetMyOrders(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	var orders []models.Order
	config.DB.Preload("Driver").
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&orders)
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns a single order's full detail with history
func GetOrderDetail(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID := c.Param("id")

	var order models.Order
	if err := config.DB.
		Preload("StatusHistory").
		Preload("Driver").
		First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return
	}

	elapsed := time.Since(order.CreatedAt).Minutes()
	c.JSON(http.StatusOK, gin.H{
		"order":           order,
		"items":           tables.ParseItems(order.Items),
		"minutes_elapsed": int(elapsed),
	})
}

// CancelOrder cancels an order (customer can cancel before preparing starts)
func CancelOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID := c.Param("id")

	var order models.Order
	if err := config.DB.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return
	}

	if err := statemachine.CanTransition(order.Status, models.StatusCancelled, "customer"); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":         "Cannot cancel order",
			"reason":        err.Error(),
			"current_state": order.Status,
		})
		return
	}

	prevStatus := order.Status
	config.DB.Model(&order).Update("status", models.StatusCancelled)

	history := models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: prevStatus,
		ToStatus:   models.StatusCancelled,
		ChangedBy:  customerID,
		Note:       "Order cancelled by customer",
	}
	config.DB.Create(&history)

	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order_id": order.ID})
}
