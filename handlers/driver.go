package handlers

import (
	"net/http"

	"restaurant-orders-api/config"
	"restaurant-orders-api/middleware"
	"restaurant-orders-api/models"
	"restaurant-orders-api/statemachine"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetAvailableOrders lists delivery orders that are ready and unclaimed.
// Dine-in tabs (orders with a table label) never show up here.
func GetAvailableOrders(c *gin.Context) {
	var orders []models.Order
	if err := config.DB.
		Where("status = ? AND driver_id IS NULL AND table_label IS NULL", models.StatusReady).
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(orders),
		"orders":  orders,
	})
}

// GetMyDeliveries lists the orders claimed by the calling driver
func GetMyDeliveries(c *gin.Context) {
	driverID := middleware.GetUserID(c)

	var orders []models.Order
	if err := config.DB.
		Where("driver_id = ?", driverID).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load deliveries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(orders),
		"orders":  orders,
	})
}

// DeliverOrder claims an order for the calling driver and marks it delivered.
// Claiming is first-come: an order already held by another driver conflicts.
func DeliverOrder(c *gin.Context) {
	driverID := middleware.GetUserID(c)
	orderID := c.Param("id")

	var order models.Order
	if err := config.DB.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if order.DriverID != nil && *order.DriverID != driverID {
		c.JSON(http.StatusConflict, gin.H{"error": "Order is already assigned to another driver"})
		return
	}

	if err := statemachine.CanTransition(order.Status, models.StatusDelivered, "driver"); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    order.Status,
			"reason":            err.Error(),
			"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
		})
		return
	}

	prevStatus := order.Status
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"driver_id": driverID,
			"status":    models.StatusDelivered,
		}).Error; err != nil {
			return err
		}
		history := models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: prevStatus,
			ToStatus:   models.StatusDelivered,
			ChangedBy:  driverID,
			Note:       "Delivered by driver",
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Order delivered",
		"order_id":   order.ID,
		"new_status": models.StatusDelivered,
	})
}
