package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"restaurant-orders-api/config"
	"restaurant-orders-api/models"

	"github.com/gin-gonic/gin"
)

const (
	menuCacheKey = "menu:all"
	menuCacheTTL = 5 * time.Minute
)

// ListCategories returns all active categories (public)
func ListCategories(c *gin.Context) {
	var categories []models.Category
	query := config.DB
	if c.Query("all") != "true" {
		query = query.Where("is_active = ?", true)
	}
	query.Find(&categories)
	c.JSON(http.StatusOK, gin.H{
		"count":      len(categories),
		"categories": categories,
	})
}

// GetMenu returns the product catalog (public). Unfiltered requests are
// served from the redis cache when one is configured.
func GetMenu(c *gin.Context) {
	category := c.Query("category")
	search := c.Query("search")
	cacheable := category == "" && search == ""

	if cacheable && config.RDB != nil {
		if cached, err := config.RDB.Get(c.Request.Context(), menuCacheKey).Result(); err == nil {
			var products []models.Product
			if json.Unmarshal([]byte(cached), &products) == nil {
				c.JSON(http.StatusOK, gin.H{
					"count":  len(products),
					"menu":   products,
					"cached": true,
				})
				return
			}
		}
	}

	var products []models.Product
	query := config.DB.Preload("Category").Where("is_available = ?", true)
	if category != "" {
		query = query.Where("category_id = ?", category)
	}
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	query.Order("category_id, name").Find(&products)

	if cacheable && config.RDB != nil {
		if data, err := json.Marshal(products); err == nil {
			config.RDB.Set(c.Request.Context(), menuCacheKey, data, menuCacheTTL)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(products),
		"menu":  products,
	})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	info := []gin.H{
		{"from": "open_table", "to": "confirmed", "actor": "waiter"},
		{"from": "open_table", "to": "cancelled", "actor": "waiter or customer"},
		{"from": "open_table", "to": "paid", "actor": "waiter"},
		{"from": "confirmed", "to": "preparing", "actor": "waiter"},
		{"from": "confirmed", "to": "cancelled", "actor": "waiter, customer or admin"},
		{"from": "preparing", "to": "ready", "actor": "waiter"},
		{"from": "ready", "to": "delivered", "actor": "driver"},
		{"from": "ready", "to": "paid", "actor": "waiter"},
		{"from": "delivered", "to": "paid", "actor": "waiter or admin"},
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   info,
		"terminal_states": []string{"paid", "cancelled"},
		"description":     "Restaurant Order Lifecycle State Machine",
	})
}
