package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"restaurant-orders-api/config"
	"restaurant-orders-api/middleware"
	"restaurant-orders-api/models"
	"restaurant-orders-api/statemachine"
	"restaurant-orders-api/tables"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// tableMu serializes structural table mutations (unify/separate/close) so two
// waiters cannot restructure the same tables concurrently. Row-level locking
// alone cannot prevent interleaved multi-row updates here. AssignProduct also
// holds it across its cap check and insert so concurrent assigns cannot
// jointly exceed an item's quantity.
var tableMu sync.Mutex

// ── Table orders ─────────────────────────────────────────────────────────────

type OpenTableRequest struct {
	TableLabel string             `json:"table_label" binding:"required"`
	Notes      string             `json:"notes"`
	Items      []OrderItemRequest `json:"items"`
}

// OpenTable starts a new open tab on a physical table. A table may carry any
// number of open orders; the grouping layer consolidates them into one bill.
func OpenTable(c *gin.Context) {
	waiterID := middleware.GetUserID(c)

	var req OpenTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var order models.Order
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		lineItems := []tables.LineItem{}
		total := decimal.Zero
		if len(req.Items) > 0 {
			var status int
			var err error
			lineItems, total, status, err = snapshotItems(tx, req.Items)
			if err != nil {
				c.JSON(status, gin.H{"error": err.Error()})
				return err
			}
		}

		itemsJSON, err := json.Marshal(lineItems)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode order items"})
			return err
		}

		order = models.Order{
			WaiterID:   &waiterID,
			TableLabel: &req.TableLabel,
			Status:     models.StatusOpenTable,
			Items:      itemsJSON,
			Total:      total,
			Notes:      req.Notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open table"})
			return err
		}

		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusOpenTable,
			ChangedBy: waiterID,
			Note:      "Table opened by waiter",
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
		"success": true,
		"message": "Table opened",
		"order":   order,
	})
}

type AddItemsRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1"`
}

// AddItemsToTable appends items to an existing open tab
func AddItemsToTable(c *gin.Context) {
	orderID := c.Param("id")

	var req AddItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var order models.Order
	if err := config.DB.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.Status != models.StatusOpenTable {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          "Items can only be added to an open table",
			"current_status": order.Status,
		})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		newItems, addedTotal, status, err := snapshotItems(tx, req.Items)
		if err != nil {
			c.JSON(status, gin.H{"error": err.Error()})
			return err
		}

		merged := append(tables.ParseItems(order.Items), newItems...)
		itemsJSON, err := json.Marshal(merged)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode order items"})
			return err
		}

		if err := tx.Model(&order).Updates(map[string]interface{}{
			"items": itemsJSON,
			"total": order.Total.Add(addedTotal),
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
			return err
		}
		return nil
	})
	if err != nil {
		return
	}

	config.DB.First(&order, order.ID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Items added to table",
		"order":   order,
	})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// UpdateOrderStatus handles the waiter's kitchen-flow transitions
func UpdateOrderStatus(c *gin.Context) {
	waiterID := middleware.GetUserID(c)
	orderID := c.Param("id")

	var order models.Order
	if err := config.DB.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := statemachine.CanTransition(order.Status, req.Status, "waiter"); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    order.Status,
			"requested":         req.Status,
			"reason":            err.Error(),
			"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
		})
		return
	}

	prevStatus := order.Status
	config.DB.Model(&order).Update("status", req.Status)

	history := models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: prevStatus,
		ToStatus:   req.Status,
		ChangedBy:  waiterID,
		Note:       req.Note,
	}
	config.DB.Create(&history)

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Order status updated",
		"order_id":        order.ID,
		"previous_status": prevStatus,
		"new_status":      req.Status,
	})
}

// ── Consolidation ────────────────────────────────────────────────────────────

// GetOpenTables returns every open tab grouped into consolidated table views
func GetOpenTables(c *gin.Context) {
	var orders []models.Order
	if err := config.DB.Preload("UnifiedTable").
		Where("status = ?", models.StatusOpenTable).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load open orders"})
		return
	}

	grouped := tables.GroupOrdersByTable(orders)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(grouped),
		"tables":  grouped,
	})
}

type UnifyTablesRequest struct {
	TableLabels []string `json:"table_labels" binding:"required,min=2"`
	UnifiedName string   `json:"unified_name" binding:"required"`
}

// UnifyTables merges two or more physical tables' open tabs into one virtual
// billing group. All repoints happen in a single transaction: either every
// eligible order ends up referencing the new unified table, or none do.
// A table already belonging to another unified table rejects the whole
// request with 409.
func UnifyTables(c *gin.Context) {
	var req UnifyTablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tableMu.Lock()
	defer tableMu.Unlock()

	var unified models.UnifiedTable
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var orderIDs []uint
		for _, label := range req.TableLabels {
			var orders []models.Order
			if err := tx.Where("table_label = ? AND status = ?", label, models.StatusOpenTable).
				Find(&orders).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load table orders"})
				return err
			}
			if len(orders) == 0 {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No open orders on table '%s'", label)})
				return fmt.Errorf("no open orders on %s", label)
			}
			for _, o := range orders {
				if o.UnifiedTableID != nil {
					c.JSON(http.StatusConflict, gin.H{
						"error": fmt.Sprintf("Table '%s' already belongs to another unified table", label),
					})
					return fmt.Errorf("table %s already unified", label)
				}
				orderIDs = append(orderIDs, o.ID)
			}
		}

		unified = models.UnifiedTable{
			UnifiedName:    req.UnifiedName,
			MainTableLabel: req.TableLabels[0],
			OriginalTables: req.TableLabels,
		}
		if err := tx.Create(&unified).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create unified table"})
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id IN ?", orderIDs).
			Update("unified_table_id", unified.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to repoint table orders"})
			return err
		}
		return nil
	})
	if err != nil {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"message":          "Tables unified",
		"unified_table_id": unified.ID,
		"unified_table":    unified,
	})
}

type SeparateTablesRequest struct {
	UnifiedTableID uint `json:"unified_table_id" binding:"required"`
}

// SeparateTables undoes a unification, restoring every order to its physical
// table grouping. Separating an id that no longer exists is a no-op so UI
// retries stay harmless.
func SeparateTables(c *gin.Context) {
	var req SeparateTablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tableMu.Lock()
	defer tableMu.Unlock()

	var unified models.UnifiedTable
	if err := config.DB.First(&unified, req.UnifiedTableID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Unified table already separated",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load unified table"})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).
			Where("unified_table_id = ?", unified.ID).
			Update("unified_table_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&unified).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to separate tables"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Tables separated",
		"restored_tables": unified.OriginalTables,
	})
}

// ListUnifiedTables returns every unified table with its open-order totals
func ListUnifiedTables(c *gin.Context) {
	var unifieds []models.UnifiedTable
	if err := config.DB.Order("created_at desc").Find(&unifieds).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load unified tables"})
		return
	}

	views := make([]gin.H, 0, len(unifieds))
	for _, u := range unifieds {
		var orders []models.Order
		config.DB.Where("unified_table_id = ? AND status = ?", u.ID, models.StatusOpenTable).
			Find(&orders)

		total := decimal.Zero
		for _, o := range orders {
			total = total.Add(o.Total)
		}

		views = append(views, gin.H{
			"id":               u.ID,
			"unified_name":     u.UnifiedName,
			"main_table_label": u.MainTableLabel,
			"original_tables":  u.OriginalTables,
			"total_orders":     len(orders),
			"total_amount":     total,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"count":          len(views),
		"unified_tables": views,
	})
}

// ── Bill division ────────────────────────────────────────────────────────────

type AssignProductRequest struct {
	OrderID      uint            `json:"order_id" binding:"required"`
	ProductID    uint            `json:"product_id" binding:"required"`
	CustomerName string          `json:"customer_name" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required,min=1"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// AssignProduct assigns a quantity of one order's line item to a named
// customer. Cumulative assignments for a product can never exceed the
// quantity on the order. Unit price defaults to the order's line item when
// the request omits it; waiters may override for manual corrections.
func AssignProduct(c *gin.Context) {
	var req AssignProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var order models.Order
	if err := config.DB.First(&order, req.OrderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.Status != models.StatusOpenTable {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          "Products can only be assigned on an open table",
			"current_status": order.Status,
		})
		return
	}

	// Re-ordering a product appends a second line entry rather than merging,
	// so the assignable quantity is the sum over every matching entry. The
	// first entry still supplies the price fallback.
	var item *tables.LineItem
	orderedQty := 0
	for _, li := range tables.ParseItems(order.Items) {
		if li.ProductID == req.ProductID {
			if item == nil {
				found := li
				item = &found
			}
			orderedQty += li.Quantity
		}
	}
	if item == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product is not part of this order"})
		return
	}

	tableMu.Lock()
	defer tableMu.Unlock()

	var assigned int64
	config.DB.Model(&models.ProductAssignment{}).
		Where("order_id = ? AND product_id = ?", req.OrderID, req.ProductID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&assigned)
	if int(assigned)+req.Quantity > orderedQty {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":            "Assignment exceeds the order's item quantity",
			"item_quantity":    orderedQty,
			"already_assigned": assigned,
			"requested":        req.Quantity,
		})
		return
	}

	unitPrice := req.UnitPrice
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		unitPrice = item.UnitPrice
	}

	assignment := models.ProductAssignment{
		OrderID:      req.OrderID,
		ProductID:    req.ProductID,
		CustomerName: req.CustomerName,
		Quantity:     req.Quantity,
		UnitPrice:    unitPrice,
	}
	if err := config.DB.Create(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save assignment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"message":       "Product assigned",
		"assignment_id": assignment.ID,
		"assignment":    assignment,
	})
}

// GetSplitBills computes per-customer sub-bills for a table's open orders
func GetSplitBills(c *gin.Context) {
	table := c.Query("table")
	if table == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table query parameter is required"})
		return
	}

	orders, _, err := openOrdersForKey(config.DB, table)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load table orders"})
		return
	}
	if len(orders) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No open orders on table '%s'", table)})
		return
	}

	orderIDs := make([]uint, 0, len(orders))
	tableTotal := decimal.Zero
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		tableTotal = tableTotal.Add(o.Total)
	}

	var assignments []models.ProductAssignment
	if err := config.DB.Where("order_id IN ?", orderIDs).
		Order("created_at asc").
		Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load assignments"})
		return
	}

	bills := tables.ComputeSplitBills(orders, assignments)
	assignedTotal := decimal.Zero
	for _, b := range bills {
		assignedTotal = assignedTotal.Add(b.Total)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"table":          table,
		"table_total":    tableTotal,
		"assigned_total": assignedTotal,
		"bills":          bills,
	})
}

type CloseTableRequest struct {
	Table string `json:"table" binding:"required"`
	Note  string `json:"note"`
}

// CloseTable marks every open order on a grouping key as paid, deletes its
// product assignments, and tears down any unified table involved.
func CloseTable(c *gin.Context) {
	waiterID := middleware.GetUserID(c)

	var req CloseTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tableMu.Lock()
	defer tableMu.Unlock()

	orders, unified, err := openOrdersForKey(config.DB, req.Table)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load table orders"})
		return
	}
	if len(orders) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No open orders on table '%s'", req.Table)})
		return
	}

	total := decimal.Zero
	orderIDs := make([]uint, 0, len(orders))
	unifiedIDs := map[uint]bool{}
	for _, o := range orders {
		total = total.Add(o.Total)
		orderIDs = append(orderIDs, o.ID)
		if o.UnifiedTableID != nil {
			unifiedIDs[*o.UnifiedTableID] = true
		}
	}
	if unified != nil {
		unifiedIDs[unified.ID] = true
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).
				Updates(map[string]interface{}{
					"status":           models.StatusPaid,
					"unified_table_id": nil,
				}).Error; err != nil {
				return err
			}
			history := models.OrderStatusHistory{
				OrderID:    o.ID,
				FromStatus: o.Status,
				ToStatus:   models.StatusPaid,
				ChangedBy:  waiterID,
				Note:       "Table closed and paid",
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("order_id IN ?", orderIDs).
			Delete(&models.ProductAssignment{}).Error; err != nil {
			return err
		}

		// Closing any member dissolves the union. Orders on the other members
		// may still be open, so their references are cleared too; they revert
		// to grouping under their own labels.
		for id := range unifiedIDs {
			if err := tx.Model(&models.Order{}).
				Where("unified_table_id = ?", id).
				Update("unified_table_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.UnifiedTable{}, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close table"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Table closed",
		"table":         req.Table,
		"closed_orders": len(orders),
		"total":         total,
	})
}

// openOrdersForKey resolves a grouping key to its open orders: the whole
// group when the key names a unified table, otherwise every open order on
// the physical label.
func openOrdersForKey(db *gorm.DB, key string) ([]models.Order, *models.UnifiedTable, error) {
	var unified models.UnifiedTable
	if err := db.Where("unified_name = ?", key).First(&unified).Error; err == nil {
		var orders []models.Order
		err := db.Preload("UnifiedTable").
			Where("unified_table_id = ? AND status = ?", unified.ID, models.StatusOpenTable).
			Order("created_at desc").
			Find(&orders).Error
		return orders, &unified, err
	} else if err != gorm.ErrRecordNotFound {
		return nil, nil, err
	}

	var orders []models.Order
	err := db.Preload("UnifiedTable").
		Where("table_label = ? AND status = ?", key, models.StatusOpenTable).
		Order("created_at desc").
		Find(&orders).Error
	return orders, nil, err
}
