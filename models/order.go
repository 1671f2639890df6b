package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusOpenTable OrderStatus = "open_table"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	CustomerID      *uint           `json:"customer_id"`
	Customer        *User           `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	WaiterID        *uint           `json:"waiter_id"`
	Waiter          *User           `json:"waiter,omitempty" gorm:"foreignKey:WaiterID"`
	DriverID        *uint           `json:"driver_id"`
	Driver          *User           `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	TableLabel      *string         `json:"table_label" gorm:"index"` // nil for delivery orders
	Status          OrderStatus     `json:"status" gorm:"not null;default:'open_table';index"`
	Items           datatypes.JSON  `json:"items"` // serialized line items, parsed leniently on read
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(10,2)"`
	DeliveryAddress string          `json:"delivery_address"`
	Notes           string          `json:"notes"`
	UnifiedTableID  *uint           `json:"unified_table_id" gorm:"index"`
	UnifiedTable    *UnifiedTable   `json:"unified_table,omitempty" gorm:"foreignKey:UnifiedTableID"`
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// GroupingKey resolves the name an order is billed under: the unified table's
// name when the order has been merged, otherwise its physical table label.
// Requires UnifiedTable to be preloaded. Empty string for delivery orders.
func (o *Order) GroupingKey() string {
	if o.UnifiedTableID != nil && o.UnifiedTable != nil {
		return o.UnifiedTable.UnifiedName
	}
	if o.TableLabel != nil {
		return *o.TableLabel
	}
	return ""
}

// StringArray stores a JSON-encoded list of strings in a single column
type StringArray []string

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return fmt.Errorf("failed to scan StringArray: %v", value)
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	return string(b), err
}

// UnifiedTable is the virtual table a waiter creates by merging two or more
// physical tables. Open orders on the merged tables point at it through
// Order.UnifiedTableID until the waiter separates them again.
type UnifiedTable struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	UnifiedName    string      `json:"unified_name" gorm:"not null"`
	MainTableLabel string      `json:"main_table_label" gorm:"not null"`
	OriginalTables StringArray `json:"original_tables" gorm:"type:text"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ProductAssignment links a quantity of one order's line item to a named
// customer for bill splitting. Many assignments may reference the same order;
// together they partition that order's items across customers.
type ProductAssignment struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	OrderID      uint            `json:"order_id" gorm:"not null;index"`
	ProductID    uint            `json:"product_id" gorm:"not null"`
	CustomerName string          `json:"customer_name" gorm:"not null"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2)"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OrderStatusHistory tracks every status change — audit trail
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"` // user ID who triggered the transition
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
