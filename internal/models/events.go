package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated           = "ORDER_CREATED"
	EventTypeOrderPaid              = "ORDER_PAID"
	EventTypeOrderShipped           = "ORDER_SHIPPED"
	EventTypeOrderDelivered         = "ORDER_DELIVERED"
	EventTypeOrderCancelled         = "ORDER_CANCELLED"
	EventTypeCategoryDeactivated    = "CATEGORY_DEACTIVATED"
	EventTypeSubcategoryDeactivated = "SUBCATEGORY_DEACTIVATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderLineData represents line data carried in order events
type OrderLineData struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderCreatedEvent published when a cart is converted into an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	UserID  int64           `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
	Lines   []OrderLineData `json:"lines"`
}

// OrderPaidEvent published when an order transitions to paid
type OrderPaidEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	UserID  int64           `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
	Lines   []OrderLineData `json:"lines"`
}

// OrderShippedEvent published when an order transitions to shipped
type OrderShippedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
}

// OrderDeliveredEvent published when an order transitions to delivered
type OrderDeliveredEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
}

// OrderCancelledEvent published after stock has been restored
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	UserID  int64           `json:"user_id"`
	Lines   []OrderLineData `json:"lines"`
}

// CategoryDeactivatedEvent published after a category cascade commits
type CategoryDeactivatedEvent struct {
	BaseEvent
	CategoryID           int64 `json:"category_id"`
	SubcategoriesTouched int64 `json:"subcategories_touched"`
	ProductsTouched      int64 `json:"products_touched"`
}

// SubcategoryDeactivatedEvent published after a subcategory cascade commits
type SubcategoryDeactivatedEvent struct {
	BaseEvent
	SubcategoryID   int64 `json:"subcategory_id"`
	ProductsTouched int64 `json:"products_touched"`
}
