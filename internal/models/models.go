package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups subcategories and products. Deactivating a category
// deactivates everything under it; activating it touches nothing else.
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Subcategory belongs to exactly one category. Its name is unique within
// that category.
type Subcategory struct {
	ID          int64     `db:"id" json:"id"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Product carries a denormalized category_id; it must always match the
// category of its subcategory.
type Product struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   *string         `db:"description" json:"description,omitempty"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Stock         int             `db:"stock" json:"stock"`
	Image         *string         `db:"image" json:"image,omitempty"`
	CategoryID    int64           `db:"category_id" json:"category_id"`
	SubcategoryID int64           `db:"subcategory_id" json:"subcategory_id"`
	Active        bool            `db:"active" json:"active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CartLine is one product in a user's cart. UnitPrice is the product price
// frozen at the moment the line was created, immune to later price changes.
// (user_id, product_id) is unique.
type CartLine struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is an immutable snapshot of a cart at checkout time. Only status and
// the status timestamps ever change afterwards; orders are never deleted.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	Total           decimal.Decimal `db:"total" json:"total"`
	Status          string          `db:"status" json:"status"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	Phone           string          `db:"phone" json:"phone"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	PaidAt          *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	ShippedAt       *time.Time      `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderLine is one product within an order, priced at the cart's snapshot
// price. Subtotal is derived but stored.
type OrderLine struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// User is the authenticated identity. Credentials live in the auth service;
// this row only anchors foreign keys.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// User roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// CategoryStats summarizes a category's descendants and inventory.
type CategoryStats struct {
	TotalSubcategories  int             `db:"total_subcategories" json:"total_subcategories"`
	ActiveSubcategories int             `db:"active_subcategories" json:"active_subcategories"`
	TotalProducts       int             `db:"total_products" json:"total_products"`
	ActiveProducts      int             `db:"active_products" json:"active_products"`
	TotalStock          int             `db:"total_stock" json:"total_stock"`
	InventoryValue      decimal.Decimal `db:"inventory_value" json:"inventory_value"`
}

// ProcessedEvent records consumed event ids for idempotent workers.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
