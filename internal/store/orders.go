package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"shop-service/internal/errs"
	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// Timestamp columns touched by order status transitions. Only these names
// may be interpolated into the transition query.
const (
	OrderTsPaid      = "paid_at"
	OrderTsShipped   = "shipped_at"
	OrderTsDelivered = "delivered_at"
)

var orderTsColumns = map[string]bool{
	OrderTsPaid:      true,
	OrderTsShipped:   true,
	OrderTsDelivered: true,
}

// CreateOrderFromCart converts a user's cart into an order inside one
// transaction: insert the order, insert its lines at the cart's snapshot
// prices, reserve stock per line (product rows locked in ascending id order),
// then empty the cart. Any failure rolls back the whole conversion.
func (s *Store) CreateOrderFromCart(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	sorted := make([]models.OrderLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO orders (user_id, total, status, shipping_address, phone, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`

		if err := tx.GetContext(ctx, order, query,
			order.UserID, order.Total, order.Status,
			order.ShippingAddress, order.Phone, order.Notes); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range sorted {
			line := &sorted[i]
			line.OrderID = order.ID

			var prod struct {
				Stock  int  `db:"stock"`
				Active bool `db:"active"`
			}
			err := tx.GetContext(ctx, &prod,
				"SELECT stock, active FROM products WHERE id = $1 FOR UPDATE", line.ProductID)
			if err == sql.ErrNoRows {
				return errs.Entity(errs.KindOrderCreationFailed, "product", line.ProductID,
					"product no longer exists")
			}
			if err != nil {
				return fmt.Errorf("failed to lock product %d: %w", line.ProductID, err)
			}
			if !prod.Active {
				return errs.Entity(errs.KindOrderCreationFailed, "product", line.ProductID,
					"product is no longer available")
			}
			if line.Quantity > prod.Stock {
				return errs.Entity(errs.KindOrderCreationFailed, "product", line.ProductID,
					fmt.Sprintf("insufficient stock: available=%d, requested=%d", prod.Stock, line.Quantity))
			}

			if _, err := tx.ExecContext(ctx,
				"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2",
				line.Quantity, line.ProductID); err != nil {
				return fmt.Errorf("failed to reserve stock for product %d: %w", line.ProductID, err)
			}

			lineQuery := `
				INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`

			if err := tx.GetContext(ctx, &line.ID, lineQuery,
				line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal); err != nil {
				return fmt.Errorf("failed to create order line: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM cart_lines WHERE user_id = $1", order.UserID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("order", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrders retrieves all orders, optionally filtered by status
func (s *Store) GetOrders(ctx context.Context, status string) ([]models.Order, error) {
	var orders []models.Order
	if status != "" {
		err := s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC", status)
		return orders, err
	}
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// GetOrderLines retrieves all lines for an order
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// AdvanceOrderStatus moves an order to target under a row lock. The caller
// supplies the transition check, which sees the current status; tsColumn is
// stamped only if it is still NULL so re-running a transition can never
// overwrite a timestamp.
func (s *Store) AdvanceOrderStatus(ctx context.Context, orderID int64, target, tsColumn string, validate func(current string) error) (*models.Order, error) {
	if !orderTsColumns[tsColumn] {
		return nil, fmt.Errorf("unknown order timestamp column %q", tsColumn)
	}

	var order models.Order
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockOrderStatus(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}

		query := fmt.Sprintf(`
			UPDATE orders SET status = $1, %s = COALESCE(%s, NOW()), updated_at = NOW()
			WHERE id = $2
			RETURNING *`, tsColumn, tsColumn)

		return tx.GetContext(ctx, &order, query, target, orderID)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels an order and restores stock for every line in the same
// transaction. Product rows are locked in ascending id order. Returns the
// cancelled order and its lines.
func (s *Store) CancelOrder(ctx context.Context, orderID int64, validate func(current string) error) (*models.Order, []models.OrderLine, error) {
	var (
		order models.Order
		lines []models.OrderLine
	)
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockOrderStatus(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}

		if err := tx.SelectContext(ctx, &lines,
			"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY product_id", orderID); err != nil {
			return fmt.Errorf("failed to load order lines: %w", err)
		}

		for _, line := range lines {
			if _, err := lockStock(ctx, tx, line.ProductID); err != nil {
				return err
			}
			if _, err := releaseLocked(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		return tx.GetContext(ctx, &order, `
			UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING *`, models.OrderStatusCancelled, orderID)
	})
	if err != nil {
		return nil, nil, err
	}
	return &order, lines, nil
}

func lockOrderStatus(ctx context.Context, tx *sqlx.Tx, orderID int64) (string, error) {
	var status string
	err := tx.GetContext(ctx, &status,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return "", errs.NotFound("order", orderID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock order: %w", err)
	}
	return status, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
