package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/errs"

	"github.com/jmoiron/sqlx"
)

// GetStock returns the current stock level for a product
func (s *Store) GetStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := s.db.GetContext(ctx, &stock, "SELECT stock FROM products WHERE id = $1", productID)
	if err == sql.ErrNoRows {
		return 0, errs.NotFound("product", productID)
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// lockStock takes a row-level lock on the product and returns its stock.
// Callers running multi-product operations must lock in ascending product id
// order to stay deadlock-free.
func lockStock(ctx context.Context, tx *sqlx.Tx, productID int64) (int, error) {
	var stock int
	err := tx.GetContext(ctx, &stock,
		"SELECT stock FROM products WHERE id = $1 FOR UPDATE", productID)
	if err == sql.ErrNoRows {
		return 0, errs.NotFound("product", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	return stock, nil
}

// lockProducts locks every product row matching parentColumn = parentID, in
// ascending id order. Bulk product updates must call this first so they take
// locks in the same order as the per-row paths.
func lockProducts(ctx context.Context, tx *sqlx.Tx, parentColumn string, parentID int64) error {
	var ids []int64
	query := fmt.Sprintf(
		"SELECT id FROM products WHERE %s = $1 ORDER BY id FOR UPDATE", parentColumn)
	if err := tx.SelectContext(ctx, &ids, query, parentID); err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}
	return nil
}

// reserveLocked decrements stock inside an already-open transaction. The
// product row must be locked by the caller via lockStock.
func reserveLocked(ctx context.Context, tx *sqlx.Tx, productID int64, quantity, available int) (int, error) {
	if quantity > available {
		return 0, errs.Entity(errs.KindInsufficientStock, "product", productID,
			fmt.Sprintf("insufficient stock: available=%d, requested=%d", available, quantity))
	}

	var newStock int
	err := tx.GetContext(ctx, &newStock,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 RETURNING stock",
		quantity, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve stock: %w", err)
	}
	return newStock, nil
}

// releaseLocked increments stock inside an already-open transaction. There is
// no upper bound: released stock may exceed any prior level.
func releaseLocked(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) (int, error) {
	var newStock int
	err := tx.GetContext(ctx, &newStock,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2 RETURNING stock",
		quantity, productID)
	if err == sql.ErrNoRows {
		return 0, errs.NotFound("product", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to release stock: %w", err)
	}
	return newStock, nil
}

// ReserveStock atomically decrements stock for a single product (FOR UPDATE
// lock). Fails with an InsufficientStock error when quantity exceeds the
// available stock; stock never goes negative.
func (s *Store) ReserveStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var newStock int
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		available, err := lockStock(ctx, tx, productID)
		if err != nil {
			return err
		}
		newStock, err = reserveLocked(ctx, tx, productID, quantity, available)
		return err
	})
	return newStock, err
}

// ReleaseStock atomically increments stock for a single product
func (s *Store) ReleaseStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var newStock int
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockStock(ctx, tx, productID); err != nil {
			return err
		}
		var lockErr error
		newStock, lockErr = releaseLocked(ctx, tx, productID, quantity)
		return lockErr
	})
	return newStock, err
}

// SetProductStock overwrites the stock level (admin operation)
func (s *Store) SetProductStock(ctx context.Context, productID int64, stock int) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockStock(ctx, tx, productID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2",
			stock, productID)
		return err
	})
}
