package store

import (
	"context"
	"database/sql"

	"shop-service/internal/errs"
	"shop-service/internal/models"
)

// GetCartLines retrieves all cart lines for a user, newest first
func (s *Store) GetCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM cart_lines WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return lines, err
}

// GetCartLine retrieves a single cart line, nil when absent
func (s *Store) GetCartLine(ctx context.Context, userID, productID int64) (*models.CartLine, error) {
	var line models.CartLine
	err := s.db.GetContext(ctx, &line,
		"SELECT * FROM cart_lines WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// InsertCartLine creates a cart line with the frozen unit price
func (s *Store) InsertCartLine(ctx context.Context, line *models.CartLine) error {
	query := `
		INSERT INTO cart_lines (user_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, line, query,
		line.UserID, line.ProductID, line.Quantity, line.UnitPrice)
	if isUniqueViolation(err) {
		return errs.Entity(errs.KindValidation, "product", line.ProductID,
			"product is already in the cart")
	}
	return err
}

// UpdateCartLineQuantity changes the quantity of an existing line. The price
// snapshot is deliberately left untouched.
func (s *Store) UpdateCartLineQuantity(ctx context.Context, lineID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_lines SET quantity = $1, updated_at = NOW() WHERE id = $2",
		quantity, lineID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("cart line", lineID)
	}
	return nil
}

// DeleteCartLine removes one product from a user's cart
func (s *Store) DeleteCartLine(ctx context.Context, userID, productID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("cart line", productID)
	}
	return nil
}

// ClearCart removes every cart line for a user and reports how many
func (s *Store) ClearCart(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart_lines WHERE user_id = $1", userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
