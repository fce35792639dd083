package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/errs"
	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateCategory creates a new category
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (name, description, active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, c, query, c.Name, c.Description, c.Active)
	if isUniqueViolation(err) {
		return errs.Newf(errs.KindValidation, "category name %q already exists", c.Name)
	}
	return err
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c, "SELECT * FROM categories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("category", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategories retrieves all categories
func (s *Store) GetCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := "SELECT * FROM categories"
	if activeOnly {
		query += " WHERE active = true"
	}
	query += " ORDER BY id"

	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, query)
	return categories, err
}

// UpdateCategory updates name and description. Active is only changed through
// SetCategoryActive so the cascade cannot be bypassed.
func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	query := `
		UPDATE categories SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	err := s.db.GetContext(ctx, &c.UpdatedAt, query, c.Name, c.Description, c.ID)
	if err == sql.ErrNoRows {
		return errs.NotFound("category", c.ID)
	}
	if isUniqueViolation(err) {
		return errs.Newf(errs.KindValidation, "category name %q already exists", c.Name)
	}
	return err
}

// DeleteCategory removes a category row. Callers must have verified the
// category is childless.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("category", id)
	}
	return nil
}

// SetCategoryActive flips a category's active flag. Deactivation cascades to
// every subcategory and product under the category in the same transaction;
// activation touches only the category itself. Returns how many
// subcategories and products were deactivated.
func (s *Store) SetCategoryActive(ctx context.Context, id int64, active bool) (subs, prods int64, err error) {
	err = s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current bool
		lockErr := tx.GetContext(ctx, &current,
			"SELECT active FROM categories WHERE id = $1 FOR UPDATE", id)
		if lockErr == sql.ErrNoRows {
			return errs.NotFound("category", id)
		}
		if lockErr != nil {
			return fmt.Errorf("failed to lock category: %w", lockErr)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE categories SET active = $1, updated_at = NOW() WHERE id = $2",
			active, id); err != nil {
			return err
		}

		if active {
			return nil
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE subcategories SET active = false, updated_at = NOW() WHERE category_id = $1",
			id)
		if err != nil {
			return fmt.Errorf("failed to cascade to subcategories: %w", err)
		}
		subs, _ = res.RowsAffected()

		// Lock the product rows in ascending id order before the bulk
		// update. A bare UPDATE locks in scan order, which can deadlock
		// against checkout and cancel walking products by ascending id.
		if err := lockProducts(ctx, tx, "category_id", id); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx,
			"UPDATE products SET active = false, updated_at = NOW() WHERE category_id = $1",
			id)
		if err != nil {
			return fmt.Errorf("failed to cascade to products: %w", err)
		}
		prods, _ = res.RowsAffected()
		return nil
	})
	return subs, prods, err
}

// CreateSubcategory creates a subcategory. The parent category is locked for
// the duration so a concurrent deactivation cannot slip between the guard and
// the insert; creating under an inactive category fails.
func (s *Store) CreateSubcategory(ctx context.Context, sub *models.Subcategory) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var parentActive bool
		err := tx.GetContext(ctx, &parentActive,
			"SELECT active FROM categories WHERE id = $1 FOR UPDATE", sub.CategoryID)
		if err == sql.ErrNoRows {
			return errs.NotFound("category", sub.CategoryID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock category: %w", err)
		}
		if !parentActive {
			return errs.Entity(errs.KindPreconditionFailed, "category", sub.CategoryID,
				"cannot create a subcategory under an inactive category")
		}

		query := `
			INSERT INTO subcategories (category_id, name, description, active)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`

		err = tx.GetContext(ctx, sub, query, sub.CategoryID, sub.Name, sub.Description, sub.Active)
		if isUniqueViolation(err) {
			return errs.Newf(errs.KindValidation,
				"subcategory name %q already exists in category %d", sub.Name, sub.CategoryID)
		}
		return err
	})
}

// GetSubcategoryByID retrieves a subcategory by ID
func (s *Store) GetSubcategoryByID(ctx context.Context, id int64) (*models.Subcategory, error) {
	var sub models.Subcategory
	err := s.db.GetContext(ctx, &sub, "SELECT * FROM subcategories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("subcategory", id)
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubcategories retrieves subcategories, optionally scoped to a category
func (s *Store) GetSubcategories(ctx context.Context, categoryID *int64, activeOnly bool) ([]models.Subcategory, error) {
	query := "SELECT * FROM subcategories WHERE 1=1"
	args := []interface{}{}

	if categoryID != nil {
		args = append(args, *categoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if activeOnly {
		query += " AND active = true"
	}
	query += " ORDER BY id"

	var subs []models.Subcategory
	err := s.db.SelectContext(ctx, &subs, query, args...)
	return subs, err
}

// UpdateSubcategory updates name and description
func (s *Store) UpdateSubcategory(ctx context.Context, sub *models.Subcategory) error {
	query := `
		UPDATE subcategories SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	err := s.db.GetContext(ctx, &sub.UpdatedAt, query, sub.Name, sub.Description, sub.ID)
	if err == sql.ErrNoRows {
		return errs.NotFound("subcategory", sub.ID)
	}
	if isUniqueViolation(err) {
		return errs.Newf(errs.KindValidation,
			"subcategory name %q already exists in category %d", sub.Name, sub.CategoryID)
	}
	return err
}

// DeleteSubcategory removes a subcategory row
func (s *Store) DeleteSubcategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subcategories WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("subcategory", id)
	}
	return nil
}

// SetSubcategoryActive flips a subcategory's active flag. Deactivation
// cascades to its products; activation is local-only.
func (s *Store) SetSubcategoryActive(ctx context.Context, id int64, active bool) (prods int64, err error) {
	err = s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current bool
		lockErr := tx.GetContext(ctx, &current,
			"SELECT active FROM subcategories WHERE id = $1 FOR UPDATE", id)
		if lockErr == sql.ErrNoRows {
			return errs.NotFound("subcategory", id)
		}
		if lockErr != nil {
			return fmt.Errorf("failed to lock subcategory: %w", lockErr)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE subcategories SET active = $1, updated_at = NOW() WHERE id = $2",
			active, id); err != nil {
			return err
		}

		if active {
			return nil
		}

		if err := lockProducts(ctx, tx, "subcategory_id", id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE products SET active = false, updated_at = NOW() WHERE subcategory_id = $1",
			id)
		if err != nil {
			return fmt.Errorf("failed to cascade to products: %w", err)
		}
		prods, _ = res.RowsAffected()
		return nil
	})
	return prods, err
}

// CreateProduct creates a product after checking the parent chain inside one
// transaction: the subcategory must belong to the given category
// (ConsistencyViolation otherwise) and both parents must be active
// (PreconditionFailed otherwise). Parent rows are locked category-first.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkProductParents(ctx, tx, p.CategoryID, p.SubcategoryID); err != nil {
			return err
		}

		query := `
			INSERT INTO products (name, description, price, stock, image, category_id, subcategory_id, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at`

		return tx.GetContext(ctx, p, query,
			p.Name, p.Description, p.Price, p.Stock, p.Image, p.CategoryID, p.SubcategoryID, p.Active)
	})
}

// checkProductParents validates the category/subcategory chain for a product
// write. Locks the category then the subcategory, matching the cascade's
// lock order.
func checkProductParents(ctx context.Context, tx *sqlx.Tx, categoryID, subcategoryID int64) error {
	var categoryActive bool
	err := tx.GetContext(ctx, &categoryActive,
		"SELECT active FROM categories WHERE id = $1 FOR UPDATE", categoryID)
	if err == sql.ErrNoRows {
		return errs.NotFound("category", categoryID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock category: %w", err)
	}

	var sub struct {
		CategoryID int64 `db:"category_id"`
		Active     bool  `db:"active"`
	}
	err = tx.GetContext(ctx, &sub,
		"SELECT category_id, active FROM subcategories WHERE id = $1 FOR UPDATE", subcategoryID)
	if err == sql.ErrNoRows {
		return errs.NotFound("subcategory", subcategoryID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock subcategory: %w", err)
	}

	if sub.CategoryID != categoryID {
		return errs.Entity(errs.KindConsistencyViolation, "subcategory", subcategoryID,
			fmt.Sprintf("subcategory belongs to category %d, not %d", sub.CategoryID, categoryID))
	}
	if !categoryActive {
		return errs.Entity(errs.KindPreconditionFailed, "category", categoryID,
			"cannot create a product under an inactive category")
	}
	if !sub.Active {
		return errs.Entity(errs.KindPreconditionFailed, "subcategory", subcategoryID,
			"cannot create a product under an inactive subcategory")
	}
	return nil
}

// UpdateProduct updates product fields other than stock and active. When the
// parent chain changes it is re-validated under the same locks as creation.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current struct {
			CategoryID    int64 `db:"category_id"`
			SubcategoryID int64 `db:"subcategory_id"`
		}
		err := tx.GetContext(ctx, &current,
			"SELECT category_id, subcategory_id FROM products WHERE id = $1 FOR UPDATE", p.ID)
		if err == sql.ErrNoRows {
			return errs.NotFound("product", p.ID)
		}
		if err != nil {
			return err
		}

		if current.CategoryID != p.CategoryID || current.SubcategoryID != p.SubcategoryID {
			if err := checkProductParents(ctx, tx, p.CategoryID, p.SubcategoryID); err != nil {
				return err
			}
		}

		query := `
			UPDATE products
			SET name = $1, description = $2, price = $3, image = $4,
			    category_id = $5, subcategory_id = $6, updated_at = NOW()
			WHERE id = $7
			RETURNING updated_at`

		return tx.GetContext(ctx, &p.UpdatedAt, query,
			p.Name, p.Description, p.Price, p.Image, p.CategoryID, p.SubcategoryID, p.ID)
	})
}

// SetProductActive flips a product's active flag. Never cascades anywhere.
func (s *Store) SetProductActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET active = $1, updated_at = NOW() WHERE id = $2", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("product", id)
	}
	return nil
}

// DeleteProduct removes a product row
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("product", id)
	}
	return nil
}

// CountSubcategories counts subcategories under a category
func (s *Store) CountSubcategories(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM subcategories WHERE category_id = $1", categoryID)
	return n, err
}

// CountProductsInCategory counts products under a category
func (s *Store) CountProductsInCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM products WHERE category_id = $1", categoryID)
	return n, err
}

// CountProductsInSubcategory counts products under a subcategory
func (s *Store) CountProductsInSubcategory(ctx context.Context, subcategoryID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM products WHERE subcategory_id = $1", subcategoryID)
	return n, err
}

// CountOrderLinesForProduct counts order lines referencing a product
func (s *Store) CountOrderLinesForProduct(ctx context.Context, productID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM order_lines WHERE product_id = $1", productID)
	return n, err
}

// GetCategoryStats aggregates descendant counts and inventory totals for a
// category.
func (s *Store) GetCategoryStats(ctx context.Context, categoryID int64) (*models.CategoryStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM subcategories WHERE category_id = $1) AS total_subcategories,
			(SELECT COUNT(*) FROM subcategories WHERE category_id = $1 AND active) AS active_subcategories,
			COUNT(p.id) AS total_products,
			COUNT(p.id) FILTER (WHERE p.active) AS active_products,
			COALESCE(SUM(p.stock), 0) AS total_stock,
			COALESCE(SUM(p.price * p.stock), 0) AS inventory_value
		FROM products p
		WHERE p.category_id = $1`

	var stats models.CategoryStats
	if err := s.db.GetContext(ctx, &stats, query, categoryID); err != nil {
		return nil, err
	}
	return &stats, nil
}
