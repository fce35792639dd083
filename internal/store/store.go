package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shop-service/internal/errs"
	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside a transaction. The transaction is rolled back on any
// error and committed otherwise; fn's error is returned as-is so typed errors
// survive the boundary.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("product", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID    *int64
	SubcategoryID *int64
	ActiveOnly    bool
	Search        string
}

// GetProducts retrieves products matching the filter
func (s *Store) GetProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	query := "SELECT * FROM products WHERE 1=1"
	args := []interface{}{}

	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if f.SubcategoryID != nil {
		args = append(args, *f.SubcategoryID)
		query += fmt.Sprintf(" AND subcategory_id = $%d", len(args))
	}
	if f.ActiveOnly {
		query += " AND active = true"
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	query += " ORDER BY id"

	var products []models.Product
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}
