package service

import (
	"context"
	"os"
	"testing"

	"shop-service/internal/errs"
	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests, gated like the store tests: they need a Postgres with
// the migrations applied and TEST_DATABASE_URL set.
func testCartService(t *testing.T) (*CartService, *store.Store) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - set TEST_DATABASE_URL to run")
	}

	st, err := store.NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewCartService(st), st
}

func seedCartProduct(t *testing.T, st *store.Store, stock int, price decimal.Decimal) *models.Product {
	t.Helper()
	ctx := context.Background()
	tag := uuid.New().String()[:8]

	cat := &models.Category{Name: "cart-cat-" + tag, Active: true}
	require.NoError(t, st.CreateCategory(ctx, cat))

	sub := &models.Subcategory{CategoryID: cat.ID, Name: "cart-sub-" + tag, Active: true}
	require.NoError(t, st.CreateSubcategory(ctx, sub))

	p := &models.Product{
		Name:          "cart-prod-" + tag,
		Price:         price,
		Stock:         stock,
		CategoryID:    cat.ID,
		SubcategoryID: sub.ID,
		Active:        true,
	}
	require.NoError(t, st.CreateProduct(ctx, p))
	return p
}

func seedCartUser(t *testing.T, st *store.Store) int64 {
	t.Helper()
	tag := uuid.New().String()[:8]
	var id int64
	err := st.GetDB().QueryRowxContext(context.Background(),
		`INSERT INTO users (email, name, role) VALUES ($1, $2, 'customer') RETURNING id`,
		"cart-"+tag+"@test.local", "cart-"+tag).Scan(&id)
	require.NoError(t, err)
	return id
}

func setProductPrice(t *testing.T, st *store.Store, productID int64, price decimal.Decimal) {
	t.Helper()
	_, err := st.GetDB().ExecContext(context.Background(),
		"UPDATE products SET price = $1 WHERE id = $2", price, productID)
	require.NoError(t, err)
}

func TestAddItemFreezesPrice(t *testing.T) {
	svc, st := testCartService(t)
	ctx := context.Background()

	p := seedCartProduct(t, st, 10, decimal.NewFromFloat(12.50))
	userID := seedCartUser(t, st)

	line, err := svc.AddItem(ctx, userID, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromFloat(12.50)))

	setProductPrice(t, st, p.ID, decimal.NewFromFloat(99.99))

	cart, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(12.50)))
	assert.True(t, cart.Lines[0].CurrentPrice.Equal(decimal.NewFromFloat(99.99)))
	assert.True(t, cart.Total.Equal(decimal.NewFromFloat(25.00)))
}

func TestAddItemBumpsQuantityKeepsSnapshot(t *testing.T) {
	svc, st := testCartService(t)
	ctx := context.Background()

	p := seedCartProduct(t, st, 10, decimal.NewFromFloat(5.00))
	userID := seedCartUser(t, st)

	_, err := svc.AddItem(ctx, userID, p.ID, 2)
	require.NoError(t, err)

	setProductPrice(t, st, p.ID, decimal.NewFromFloat(7.00))

	line, err := svc.AddItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromFloat(5.00)),
		"snapshot price must survive a duplicate add, got %s", line.UnitPrice)
}

func TestAddItemInactiveProduct(t *testing.T) {
	svc, st := testCartService(t)
	ctx := context.Background()

	p := seedCartProduct(t, st, 10, decimal.NewFromInt(1))
	userID := seedCartUser(t, st)

	require.NoError(t, st.SetProductActive(ctx, p.ID, false))

	_, err := svc.AddItem(ctx, userID, p.ID, 1)
	assert.True(t, errs.IsKind(err, errs.KindPreconditionFailed), "got %v", err)
}

func TestAddItemBeyondStock(t *testing.T) {
	svc, st := testCartService(t)
	ctx := context.Background()

	p := seedCartProduct(t, st, 5, decimal.NewFromInt(1))
	userID := seedCartUser(t, st)

	_, err := svc.AddItem(ctx, userID, p.ID, 6)
	assert.True(t, errs.IsKind(err, errs.KindInsufficientStock), "got %v", err)

	// The combined quantity counts, not just the increment.
	_, err = svc.AddItem(ctx, userID, p.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, p.ID, 3)
	assert.True(t, errs.IsKind(err, errs.KindInsufficientStock), "got %v", err)
}

func TestUpdateItemStockGuard(t *testing.T) {
	svc, st := testCartService(t)
	ctx := context.Background()

	p := seedCartProduct(t, st, 5, decimal.NewFromInt(1))
	userID := seedCartUser(t, st)

	_, err := svc.AddItem(ctx, userID, p.ID, 2)
	require.NoError(t, err)

	// Requesting exactly the available stock is allowed.
	line, err := svc.UpdateItem(ctx, userID, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	// One past it is not.
	_, err = svc.UpdateItem(ctx, userID, p.ID, 6)
	assert.True(t, errs.IsKind(err, errs.KindInsufficientStock), "got %v", err)

	// Lowering the quantity always works.
	line, err = svc.UpdateItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
}

func TestUpdateItemMissingLine(t *testing.T) {
	svc, st := testCartService(t)
	ctx := context.Background()

	p := seedCartProduct(t, st, 5, decimal.NewFromInt(1))
	userID := seedCartUser(t, st)

	_, err := svc.UpdateItem(ctx, userID, p.ID, 1)
	assert.True(t, errs.IsKind(err, errs.KindNotFound), "got %v", err)
}
