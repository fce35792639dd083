package service

import (
	"context"
	"fmt"

	"shop-service/internal/errs"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService manages a user's cart lines. The unit price is frozen when a
// line is first created; later product price changes do not touch it.
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(st *store.Store) *CartService {
	return &CartService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// CartLineView is a cart line joined with its product for display
type CartLineView struct {
	models.CartLine
	ProductName   string          `json:"product_name"`
	ProductActive bool            `json:"product_active"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	LineSubtotal  decimal.Decimal `json:"subtotal"`
}

// CartView is the whole cart with its computed total
type CartView struct {
	Lines []CartLineView  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// GetCart returns the user's cart with per-line subtotals and the cart total,
// both computed from the frozen snapshot prices.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	lines, err := s.store.GetCartLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &CartView{Lines: make([]CartLineView, 0, len(lines)), Total: decimal.Zero}
	if len(lines) == 0 {
		return view, nil
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, l := range lines {
		lv := CartLineView{CartLine: l, LineSubtotal: l.Subtotal()}
		if p, ok := byID[l.ProductID]; ok {
			lv.ProductName = p.Name
			lv.ProductActive = p.Active
			lv.CurrentPrice = p.Price
		}
		view.Lines = append(view.Lines, lv)
		view.Total = view.Total.Add(lv.LineSubtotal)
	}
	return view, nil
}

// AddItem puts quantity units of a product into the cart. Adding a product
// already in the cart bumps the existing line's quantity and keeps its
// original price snapshot. Inactive products and quantities beyond available
// stock are rejected.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return nil, errs.New(errs.KindValidation, "quantity must be at least 1")
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, errs.Entity(errs.KindPreconditionFailed, "product", productID,
			"inactive products cannot be added to the cart")
	}

	existing, err := s.store.GetCartLine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	wanted := quantity
	if existing != nil {
		wanted += existing.Quantity
	}
	if wanted > product.Stock {
		return nil, errs.Entity(errs.KindInsufficientStock, "product", productID,
			fmt.Sprintf("insufficient stock: available=%d, requested=%d", product.Stock, wanted))
	}

	if existing != nil {
		if err := s.store.UpdateCartLineQuantity(ctx, existing.ID, wanted); err != nil {
			return nil, err
		}
		existing.Quantity = wanted
		return existing, nil
	}

	line := &models.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.Price,
	}
	if err := s.store.InsertCartLine(ctx, line); err != nil {
		return nil, err
	}
	util.CartItemsAddedTotal.Inc()
	return line, nil
}

// UpdateItem sets the quantity of an existing cart line. The change is
// rejected only when the requested quantity exceeds available stock.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, errs.New(errs.KindValidation, "quantity must be at least 1")
	}

	line, err := s.store.GetCartLine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, errs.NotFound("cart line", productID)
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, errs.Entity(errs.KindInsufficientStock, "product", productID,
			fmt.Sprintf("insufficient stock: available=%d, requested=%d", product.Stock, quantity))
	}

	if err := s.store.UpdateCartLineQuantity(ctx, line.ID, quantity); err != nil {
		return nil, err
	}
	line.Quantity = quantity
	return line, nil
}

// RemoveItem deletes one product from the cart
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	return s.store.DeleteCartLine(ctx, userID, productID)
}

// Clear empties the user's cart
func (s *CartService) Clear(ctx context.Context, userID int64) (int64, error) {
	return s.store.ClearCart(ctx, userID)
}
