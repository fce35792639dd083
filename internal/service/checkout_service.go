package service

import (
	"context"
	"fmt"
	"time"

	"shop-service/internal/errs"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutService converts a user's cart into an immutable order snapshot.
// The conversion is all-or-nothing: either an order with all its lines exists
// and the cart is empty, or nothing changed.
type CheckoutService struct {
	store     *store.Store
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(st *store.Store, publisher EventPublisher) *CheckoutService {
	return &CheckoutService{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ShippingInfo carries the delivery fields captured at checkout
type ShippingInfo struct {
	Address string  `json:"shipping_address" binding:"required"`
	Phone   string  `json:"phone" binding:"required"`
	Notes   *string `json:"notes"`
}

// Checkout converts the user's cart into a pending order. Every line is
// priced at its cart snapshot, stock is reserved per line, and the cart is
// emptied — all inside one transaction. A cart line whose product is gone,
// inactive, or understocked aborts the whole conversion and names the
// blocking product.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64, info ShippingInfo) (*models.Order, []models.OrderLine, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	cartLines, err := s.store.GetCartLines(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(cartLines) == 0 {
		util.CheckoutFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, nil, errs.New(errs.KindEmptyCart, "cart is empty")
	}

	if err := s.validateCartLines(ctx, cartLines); err != nil {
		util.CheckoutFailedTotal.WithLabelValues("blocked_line").Inc()
		return nil, nil, err
	}

	orderLines := buildOrderLines(cartLines)
	order := &models.Order{
		UserID:          userID,
		Total:           orderTotal(orderLines),
		Status:          models.OrderStatusPending,
		ShippingAddress: info.Address,
		Phone:           info.Phone,
		Notes:           info.Notes,
	}

	if err := s.store.CreateOrderFromCart(ctx, order, orderLines); err != nil {
		util.CheckoutFailedTotal.WithLabelValues("conversion_failed").Inc()
		return nil, nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created from cart",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("total", order.Total.String()),
		zap.Int("lines", len(orderLines)))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  userID,
		Total:   order.Total,
		Lines:   toLineData(orderLines),
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	lines, err := s.store.GetOrderLines(ctx, order.ID)
	if err != nil {
		// The order committed; fall back to the lines we just built.
		lines = orderLines
	}
	return order, lines, nil
}

// validateCartLines pre-checks every line so the caller learns which product
// blocks the conversion. The same checks run again under row locks inside the
// conversion transaction.
func (s *CheckoutService) validateCartLines(ctx context.Context, cartLines []models.CartLine) error {
	ids := make([]int64, len(cartLines))
	for i, l := range cartLines {
		ids[i] = l.ProductID
	}
	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, l := range cartLines {
		p, ok := byID[l.ProductID]
		if !ok {
			return errs.Entity(errs.KindOrderCreationFailed, "product", l.ProductID,
				"product no longer exists")
		}
		if !p.Active {
			return errs.Entity(errs.KindOrderCreationFailed, "product", l.ProductID,
				"product is no longer available")
		}
		if l.Quantity > p.Stock {
			return errs.Entity(errs.KindOrderCreationFailed, "product", l.ProductID,
				fmt.Sprintf("insufficient stock: available=%d, requested=%d", p.Stock, l.Quantity))
		}
	}
	return nil
}

// buildOrderLines copies cart lines into order lines at the frozen snapshot
// price, with stored subtotals.
func buildOrderLines(cartLines []models.CartLine) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(cartLines))
	for _, cl := range cartLines {
		lines = append(lines, models.OrderLine{
			ProductID: cl.ProductID,
			Quantity:  cl.Quantity,
			UnitPrice: cl.UnitPrice,
			Subtotal:  cl.Subtotal(),
		})
	}
	return lines
}

// orderTotal sums line subtotals. The total is always recomputed here, never
// taken from client input.
func orderTotal(lines []models.OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

func toLineData(lines []models.OrderLine) []models.OrderLineData {
	data := make([]models.OrderLineData, 0, len(lines))
	for _, l := range lines {
		data = append(data, models.OrderLineData{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return data
}
