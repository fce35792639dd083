package service

import (
	"context"
	"time"

	"shop-service/internal/errs"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// orderTransitions is the full state machine: pending → paid → shipped →
// delivered, with cancellation allowed from pending and paid only.
// delivered and cancelled are terminal.
var orderTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:      {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {models.OrderStatusDelivered},
	models.OrderStatusDelivered: {},
	models.OrderStatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transitionGuard builds the check run under the order row lock
func transitionGuard(to string) func(current string) error {
	return func(current string) error {
		if !CanTransition(current, to) {
			return errs.Newf(errs.KindInvalidTransition,
				"cannot transition order from %s to %s", current, to)
		}
		return nil
	}
}

// OrderService governs order status transitions and their side effects.
// Orders are immutable apart from status and the status timestamps, and they
// are never deleted — cancellation is the only retraction mechanism.
type OrderService struct {
	store     *store.Store
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(st *store.Store, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Get retrieves an order with its lines
func (s *OrderService) Get(ctx context.Context, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, lines, nil
}

// GetForUser retrieves an order owned by userID. Orders belonging to someone
// else report not found rather than leaking their existence.
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, lines, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.UserID != userID {
		return nil, nil, errs.NotFound("order", orderID)
	}
	return order, lines, nil
}

// ListForUser retrieves a user's orders
func (s *OrderService) ListForUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

// List retrieves orders, optionally filtered by status (admin)
func (s *OrderService) List(ctx context.Context, status string) ([]models.Order, error) {
	if status != "" && !validOrderStatus(status) {
		return nil, errs.Newf(errs.KindValidation, "unknown order status %q", status)
	}
	return s.store.GetOrders(ctx, status)
}

func validOrderStatus(status string) bool {
	_, ok := orderTransitions[status]
	return ok
}

// MarkPaid moves a pending order to paid, stamping paid_at once
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkPaid")
	defer span.End()

	order, err := s.store.AdvanceOrderStatus(ctx, orderID,
		models.OrderStatusPaid, store.OrderTsPaid, transitionGuard(models.OrderStatusPaid))
	if err != nil {
		return nil, err
	}

	util.OrdersPaidTotal.Inc()
	s.logger.Info("Order paid", zap.Int64("order_id", orderID))

	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to load order lines for event", zap.Error(err))
		lines = nil
	}

	event := &models.OrderPaidEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPaid,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Lines:   toLineData(lines),
	}
	if err := s.publisher.PublishOrderPaid(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}
	return order, nil
}

// MarkShipped moves a paid order to shipped, stamping shipped_at once
func (s *OrderService) MarkShipped(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkShipped")
	defer span.End()

	order, err := s.store.AdvanceOrderStatus(ctx, orderID,
		models.OrderStatusShipped, store.OrderTsShipped, transitionGuard(models.OrderStatusShipped))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order shipped", zap.Int64("order_id", orderID))

	event := &models.OrderShippedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderShipped,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
	}
	if err := s.publisher.PublishOrderShipped(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderShipped event", zap.Error(err))
	}
	return order, nil
}

// MarkDelivered moves a shipped order to delivered, stamping delivered_at
// once. Delivered is terminal.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkDelivered")
	defer span.End()

	order, err := s.store.AdvanceOrderStatus(ctx, orderID,
		models.OrderStatusDelivered, store.OrderTsDelivered, transitionGuard(models.OrderStatusDelivered))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order delivered", zap.Int64("order_id", orderID))

	event := &models.OrderDeliveredEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderDelivered,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
	}
	if err := s.publisher.PublishOrderDelivered(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderDelivered event", zap.Error(err))
	}
	return order, nil
}

// Cancel cancels a pending or paid order, restoring the stock of every order
// line in the same transaction. Cancelled is terminal: a second cancel is
// rejected as an invalid transition.
func (s *OrderService) Cancel(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	order, lines, err := s.store.CancelOrder(ctx, orderID, transitionGuard(models.OrderStatusCancelled))
	if err != nil {
		return nil, err
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int("lines_restored", len(lines)))

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
		Lines:   toLineData(lines),
	}
	if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}
	return order, nil
}

// CancelForUser cancels an order after verifying ownership
func (s *OrderService) CancelForUser(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, errs.NotFound("order", orderID)
	}
	return s.Cancel(ctx, orderID)
}

// Delete always fails: orders are part of the permanent record. Cancellation
// is the only retraction mechanism.
func (s *OrderService) Delete(ctx context.Context, orderID int64) error {
	return errs.Entity(errs.KindOperationNotAllowed, "order", orderID,
		"orders cannot be deleted; cancel the order instead")
}
