package broker

import (
	"context"
	"fmt"

	"shop-service/internal/models"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderPaid publishes OrderPaid event
func (ep *EventPublisher) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderShipped publishes OrderShipped event
func (ep *EventPublisher) PublishOrderShipped(ctx context.Context, event *models.OrderShippedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderDelivered publishes OrderDelivered event
func (ep *EventPublisher) PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishCategoryDeactivated publishes CategoryDeactivated event
func (ep *EventPublisher) PublishCategoryDeactivated(ctx context.Context, event *models.CategoryDeactivatedEvent) error {
	key := fmt.Sprintf("category-%d", event.CategoryID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSubcategoryDeactivated publishes SubcategoryDeactivated event
func (ep *EventPublisher) PublishSubcategoryDeactivated(ctx context.Context, event *models.SubcategoryDeactivatedEvent) error {
	key := fmt.Sprintf("subcategory-%d", event.SubcategoryID)
	return ep.producer.PublishEvent(ctx, key, event)
}
