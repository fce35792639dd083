package service

import (
	"context"

	"shop-service/internal/models"
)

// EventPublisher is the slice of the broker the services need. Satisfied by
// broker.EventPublisher; tests plug in stubs.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
	PublishOrderShipped(ctx context.Context, event *models.OrderShippedEvent) error
	PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishCategoryDeactivated(ctx context.Context, event *models.CategoryDeactivatedEvent) error
	PublishSubcategoryDeactivated(ctx context.Context, event *models.SubcategoryDeactivatedEvent) error
}

// ProductCache is a read-through cache for product rows. Satisfied by
// redisclient.Client.
type ProductCache interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
	InvalidateProduct(ctx context.Context, ids ...int64) error
	InvalidateAllProducts(ctx context.Context) error
}

// ImageStore removes stored product images. Satisfied by imagestore.Store.
type ImageStore interface {
	DeleteImage(ctx context.Context, filename string) bool
}
