package service

import (
	"context"
	"time"

	"shop-service/internal/errs"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService owns the category/subcategory/product hierarchy, including
// the deactivation cascade. Deactivating a parent deactivates everything
// under it; activating a parent never touches children — operators re-enable
// each level deliberately.
type CatalogService struct {
	store     *store.Store
	cache     ProductCache
	images    ImageStore
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(st *store.Store, cache ProductCache, images ImageStore, publisher EventPublisher) *CatalogService {
	return &CatalogService{
		store:     st,
		cache:     cache,
		images:    images,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CategoryInput carries category create/update fields
type CategoryInput struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// SubcategoryInput carries subcategory create/update fields
type SubcategoryInput struct {
	CategoryID  int64   `json:"category_id" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// ProductInput carries product create/update fields
type ProductInput struct {
	Name          string          `json:"name" binding:"required"`
	Description   *string         `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock" binding:"gte=0"`
	Image         *string         `json:"image"`
	CategoryID    int64           `json:"category_id" binding:"required"`
	SubcategoryID int64           `json:"subcategory_id" binding:"required"`
}

// CascadeResult reports how many descendants a deactivation touched
type CascadeResult struct {
	Subcategories int64 `json:"subcategories"`
	Products      int64 `json:"products"`
}

// CreateCategory creates an active category
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	c := &models.Category{Name: in.Name, Description: in.Description, Active: true}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Category created", zap.Int64("category_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// UpdateCategory updates name and description
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*models.Category, error) {
	c, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.Description = in.Description
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCategory retrieves a category by id
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	return s.store.GetCategoryByID(ctx, id)
}

// ListCategories retrieves categories
func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	return s.store.GetCategories(ctx, activeOnly)
}

// SetCategoryActive flips a category's active state. Deactivation cascades to
// all subcategories and products atomically; activation is local-only.
func (s *CatalogService) SetCategoryActive(ctx context.Context, id int64, active bool) (*CascadeResult, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.SetCategoryActive")
	defer span.End()

	subs, prods, err := s.store.SetCategoryActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	if !active {
		util.CascadeRunsTotal.WithLabelValues("category").Inc()
		s.invalidateAll(ctx)

		event := &models.CategoryDeactivatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCategoryDeactivated,
				Timestamp: time.Now(),
			},
			CategoryID:           id,
			SubcategoriesTouched: subs,
			ProductsTouched:      prods,
		}
		if err := s.publisher.PublishCategoryDeactivated(ctx, event); err != nil {
			s.logger.Error("Failed to publish CategoryDeactivated event", zap.Error(err))
		}
	}

	s.logger.Info("Category active state changed",
		zap.Int64("category_id", id),
		zap.Bool("active", active),
		zap.Int64("subcategories_touched", subs),
		zap.Int64("products_touched", prods))
	return &CascadeResult{Subcategories: subs, Products: prods}, nil
}

// DeleteCategory removes a category that has no subcategories and no
// products. Anything else must be deactivated instead.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.store.GetCategoryByID(ctx, id); err != nil {
		return err
	}
	subs, err := s.store.CountSubcategories(ctx, id)
	if err != nil {
		return err
	}
	if subs > 0 {
		return errs.Entity(errs.KindOperationNotAllowed, "category", id,
			"category has subcategories; deactivate it instead of deleting")
	}
	prods, err := s.store.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if prods > 0 {
		return errs.Entity(errs.KindOperationNotAllowed, "category", id,
			"category has products; deactivate it instead of deleting")
	}
	return s.store.DeleteCategory(ctx, id)
}

// GetCategoryStats aggregates descendant and inventory figures
func (s *CatalogService) GetCategoryStats(ctx context.Context, id int64) (*models.CategoryStats, error) {
	if _, err := s.store.GetCategoryByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetCategoryStats(ctx, id)
}

// CreateSubcategory creates a subcategory under an active category
func (s *CatalogService) CreateSubcategory(ctx context.Context, in SubcategoryInput) (*models.Subcategory, error) {
	sub := &models.Subcategory{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Active:      true,
	}
	if err := s.store.CreateSubcategory(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info("Subcategory created",
		zap.Int64("subcategory_id", sub.ID),
		zap.Int64("category_id", sub.CategoryID))
	return sub, nil
}

// UpdateSubcategory updates name and description
func (s *CatalogService) UpdateSubcategory(ctx context.Context, id int64, in SubcategoryInput) (*models.Subcategory, error) {
	sub, err := s.store.GetSubcategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Name = in.Name
	sub.Description = in.Description
	if err := s.store.UpdateSubcategory(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubcategory retrieves a subcategory by id
func (s *CatalogService) GetSubcategory(ctx context.Context, id int64) (*models.Subcategory, error) {
	return s.store.GetSubcategoryByID(ctx, id)
}

// ListSubcategories retrieves subcategories, optionally scoped to a category
func (s *CatalogService) ListSubcategories(ctx context.Context, categoryID *int64, activeOnly bool) ([]models.Subcategory, error) {
	return s.store.GetSubcategories(ctx, categoryID, activeOnly)
}

// SetSubcategoryActive flips a subcategory's active state; deactivation
// cascades to its products.
func (s *CatalogService) SetSubcategoryActive(ctx context.Context, id int64, active bool) (*CascadeResult, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.SetSubcategoryActive")
	defer span.End()

	prods, err := s.store.SetSubcategoryActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	if !active {
		util.CascadeRunsTotal.WithLabelValues("subcategory").Inc()
		s.invalidateAll(ctx)

		event := &models.SubcategoryDeactivatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSubcategoryDeactivated,
				Timestamp: time.Now(),
			},
			SubcategoryID:   id,
			ProductsTouched: prods,
		}
		if err := s.publisher.PublishSubcategoryDeactivated(ctx, event); err != nil {
			s.logger.Error("Failed to publish SubcategoryDeactivated event", zap.Error(err))
		}
	}

	return &CascadeResult{Products: prods}, nil
}

// DeleteSubcategory removes a subcategory with no products
func (s *CatalogService) DeleteSubcategory(ctx context.Context, id int64) error {
	if _, err := s.store.GetSubcategoryByID(ctx, id); err != nil {
		return err
	}
	prods, err := s.store.CountProductsInSubcategory(ctx, id)
	if err != nil {
		return err
	}
	if prods > 0 {
		return errs.Entity(errs.KindOperationNotAllowed, "subcategory", id,
			"subcategory has products; deactivate it instead of deleting")
	}
	return s.store.DeleteSubcategory(ctx, id)
}

// CreateProduct creates a product under an active subcategory whose category
// matches the given category id
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Price.IsNegative() {
		return nil, errs.New(errs.KindValidation, "price cannot be negative")
	}

	p := &models.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Stock:         in.Stock,
		Image:         in.Image,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		Active:        true,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.Int64("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdateProduct updates product fields. Stock changes go through the ledger,
// active changes through SetProductActive.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	if in.Price.IsNegative() {
		return nil, errs.New(errs.KindValidation, "price cannot be negative")
	}

	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Image = in.Image
	p.CategoryID = in.CategoryID
	p.SubcategoryID = in.SubcategoryID

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateProduct(ctx, id)
	return p, nil
}

// GetProduct retrieves a product, serving cached copies when possible
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if p, err := s.cache.GetProduct(ctx, id); err != nil {
		s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	} else if p != nil {
		return p, nil
	}

	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetProduct(ctx, p); err != nil {
		s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return p, nil
}

// ListProducts retrieves products matching the filter
func (s *CatalogService) ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, error) {
	return s.store.GetProducts(ctx, f)
}

// SetProductActive flips a single product's active flag; no cascade in either
// direction.
func (s *CatalogService) SetProductActive(ctx context.Context, id int64, active bool) error {
	if err := s.store.SetProductActive(ctx, id, active); err != nil {
		return err
	}
	s.invalidateProduct(ctx, id)
	return nil
}

// DeleteProduct removes a product that appears on no order line, deleting its
// stored image afterwards. Products with order history must be deactivated.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return err
	}

	refs, err := s.store.CountOrderLinesForProduct(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return errs.Entity(errs.KindOperationNotAllowed, "product", id,
			"product appears in orders; deactivate it instead of deleting")
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateProduct(ctx, id)

	if p.Image != nil && *p.Image != "" {
		if !s.images.DeleteImage(ctx, *p.Image) {
			s.logger.Warn("Failed to delete product image",
				zap.Int64("product_id", id),
				zap.String("image", *p.Image))
		}
	}
	return nil
}

func (s *CatalogService) invalidateProduct(ctx context.Context, id int64) {
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Int64("product_id", id), zap.Error(err))
	}
}

func (s *CatalogService) invalidateAll(ctx context.Context) {
	if err := s.cache.InvalidateAllProducts(ctx); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}
