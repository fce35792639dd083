package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-service/internal/auth"
	"shop-service/internal/errs"
	"shop-service/internal/models"
	"shop-service/internal/redisclient"
	"shop-service/internal/service"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog   *service.CatalogService
	cart      *service.CartService
	checkout  *service.CheckoutService
	orders    *service.OrderService
	ledger    *service.StockLedger
	redis     *redisclient.Client
	jwtSecret string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	orders *service.OrderService,
	ledger *service.StockLedger,
	redis *redisclient.Client,
	jwtSecret string,
) *Handler {
	return &Handler{
		catalog:   catalog,
		cart:      cart,
		checkout:  checkout,
		orders:    orders,
		ledger:    ledger,
		redis:     redis,
		jwtSecret: jwtSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/categories", h.listCategories)
		v1.GET("/categories/:id", h.getCategory)
		v1.GET("/subcategories", h.listSubcategories)
		v1.GET("/subcategories/:id", h.getSubcategory)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/best-sellers", h.bestSellers)
	}

	authed := v1.Group("")
	authed.Use(auth.Middleware(h.jwtSecret))
	{
		authed.GET("/cart", h.getCart)
		authed.POST("/cart/items", h.addCartItem)
		authed.PUT("/cart/items/:productId", h.updateCartItem)
		authed.DELETE("/cart/items/:productId", h.removeCartItem)
		authed.DELETE("/cart", h.clearCart)

		authed.POST("/orders", h.createOrder)
		authed.GET("/orders", h.listMyOrders)
		authed.GET("/orders/:id", h.getMyOrder)
		authed.POST("/orders/:id/cancel", h.cancelMyOrder)
	}

	admin := v1.Group("/admin")
	admin.Use(auth.Middleware(h.jwtSecret), auth.RequireAdmin())
	{
		admin.POST("/categories", h.createCategory)
		admin.PUT("/categories/:id", h.updateCategory)
		admin.PATCH("/categories/:id/active", h.setCategoryActive)
		admin.DELETE("/categories/:id", h.deleteCategory)
		admin.GET("/categories/:id/stats", h.categoryStats)

		admin.POST("/subcategories", h.createSubcategory)
		admin.PUT("/subcategories/:id", h.updateSubcategory)
		admin.PATCH("/subcategories/:id/active", h.setSubcategoryActive)
		admin.DELETE("/subcategories/:id", h.deleteSubcategory)

		admin.POST("/products", h.createProduct)
		admin.PUT("/products/:id", h.updateProduct)
		admin.PATCH("/products/:id/active", h.setProductActive)
		admin.PUT("/products/:id/stock", h.updateProductStock)
		admin.DELETE("/products/:id", h.deleteProduct)

		admin.GET("/orders", h.listOrders)
		admin.GET("/orders/:id", h.getOrder)
		admin.POST("/orders/:id/pay", h.payOrder)
		admin.POST("/orders/:id/ship", h.shipOrder)
		admin.POST("/orders/:id/deliver", h.deliverOrder)
		admin.POST("/orders/:id/cancel", h.cancelOrder)
		admin.DELETE("/orders/:id", h.deleteOrder)
	}
}

// statusForError maps error kinds to HTTP status codes. The services never
// see HTTP; this is the only place the translation happens.
func statusForError(err error) int {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindValidation, errs.KindEmptyCart:
		return http.StatusBadRequest
	case errs.KindPreconditionFailed, errs.KindConsistencyViolation,
		errs.KindInsufficientStock, errs.KindOrderCreationFailed,
		errs.KindInvalidTransition, errs.KindOperationNotAllowed:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error(), "kind": string(errs.KindOf(err))}
	var e *errs.Error
	if errors.As(err, &e) && e.Entity != "" {
		body["entity"] = e.Entity
		if e.ID != 0 {
			body["entity_id"] = e.ID
		}
	}
	c.JSON(statusForError(err), body)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().Unix()})
}

// --- catalog: public reads ---

func (h *Handler) listCategories(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	categories, err := h.catalog.ListCategories(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) getCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	category, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (h *Handler) listSubcategories(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category_id"})
			return
		}
		categoryID = &id
	}
	subs, err := h.catalog.ListSubcategories(c.Request.Context(), categoryID, c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subcategories": subs})
}

func (h *Handler) getSubcategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.catalog.GetSubcategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subcategory": sub})
}

func (h *Handler) listProducts(c *gin.Context) {
	var filter store.ProductFilter
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category_id"})
			return
		}
		filter.CategoryID = &id
	}
	if raw := c.Query("subcategory_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subcategory_id"})
			return
		}
		filter.SubcategoryID = &id
	}
	filter.ActiveOnly = c.Query("active") == "true"
	filter.Search = c.Query("search")

	products, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *Handler) bestSellers(c *gin.Context) {
	limit := int64(10)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	sellers, err := h.redis.TopSellers(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"best_sellers": sellers})
}

// --- cart ---

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.cart.GetCart(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	line, err := h.cart.AddItem(c.Request.Context(), auth.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"line": line})
}

func (h *Handler) updateCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	line, err := h.cart.UpdateItem(c.Request.Context(), auth.UserID(c), productID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"line": line})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	if err := h.cart.RemoveItem(c.Request.Context(), auth.UserID(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) clearCart(c *gin.Context) {
	removed, err := h.cart.Clear(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// --- orders: customer ---

func (h *Handler) createOrder(c *gin.Context) {
	var info service.ShippingInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	order, lines, err := h.checkout.Checkout(c.Request.Context(), auth.UserID(c), info)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order, "lines": lines})
}

func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.orders.ListForUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getMyOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, lines, err := h.orders.GetForUser(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "lines": lines})
}

func (h *Handler) cancelMyOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.CancelForUser(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// --- admin: catalog ---

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) createCategory(c *gin.Context) {
	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	category, err := h.catalog.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (h *Handler) setCategoryActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	result, err := h.catalog.SetCategoryActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": *req.Active, "affected": result})
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) categoryStats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.catalog.GetCategoryStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) createSubcategory(c *gin.Context) {
	var in service.SubcategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	sub, err := h.catalog.CreateSubcategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subcategory": sub})
}

func (h *Handler) updateSubcategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.SubcategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	sub, err := h.catalog.UpdateSubcategory(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subcategory": sub})
}

func (h *Handler) setSubcategoryActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	result, err := h.catalog.SetSubcategoryActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": *req.Active, "affected": result})
}

func (h *Handler) deleteSubcategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteSubcategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *Handler) setProductActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.catalog.SetProductActive(c.Request.Context(), id, *req.Active); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": *req.Active})
}

type updateStockRequest struct {
	Stock *int `json:"stock"`
	Delta *int `json:"delta"`
}

func (h *Handler) updateProductStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	switch {
	case req.Stock != nil && req.Delta != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide either stock or delta, not both"})
	case req.Stock != nil:
		if err := h.ledger.SetStock(c.Request.Context(), id, *req.Stock); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stock": *req.Stock})
	case req.Delta != nil:
		newStock, err := h.ledger.Adjust(c.Request.Context(), id, *req.Delta)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stock": newStock})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide stock or delta"})
	}
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- admin: orders ---

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, lines, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "lines": lines})
}

func (h *Handler) payOrder(c *gin.Context) {
	h.transitionOrder(c, h.orders.MarkPaid)
}

func (h *Handler) shipOrder(c *gin.Context) {
	h.transitionOrder(c, h.orders.MarkShipped)
}

func (h *Handler) deliverOrder(c *gin.Context) {
	h.transitionOrder(c, h.orders.MarkDelivered)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	h.transitionOrder(c, h.orders.Cancel)
}

func (h *Handler) transitionOrder(c *gin.Context, fn func(ctx context.Context, id int64) (*models.Order, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) deleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	respondError(c, h.orders.Delete(c.Request.Context(), id))
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
