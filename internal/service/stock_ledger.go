package service

import (
	"context"

	"shop-service/internal/errs"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// StockLedger tracks available quantity per product. Reserve and Release are
// the only paths that move stock during the order lifecycle; both serialize
// through row-level locks so concurrent reservations can never oversell.
type StockLedger struct {
	store  *store.Store
	cache  ProductCache
	logger *zap.Logger
}

// NewStockLedger creates a new stock ledger
func NewStockLedger(st *store.Store, cache ProductCache) *StockLedger {
	return &StockLedger{
		store:  st,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// HasStock reports whether at least quantity units are available
func (l *StockLedger) HasStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	stock, err := l.store.GetStock(ctx, productID)
	if err != nil {
		return false, err
	}
	return stock >= quantity, nil
}

// Reserve decrements stock by quantity and returns the new level. Fails with
// InsufficientStock when quantity exceeds what is available.
func (l *StockLedger) Reserve(ctx context.Context, productID int64, quantity int) (int, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Reserve")
	defer span.End()

	if quantity < 1 {
		return 0, errs.New(errs.KindValidation, "quantity must be at least 1")
	}

	newStock, err := l.store.ReserveStock(ctx, productID, quantity)
	if err != nil {
		if errs.IsKind(err, errs.KindInsufficientStock) {
			util.StockReservationsFailed.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.StockReservationsFailed.WithLabelValues("error").Inc()
		}
		return 0, err
	}

	l.invalidate(ctx, productID)
	l.logger.Debug("Stock reserved",
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("new_stock", newStock))
	return newStock, nil
}

// Release increments stock by quantity and returns the new level. Used on
// order cancellation; there is no upper bound.
func (l *StockLedger) Release(ctx context.Context, productID int64, quantity int) (int, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Release")
	defer span.End()

	if quantity < 1 {
		return 0, errs.New(errs.KindValidation, "quantity must be at least 1")
	}

	newStock, err := l.store.ReleaseStock(ctx, productID, quantity)
	if err != nil {
		return 0, err
	}

	l.invalidate(ctx, productID)
	return newStock, nil
}

// SetStock overwrites a product's stock level (admin operation)
func (l *StockLedger) SetStock(ctx context.Context, productID int64, stock int) error {
	if stock < 0 {
		return errs.New(errs.KindValidation, "stock cannot be negative")
	}
	if err := l.store.SetProductStock(ctx, productID, stock); err != nil {
		return err
	}
	l.invalidate(ctx, productID)
	return nil
}

// Adjust applies a relative stock change through Reserve/Release so a
// negative delta can never drive stock below zero.
func (l *StockLedger) Adjust(ctx context.Context, productID int64, delta int) (int, error) {
	switch {
	case delta > 0:
		return l.Release(ctx, productID, delta)
	case delta < 0:
		return l.Reserve(ctx, productID, -delta)
	default:
		return l.store.GetStock(ctx, productID)
	}
}

func (l *StockLedger) invalidate(ctx context.Context, productID int64) {
	if err := l.cache.InvalidateProduct(ctx, productID); err != nil {
		l.logger.Warn("Failed to invalidate product cache",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}
