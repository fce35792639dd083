package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/redisclient"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatsWorker consumes order events and maintains the best-sellers ranking
// in Redis. Event ids are recorded in processed_events so replays and
// consumer-group rebalances cannot double-count a sale.
type StatsWorker struct {
	consumer *broker.Consumer
	store    *store.Store
	redis    *redisclient.Client
	logger   *zap.Logger
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(consumer *broker.Consumer, st *store.Store, redis *redisclient.Client) *StatsWorker {
	return &StatsWorker{
		consumer: consumer,
		store:    st,
		redis:    redis,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *StatsWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stats worker")
	return w.consumer.Run(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *StatsWorker) Stop() error {
	w.logger.Info("Stopping stats worker")
	return w.consumer.Close()
}

func (w *StatsWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	if base.EventType != models.EventTypeOrderPaid {
		return nil
	}

	processed, err := w.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event idempotency: %w", err)
	}
	if processed {
		w.logger.Debug("Skipping already-processed event", zap.String("event_id", base.EventID))
		return nil
	}

	var event models.OrderPaidEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal OrderPaid event: %w", err)
	}

	for _, line := range event.Lines {
		if err := w.redis.RecordSale(ctx, line.ProductID, line.Quantity); err != nil {
			return fmt.Errorf("failed to record sale for product %d: %w", line.ProductID, err)
		}
	}

	if err := w.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	w.logger.Info("Recorded sales from order",
		zap.Int64("order_id", event.OrderID),
		zap.Int("lines", len(event.Lines)))
	return nil
}
