package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shop-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	productKeyPrefix = "product:"
	bestSellersKey   = "stats:best_sellers"

	productTTL = 10 * time.Minute
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func productKey(id int64) string {
	return fmt.Sprintf("%s%d", productKeyPrefix, id)
}

// GetProduct returns a cached product, or nil on a miss
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		// Stale or corrupt entry; treat as a miss and drop it.
		c.rdb.Del(ctx, productKey(id))
		return nil, nil
	}
	return &p, nil
}

// SetProduct caches a product with a TTL
func (c *Client) SetProduct(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productKey(p.ID), data, productTTL).Err()
}

// InvalidateProduct drops cached entries for the given products
func (c *Client) InvalidateProduct(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateAllProducts drops every cached product. Used after cascades,
// which can flip the active flag on an unbounded set of products.
func (c *Client) InvalidateAllProducts(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, productKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// RecordSale adds sold quantities to the best-sellers ranking
func (c *Client) RecordSale(ctx context.Context, productID int64, quantity int) error {
	return c.rdb.ZIncrBy(ctx, bestSellersKey, float64(quantity),
		fmt.Sprintf("%d", productID)).Err()
}

// BestSeller is one entry of the sales ranking
type BestSeller struct {
	ProductID int64 `json:"product_id"`
	Sold      int64 `json:"sold"`
}

// TopSellers returns the highest-selling products, best first
func (c *Client) TopSellers(ctx context.Context, limit int64) ([]BestSeller, error) {
	entries, err := c.rdb.ZRevRangeWithScores(ctx, bestSellersKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	sellers := make([]BestSeller, 0, len(entries))
	for _, e := range entries {
		var id int64
		if _, err := fmt.Sscanf(e.Member.(string), "%d", &id); err != nil {
			continue
		}
		sellers = append(sellers, BestSeller{ProductID: id, Sold: int64(e.Score)})
	}
	return sellers, nil
}
