package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
)

// ProductCache is a Redis-backed read-through cache for product rows.
// It is strictly best-effort: every cache failure degrades to a database
// read and is logged, never propagated. The checkout engines only depend
// on its invalidation hook; the read side serves GET /api/products/:id.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient opens a Redis client for the product cache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewProductCache creates a ProductCache with the given client and entry TTL.
func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func key(productID uuid.UUID) string {
	return "product:" + productID.String()
}

// Get returns the cached product, or (nil, false) on a miss or any cache error.
func (c *ProductCache) Get(ctx context.Context, productID uuid.UUID) (*model.Product, bool) {
	s, err := c.client.Get(ctx, key(productID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("product_id", productID.String()).Msg("product cache get failed")
		}
		return nil, false
	}

	var product model.Product
	if err := json.Unmarshal([]byte(s), &product); err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).Msg("product cache entry corrupt")
		return nil, false
	}
	return &product, true
}

// Set stores the product under its TTL. Errors are logged and swallowed.
func (c *ProductCache) Set(ctx context.Context, product *model.Product) {
	b, err := json.Marshal(product)
	if err != nil {
		log.Warn().Err(err).Str("product_id", product.ID.String()).Msg("product cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key(product.ID), b, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", product.ID.String()).Msg("product cache set failed")
	}
}

// Invalidate drops the cached entry for a product. Called after every
// committed stock mutation; the caller logs and swallows the error.
func (c *ProductCache) Invalidate(ctx context.Context, productID uuid.UUID) error {
	return c.client.Del(ctx, key(productID)).Err()
}

// Ping reports whether Redis is reachable. Used by the health endpoint.
func (c *ProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Noop is a ProductCache stand-in used when Redis is disabled. Reads always
// miss and invalidation succeeds trivially.
type Noop struct{}

// Get always reports a miss.
func (Noop) Get(ctx context.Context, productID uuid.UUID) (*model.Product, bool) {
	return nil, false
}

// Set does nothing.
func (Noop) Set(ctx context.Context, product *model.Product) {}

// Invalidate does nothing.
func (Noop) Invalidate(ctx context.Context, productID uuid.UUID) error { return nil }

// Ping always reports healthy.
func (Noop) Ping(ctx context.Context) error { return nil }
