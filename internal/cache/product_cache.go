package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"tani/internal/errx"
	"tani/internal/models"

	"github.com/cespare/xxhash/v2"
)

const (
	// SnapshotKey holds the full product collection.
	SnapshotKey = "all-products"

	singlePrefix = "single-product:"
	searchPrefix = "search-products:"
)

// SingleKey is the cache key of one product.
func SingleKey(id string) string {
	return singlePrefix + id
}

// SearchKey derives a stable key from a filter. Filters that marshal identically share a key.
func SearchKey(filter models.ProductFilter) string {
	b, _ := json.Marshal(filter)
	return searchPrefix + strconv.FormatUint(xxhash.Sum64(b), 16)
}

// ProductCache applies the product key scheme over a Store. Every operation is best effort:
// failures come back as errx.ErrCache, and an operation that outlives the timeout counts as a
// miss or a no-op.
type ProductCache struct {
	store   Store
	codec   Codec
	timeout time.Duration
}

// NewProductCache builds a ProductCache. A nil codec means JSON.
func NewProductCache(store Store, codec Codec, timeout time.Duration) *ProductCache {
	if codec == nil {
		codec = JSONCodec()
	}
	return &ProductCache{store: store, codec: codec, timeout: timeout}
}

// GetSingle returns the cached product for id.
func (c *ProductCache) GetSingle(ctx context.Context, id string) (*models.Product, bool, error) {
	var p models.Product
	ok, err := c.get(ctx, SingleKey(id), &p)
	if !ok {
		return nil, false, err
	}
	return &p, true, nil
}

// SetSingle caches p under id for ttl.
func (c *ProductCache) SetSingle(ctx context.Context, id string, p *models.Product, ttl time.Duration) error {
	return c.set(ctx, SingleKey(id), p, ttl)
}

// GetSnapshot returns the cached collection.
func (c *ProductCache) GetSnapshot(ctx context.Context) ([]models.Product, bool, error) {
	var ps []models.Product
	ok, err := c.get(ctx, SnapshotKey, &ps)
	if !ok {
		return nil, false, err
	}
	return ps, true, nil
}

// SetSnapshot caches the whole collection for ttl.
func (c *ProductCache) SetSnapshot(ctx context.Context, ps []models.Product, ttl time.Duration) error {
	return c.set(ctx, SnapshotKey, ps, ttl)
}

// GetSearch returns cached search results for filter.
func (c *ProductCache) GetSearch(ctx context.Context, filter models.ProductFilter) ([]models.Product, bool, error) {
	var ps []models.Product
	ok, err := c.get(ctx, SearchKey(filter), &ps)
	if !ok {
		return nil, false, err
	}
	return ps, true, nil
}

// SetSearch caches search results for filter.
func (c *ProductCache) SetSearch(ctx context.Context, filter models.ProductFilter, ps []models.Product, ttl time.Duration) error {
	return c.set(ctx, SearchKey(filter), ps, ttl)
}

// InvalidateSingle evicts the single entry for id and reports whether it was present.
func (c *ProductCache) InvalidateSingle(ctx context.Context, id string) (bool, error) {
	return c.delete(ctx, SingleKey(id))
}

// InvalidateSnapshot evicts the collection entry and reports whether it was present.
func (c *ProductCache) InvalidateSnapshot(ctx context.Context) (bool, error) {
	return c.delete(ctx, SnapshotKey)
}

func (c *ProductCache) get(ctx context.Context, key string, dst any) (bool, error) {
	var data []byte
	err := c.bounded(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return false, nil
		}
		return false, errx.Cache(err, "get", key)
	}
	if err := c.codec.Unmarshal(data, dst); err != nil {
		return false, errx.Cache(err, "decode", key)
	}
	return true, nil
}

func (c *ProductCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := c.codec.Marshal(v)
	if err != nil {
		return errx.Cache(err, "encode", key)
	}
	err = c.bounded(ctx, func(ctx context.Context) error {
		return c.store.Set(ctx, key, data, ttl)
	})
	if err != nil {
		return errx.Cache(err, "set", key)
	}
	return nil
}

func (c *ProductCache) delete(ctx context.Context, key string) (bool, error) {
	var deleted bool
	err := c.bounded(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = c.store.Delete(ctx, key)
		return err
	})
	if err != nil {
		return false, errx.Cache(err, "delete", key)
	}
	return deleted, nil
}

// bounded runs op with the cache timeout and stops waiting once it expires, even when the
// store ignores ctx.
func (c *ProductCache) bounded(ctx context.Context, op func(ctx context.Context) error) error {
	if c.timeout <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
