package repository

import (
	"context"
	"sync"
	"time"

	"gasfinder-server/internal/cache"
	"gasfinder-server/internal/modules/prices/types"

	"github.com/shopspring/decimal"
)

// latest wraps a lookup result so that "no price" can be cached too.
type latest struct {
	obs *types.PriceObservation
}

// CachedRepository memoises LatestObservation per station and fuel type.
// Recording an observation drops the cached entry for its pair.
type CachedRepository struct {
	inner  PriceRepository
	window time.Duration
	cache  *cache.Cache[latest]

	// writes counts recorded observations. A lookup only stores its result
	// if no write happened while it was reading the backing store.
	mu     sync.Mutex
	writes uint64
}

func NewCachedRepository(inner PriceRepository, ttl, window time.Duration) *CachedRepository {
	return &CachedRepository{
		inner:  inner,
		window: window,
		cache:  cache.New[latest](ttl),
	}
}

func cacheKey(stationID string, fuelType types.FuelType) string {
	return stationID + "\x00" + string(fuelType)
}

func (c *CachedRepository) RecordObservation(ctx context.Context, stationID string, price decimal.Decimal, fuelType types.FuelType, source types.Source) (types.PriceObservation, error) {
	obs, err := c.inner.RecordObservation(ctx, stationID, price, fuelType, source)
	if err != nil {
		return obs, err
	}
	c.mu.Lock()
	c.writes++
	c.cache.Delete(cacheKey(stationID, fuelType))
	c.mu.Unlock()
	return obs, nil
}

func (c *CachedRepository) LatestObservation(ctx context.Context, stationID string, fuelType types.FuelType, asOf time.Time) (*types.PriceObservation, error) {
	key := cacheKey(stationID, fuelType)
	if hit, ok := c.cache.Get(key); ok {
		// A cached row may have aged out of the window since it was stored.
		if hit.obs != nil && !hit.obs.ObservedAt.After(asOf.Add(-c.window)) {
			return nil, nil
		}
		return hit.obs, nil
	}

	c.mu.Lock()
	seen := c.writes
	c.mu.Unlock()

	obs, err := c.inner.LatestObservation(ctx, stationID, fuelType, asOf)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.writes == seen {
		c.cache.Set(key, latest{obs: obs})
	}
	c.mu.Unlock()
	return obs, nil
}

func (c *CachedRepository) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

// Close stops the cache sweeper.
func (c *CachedRepository) Close() {
	c.cache.Close()
}
