package seats

import (
	"context"
	"time"

	"ticketly/internal/shared/constants"
	"ticketly/pkg/cache"

	"github.com/google/uuid"
)

// MapCache keeps rendered seat maps in the shared cache. Misses and cache
// errors both fall through to the store.
type MapCache struct {
	cache cache.Service
	ttl   time.Duration
}

func NewMapCache(c cache.Service, ttl time.Duration) *MapCache {
	if ttl <= 0 {
		ttl = constants.TTL_SEAT_MAP
	}
	return &MapCache{cache: c, ttl: ttl}
}

func (m *MapCache) Get(ctx context.Context, eventID uuid.UUID) (*Grid, bool) {
	var g Grid
	if err := m.cache.Get(ctx, constants.BuildSeatMapKey(eventID.String()), &g); err != nil {
		return nil, false
	}
	return &g, true
}

func (m *MapCache) Set(ctx context.Context, g *Grid) error {
	return m.cache.Set(ctx, constants.BuildSeatMapKey(g.EventID.String()), g, m.ttl)
}

func (m *MapCache) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	return m.cache.Delete(ctx, constants.BuildSeatMapKey(eventID.String()))
}
