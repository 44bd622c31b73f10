package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// SlotCache memoizes computed availability grids in Redis.  Each entry is
// keyed by branch, date, party size and a per-branch-day version counter;
// invalidation bumps the counter instead of scanning for keys, so stale
// entries simply age out with their TTL.
//
// A nil *SlotCache is a valid no-op cache, which keeps callers free of nil
// checks when Redis is not configured.
type SlotCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewSlotCache builds a cache over the given client.  It returns nil when the
// client is nil so that a missing Redis configuration disables caching.
func NewSlotCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *SlotCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SlotCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *SlotCache) versionKey(branchID uint64, date time.Time) string {
	return fmt.Sprintf("slots:ver:%d:%s", branchID, date.Format("2006-01-02"))
}

func (c *SlotCache) slotKey(branchID uint64, date time.Time, guests int, version int64) string {
	return fmt.Sprintf("slots:%d:%s:%d:v%d", branchID, date.Format("2006-01-02"), guests, version)
}

func (c *SlotCache) version(ctx context.Context, branchID uint64, date time.Time) int64 {
	v, err := c.rdb.Get(ctx, c.versionKey(branchID, date)).Int64()
	if err != nil {
		return 0
	}
	return v
}

// Get returns the cached slot list for the given lookup, if present.
func (c *SlotCache) Get(ctx context.Context, branchID uint64, date time.Time, guests int) ([]model.TimeOfDay, bool) {
	if c == nil {
		return nil, false
	}
	key := c.slotKey(branchID, date, guests, c.version(ctx, branchID, date))
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var slots []model.TimeOfDay
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("slot cache entry corrupt, ignoring")
		return nil, false
	}
	return slots, true
}

// Set stores a computed slot list under the current version.
func (c *SlotCache) Set(ctx context.Context, branchID uint64, date time.Time, guests int, slots []model.TimeOfDay) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	key := c.slotKey(branchID, date, guests, c.version(ctx, branchID, date))
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("slot cache write failed")
	}
}

// Invalidate drops every cached grid for the branch and date by bumping the
// version counter.  Called after a booking commits or a reservation changes.
func (c *SlotCache) Invalidate(ctx context.Context, branchID uint64, date time.Time) {
	if c == nil {
		return
	}
	key := c.versionKey(branchID, date)
	if err := c.rdb.Incr(ctx, key).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("slot cache invalidation failed")
		return
	}
	c.rdb.Expire(ctx, key, 24*time.Hour)
}
