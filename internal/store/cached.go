package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/voyagen/stalker2m3u/internal/cache"
	"github.com/voyagen/stalker2m3u/internal/logging"
	"github.com/voyagen/stalker2m3u/internal/models"
)

// Cache TTLs. Conversions are immutable once written, so single-entity
// entries can live longer than lists.
const (
	ttlConversion  = 30 * time.Minute
	ttlConversions = 1 * time.Minute
	ttlEntries     = 30 * time.Minute
)

// CachedStore wraps a Store with a Redis read-through cache. Writes go to
// the inner store first and then invalidate.
type CachedStore struct {
	inner  Store
	cache  *cache.Redis
	logger zerolog.Logger
}

// NewCachedStore creates a CachedStore over inner.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c, logger: logging.WithComponent("store.cache")}
}

func conversionKey(id string) string { return "conversion:" + id }
func entriesKey(id string) string    { return "entries:" + id }
func listKey(limit int) string       { return fmt.Sprintf("conversions:%d", limit) }

func (c *CachedStore) GetConversion(ctx context.Context, sessionID string) (*models.Conversion, error) {
	key := conversionKey(sessionID)
	if v, err := cache.Get[models.Conversion](ctx, c.cache, key); err == nil {
		return &v, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache get")
	}
	conv, err := c.inner.GetConversion(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, conv, ttlConversion)
	return conv, nil
}

func (c *CachedStore) ListConversions(ctx context.Context, limit int) ([]models.Conversion, error) {
	limit = ClampLimit(limit)
	key := listKey(limit)
	if v, err := cache.Get[[]models.Conversion](ctx, c.cache, key); err == nil {
		return v, nil
	}
	list, err := c.inner.ListConversions(ctx, limit)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, list, ttlConversions)
	return list, nil
}

func (c *CachedStore) ListEntries(ctx context.Context, sessionID string) ([]models.Entry, error) {
	key := entriesKey(sessionID)
	if v, err := cache.Get[[]models.Entry](ctx, c.cache, key); err == nil {
		return v, nil
	}
	entries, err := c.inner.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, entries, ttlEntries)
	return entries, nil
}

func (c *CachedStore) SaveConversion(ctx context.Context, conv *models.Conversion) error {
	if err := c.inner.SaveConversion(ctx, conv); err != nil {
		return err
	}
	c.invalidate(ctx, conv.SessionID)
	return nil
}

func (c *CachedStore) DeleteConversion(ctx context.Context, sessionID string) error {
	if err := c.inner.DeleteConversion(ctx, sessionID); err != nil {
		return err
	}
	c.invalidate(ctx, sessionID)
	return nil
}

func (c *CachedStore) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := cache.Set(ctx, c.cache, key, v, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache set")
	}
}

func (c *CachedStore) invalidate(ctx context.Context, sessionID string) {
	if err := cache.Del(ctx, c.cache, conversionKey(sessionID), entriesKey(sessionID)); err != nil {
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("cache del")
	}
	if err := cache.DelPattern(ctx, c.cache, "conversions:*"); err != nil {
		c.logger.Warn().Err(err).Msg("cache del pattern")
	}
}
