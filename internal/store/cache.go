// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/common/metrics"
	"rts-portal/internal/models"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// cacheEntry carries the id, which Application does not serialize.
type cacheEntry struct {
	ID          int64               `json:"id"`
	Application *models.Application `json:"application"`
}

// CachedStore serves tracking-code reads from Redis. Writes go to the wrapped
// store and drop the cached entry. Redis failures fall through to the wrapped store.
type CachedStore struct {
	Store
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewCachedStore(next Store, client redis.Cmdable, cfg config.CacheConfig, log logger.Logger) *CachedStore {
	ttl := config.GetDuration(cfg.TTL)
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{
		Store:  next,
		client: client,
		ttl:    ttl,
		prefix: cfg.KeyPrefix,
		logger: log.WithFields(map[string]interface{}{"component": "application-cache"}),
	}
}

func (c *CachedStore) key(code string) string {
	return c.prefix + "app:" + code
}

func (c *CachedStore) GetByTrackingCode(ctx context.Context, code string) (*models.Application, error) {
	if app, ok := c.load(ctx, code); ok {
		return app, nil
	}

	app, err := c.Store.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.save(ctx, app)
	return app, nil
}

// FindForTracking checks the mobile against the cached entry; tracking codes
// are unique so the entry is the same whichever mobile was supplied.
func (c *CachedStore) FindForTracking(ctx context.Context, code, mobile string) (*models.Application, error) {
	if app, ok := c.load(ctx, code); ok {
		if mobile != "" && app.Applicant.Mobile != mobile {
			return nil, ErrNotFound
		}
		return app, nil
	}

	app, err := c.Store.FindForTracking(ctx, code, mobile)
	if err != nil {
		return nil, err
	}
	c.save(ctx, app)
	return app, nil
}

func (c *CachedStore) UpdateFlag(ctx context.Context, code, updatedBy string) error {
	return c.write(ctx, code, func() error {
		return c.Store.UpdateFlag(ctx, code, updatedBy)
	})
}

func (c *CachedStore) UpdateFlagWithDocuments(ctx context.Context, code, updatedBy string, docs []models.Document) error {
	return c.write(ctx, code, func() error {
		return c.Store.UpdateFlagWithDocuments(ctx, code, updatedBy, docs)
	})
}

func (c *CachedStore) SoftDelete(ctx context.Context, code, deletedBy string) error {
	return c.write(ctx, code, func() error {
		return c.Store.SoftDelete(ctx, code, deletedBy)
	})
}

// write drops the entry on both sides of fn. The second delete clears an
// entry a concurrent read cached from the pre-write row.
func (c *CachedStore) write(ctx context.Context, code string, fn func() error) error {
	c.invalidate(ctx, code)
	err := fn()
	c.invalidate(ctx, code)
	return err
}

func (c *CachedStore) load(ctx context.Context, code string) (*models.Application, bool) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("Cache read failed, using database", map[string]interface{}{
			"trackingCode": code,
			"error":        err.Error(),
		})
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Application == nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("Discarding unreadable cache entry", map[string]interface{}{
			"trackingCode": code,
		})
		c.invalidate(ctx, code)
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues("hit").Inc()
	entry.Application.ID = entry.ID
	return entry.Application, true
}

func (c *CachedStore) save(ctx context.Context, app *models.Application) {
	data, err := json.Marshal(cacheEntry{ID: app.ID, Application: app})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(app.TrackingCode), data, c.ttl).Err(); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("Cache write failed", map[string]interface{}{
			"trackingCode": app.TrackingCode,
			"error":        err.Error(),
		})
	}
}

func (c *CachedStore) invalidate(ctx context.Context, code string) {
	if err := c.client.Del(ctx, c.key(code)).Err(); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("Cache invalidation failed", map[string]interface{}{
			"trackingCode": code,
			"error":        err.Error(),
		})
	}
}
