// internal/store/cache_test.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/forms"
	"rts-portal/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test helpers
// ==========================

// stubStore serves applications from memory and counts calls.
type stubStore struct {
	Store
	apps    map[string]*models.Application
	reads   int
	updates int
	deletes int
	err     error
}

func newStubStore(apps ...*models.Application) *stubStore {
	s := &stubStore{apps: map[string]*models.Application{}}
	for _, a := range apps {
		s.apps[a.TrackingCode] = a
	}
	return s
}

func (s *stubStore) Insert(_ context.Context, app *models.Application) (*models.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *app
	out.ID = int64(len(s.apps) + 1)
	out.TrackingCode = forms.FormatTrackingCode("RPF", out.ID)
	s.apps[out.TrackingCode] = &out
	return &out, nil
}

func (s *stubStore) GetByTrackingCode(_ context.Context, code string) (*models.Application, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	app, ok := s.apps[code]
	if !ok || !app.IsActive {
		return nil, ErrNotFound
	}
	return app, nil
}

func (s *stubStore) FindForTracking(ctx context.Context, code, mobile string) (*models.Application, error) {
	app, err := s.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if mobile != "" && app.Applicant.Mobile != mobile {
		return nil, ErrNotFound
	}
	return app, nil
}

func (s *stubStore) UpdateFlag(ctx context.Context, code, updatedBy string) error {
	return s.UpdateFlagWithDocuments(ctx, code, updatedBy, nil)
}

func (s *stubStore) UpdateFlagWithDocuments(_ context.Context, code, updatedBy string, docs []models.Document) error {
	s.updates++
	app, ok := s.apps[code]
	if !ok {
		return ErrNotFound
	}
	app.Status = models.StatusUpdated
	app.UpdatedBy = updatedBy
	app.Documents = append(app.Documents, docs...)
	return nil
}

func (s *stubStore) SoftDelete(_ context.Context, code, deletedBy string) error {
	s.deletes++
	app, ok := s.apps[code]
	if !ok {
		return ErrNotFound
	}
	app.IsActive = false
	app.DeletedBy = deletedBy
	return nil
}

func storedPothole() *models.Application {
	app := potholeApplication()
	app.ID = 7
	app.TrackingCode = "RPF00001"
	app.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	app.Payload = map[string]interface{}{"RoadName": "MG Road", "PotholeCount": 5.0}
	app.Documents = []models.Document{}
	return app
}

func newMiniredisCache(t *testing.T, next Store) (*CachedStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCachedStore(next, client, config.CacheConfig{}, logger.NewTestLogger(t)), mr
}

// ==========================
// Reads
// ==========================

func TestCachedStore_SecondReadIsServedFromRedis(t *testing.T) {
	next := newStubStore(storedPothole())
	c, mr := newMiniredisCache(t, next)
	ctx := context.Background()

	first, err := c.FindForTracking(ctx, "RPF00001", "9876543210")
	require.NoError(t, err)
	second, err := c.FindForTracking(ctx, "RPF00001", "")
	require.NoError(t, err)

	assert.Equal(t, 1, next.reads)
	assert.True(t, mr.Exists("app:RPF00001"))
	assert.Equal(t, first.TrackingCode, second.TrackingCode)
	assert.Equal(t, int64(7), second.ID)
	assert.Equal(t, first.Applicant, second.Applicant)
	assert.Equal(t, first.Payload, second.Payload)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
}

func TestCachedStore_UsesDefaultTTL(t *testing.T) {
	c, mr := newMiniredisCache(t, newStubStore(storedPothole()))

	_, err := c.GetByTrackingCode(context.Background(), "RPF00001")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, mr.TTL("app:RPF00001"))
}

func TestCachedStore_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewCachedStore(newStubStore(storedPothole()), client,
		config.CacheConfig{TTL: 60000, KeyPrefix: "rts:"}, logger.NewTestLogger(t))

	_, err := c.GetByTrackingCode(context.Background(), "RPF00001")
	require.NoError(t, err)

	assert.True(t, mr.Exists("rts:app:RPF00001"))
	assert.Equal(t, time.Minute, mr.TTL("rts:app:RPF00001"))
}

func TestCachedStore_CachedEntryStillChecksMobile(t *testing.T) {
	next := newStubStore(storedPothole())
	c, _ := newMiniredisCache(t, next)
	ctx := context.Background()

	_, err := c.GetByTrackingCode(ctx, "RPF00001")
	require.NoError(t, err)

	_, err = c.FindForTracking(ctx, "RPF00001", "9000000000")

	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, 1, next.reads)
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	next := newStubStore()
	c, mr := newMiniredisCache(t, next)

	_, err := c.GetByTrackingCode(context.Background(), "RPF00404")

	assert.Equal(t, ErrNotFound, err)
	assert.False(t, mr.Exists("app:RPF00404"))
}

func TestCachedStore_CorruptEntryFallsBackToStore(t *testing.T) {
	next := newStubStore(storedPothole())
	c, mr := newMiniredisCache(t, next)
	require.NoError(t, mr.Set("app:RPF00001", "{not json"))

	app, err := c.GetByTrackingCode(context.Background(), "RPF00001")

	require.NoError(t, err)
	assert.Equal(t, "RPF00001", app.TrackingCode)
	assert.Equal(t, 1, next.reads)
}

func TestCachedStore_RedisDownFallsBackToStore(t *testing.T) {
	next := newStubStore(storedPothole())
	c, mr := newMiniredisCache(t, next)
	mr.Close()

	app, err := c.FindForTracking(context.Background(), "RPF00001", "9876543210")

	require.NoError(t, err)
	assert.Equal(t, "RPF00001", app.TrackingCode)
	assert.Equal(t, 1, next.reads)
}

// ==========================
// Invalidation
// ==========================

func TestCachedStore_WritesInvalidate(t *testing.T) {
	next := newStubStore(storedPothole())
	c, mr := newMiniredisCache(t, next)
	ctx := context.Background()

	_, err := c.GetByTrackingCode(ctx, "RPF00001")
	require.NoError(t, err)
	require.True(t, mr.Exists("app:RPF00001"))

	require.NoError(t, c.UpdateFlag(ctx, "RPF00001", "clerk"))
	assert.False(t, mr.Exists("app:RPF00001"))

	app, err := c.GetByTrackingCode(ctx, "RPF00001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpdated, app.Status)

	require.NoError(t, c.SoftDelete(ctx, "RPF00001", "System"))
	assert.False(t, mr.Exists("app:RPF00001"))

	_, err = c.GetByTrackingCode(ctx, "RPF00001")
	assert.Equal(t, ErrNotFound, err)
}

// racingStore caches the pre-write row from inside the write, the way a read
// on another request can between the first delete and the commit.
type racingStore struct {
	*stubStore
	duringWrite func()
}

func (r *racingStore) UpdateFlag(ctx context.Context, code, updatedBy string) error {
	r.duringWrite()
	return r.stubStore.UpdateFlag(ctx, code, updatedBy)
}

func (r *racingStore) UpdateFlagWithDocuments(ctx context.Context, code, updatedBy string, docs []models.Document) error {
	r.duringWrite()
	return r.stubStore.UpdateFlagWithDocuments(ctx, code, updatedBy, docs)
}

func (r *racingStore) SoftDelete(ctx context.Context, code, deletedBy string) error {
	r.duringWrite()
	return r.stubStore.SoftDelete(ctx, code, deletedBy)
}

func TestCachedStore_WritesDropEntryBeforeAndAfter(t *testing.T) {
	writes := map[string]func(c *CachedStore, ctx context.Context) error{
		"update flag": func(c *CachedStore, ctx context.Context) error {
			return c.UpdateFlag(ctx, "RPF00001", "clerk")
		},
		"update with documents": func(c *CachedStore, ctx context.Context) error {
			return c.UpdateFlagWithDocuments(ctx, "RPF00001", "clerk", nil)
		},
		"soft delete": func(c *CachedStore, ctx context.Context) error {
			return c.SoftDelete(ctx, "RPF00001", "System")
		},
	}

	for name, write := range writes {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			next := &racingStore{stubStore: newStubStore(storedPothole())}
			c, mr := newMiniredisCache(t, next)

			_, err := c.GetByTrackingCode(ctx, "RPF00001")
			require.NoError(t, err)
			require.True(t, mr.Exists("app:RPF00001"))

			var existedAtWrite bool
			next.duringWrite = func() {
				existedAtWrite = mr.Exists("app:RPF00001")
				stale, err := json.Marshal(cacheEntry{ID: 7, Application: storedPothole()})
				require.NoError(t, err)
				require.NoError(t, mr.Set("app:RPF00001", string(stale)))
			}

			require.NoError(t, write(c, ctx))

			assert.False(t, existedAtWrite, "entry must be gone before the write runs")
			assert.False(t, mr.Exists("app:RPF00001"), "entry cached during the write must be dropped")
		})
	}
}

func TestCachedStore_ReadErrorFromRedis(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := newStubStore()
	c := NewCachedStore(next, client, config.CacheConfig{}, logger.NewTestLogger(t))

	mock.ExpectGet("app:RPF00404").SetErr(errors.New("READONLY"))

	_, err := c.GetByTrackingCode(context.Background(), "RPF00404")

	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, 1, next.reads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_InvalidationFailureDoesNotFailWrite(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := newStubStore(storedPothole())
	c := NewCachedStore(next, client, config.CacheConfig{}, logger.NewTestLogger(t))

	mock.ExpectDel("app:RPF00001").SetErr(errors.New("connection refused"))
	mock.ExpectDel("app:RPF00001").SetErr(errors.New("connection refused"))

	err := c.SoftDelete(context.Background(), "RPF00001", "System")

	assert.NoError(t, err)
	assert.Equal(t, 1, next.deletes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
