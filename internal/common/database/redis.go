// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

// Redis backs the application cache. Lookups are single GET/SET calls, so
// the pool stays small and timeouts short.
type Redis struct {
	*redis.Client
}

func NewRedis(cfg config.RedisConfig) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     10,
	})}
}

// Ping doubles as the readiness check.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return errors.NewDatabaseConnectionFailedError(fmt.Errorf("redis: %w", err)).WithMetadata("backend", "redis")
	}
	return nil
}
