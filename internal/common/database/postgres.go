// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/errors"

	_ "github.com/lib/pq"
)

const connMaxLifetime = 5 * time.Minute

// Postgres holds the pool behind the application record store.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres opens the pool. No connection is made until the first query or Ping.
func NewPostgres(cfg config.PostgresConfig) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(fmt.Errorf("postgres: %w", err))
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxLifetime)
	return &Postgres{DB: db}, nil
}

// Ping doubles as the readiness check.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.DB.PingContext(ctx); err != nil {
		return errors.NewDatabaseConnectionFailedError(fmt.Errorf("postgres: %w", err)).WithMetadata("backend", "postgres")
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
