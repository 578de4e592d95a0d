// Package kvstore is the key-value collaborator the report store persists
// through: whole JSON blobs read and written by key, with a capacity limit.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rics-valuation/internal/infrastructure/database"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound      = errors.New("kvstore: key not found")
	ErrQuotaExceeded = errors.New("kvstore: quota exceeded")
)

// Store reads and writes JSON blobs by key. A ttl of zero means no expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and sizes a backend.
type Options struct {
	Backend    string
	DSN        string
	Redis      *redis.Client
	QuotaBytes int
}

// Open builds the Store for opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(opts.QuotaBytes), nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, errors.New("kvstore: redis backend needs REDIS_URL")
		}
		return NewRedis(opts.Redis, opts.QuotaBytes), nil
	case BackendSQLite, BackendPostgres:
		db, err := database.Open(opts.Backend, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("kvstore: open %s: %w", opts.Backend, err)
		}
		return NewGorm(db, opts.QuotaBytes)
	}
	return nil, fmt.Errorf("kvstore: unknown backend %q", opts.Backend)
}
