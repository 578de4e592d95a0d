package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries as plain string keys. The quota applies per value;
// a server-side OOM rejection is reported as ErrQuotaExceeded too.
type Redis struct {
	Client        *redis.Client
	MaxValueBytes int
}

func NewRedis(client *redis.Client, maxValueBytes int) *Redis {
	return &Redis{Client: client, MaxValueBytes: maxValueBytes}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.MaxValueBytes > 0 && len(value) > r.MaxValueBytes {
		return ErrQuotaExceeded
	}
	err := r.Client.Set(ctx, key, value, ttl).Err()
	if err != nil && strings.HasPrefix(err.Error(), "OOM") {
		return ErrQuotaExceeded
	}
	return err
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
