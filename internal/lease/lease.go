// Package lease elects the replica that runs periodic maintenance.
package lease

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease grants exclusive right to a task for ttl. Acquire returns true when
// the caller holds the lease, renewing it if it already did.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Local always grants. It serves single-replica deployments.
type Local struct{}

func (Local) Acquire(context.Context, time.Duration) (bool, error) { return true, nil }

func (Local) Release(context.Context) error { return nil }

// Redis holds the lease as a key whose value is this holder's token.
type Redis struct {
	rdb   redis.Cmdable
	key   string
	token string
}

type RedisOption func(*Redis)

func WithKey(key string) RedisOption {
	return func(r *Redis) { r.key = strings.Trim(key, ":") }
}

func WithToken(token string) RedisOption {
	return func(r *Redis) { r.token = token }
}

func NewRedis(rdb redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:   rdb,
		key:   "bedhold:lease:sweeper",
		token: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Token identifies this holder.
func (r *Redis) Token() string {
	return r.token
}

func (r *Redis) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.key, r.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", r.key, err)
	}
	if ok {
		return true, nil
	}

	holder, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; the next tick retries.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read lease %s: %w", r.key, err)
	}
	if holder != r.token {
		return false, nil
	}
	if err := r.rdb.PExpire(ctx, r.key, ttl).Err(); err != nil {
		return false, fmt.Errorf("renew lease %s: %w", r.key, err)
	}
	return true, nil
}

// Release drops the lease if this holder owns it.
func (r *Redis) Release(ctx context.Context) error {
	holder, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lease %s: %w", r.key, err)
	}
	if holder != r.token {
		return nil
	}
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", r.key, err)
	}
	return nil
}
