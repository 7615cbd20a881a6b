package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eugenenazirov/service-calculator/internal/solver"
)

const defaultPrefix = "svccalc:result:"

// Cache stores solver results by request fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) (solver.Result, bool, error)
	Set(ctx context.Context, key string, result solver.Result) error
}

// Key fingerprints any JSON-encodable value.
func Key(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Noop never stores anything.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) (solver.Result, bool, error) {
	return solver.Result{}, false, nil
}

// Set discards the result.
func (Noop) Set(context.Context, string, solver.Result) error {
	return nil
}

// Redis keeps results as JSON strings with a TTL.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedis wraps a go-redis client. A zero ttl keeps entries until evicted.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: defaultPrefix}
}

// Get returns the cached result for key, if present.
func (r *Redis) Get(ctx context.Context, key string) (solver.Result, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return solver.Result{}, false, nil
		}
		return solver.Result{}, false, fmt.Errorf("redis get: %w", err)
	}

	var result solver.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return solver.Result{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return result, true, nil
}

// Set stores result under key.
func (r *Redis) Set(ctx context.Context, key string, result solver.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
