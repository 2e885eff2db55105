package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Getter is the read side of Cache.
type Getter interface {
	Get(ctx context.Context, key string) ([]byte, bool)
}

// Setter is the write side of Cache.
type Setter interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
}

// GetJSON decodes the value at key into T. Undecodable payloads count as misses.
func GetJSON[T any](ctx context.Context, c Getter, key string) (T, bool) {
	var v T
	data, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// SetJSON encodes v and stores it at key.
func SetJSON[T any](ctx context.Context, c Setter, key string, v T, ttl time.Duration) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return c.Set(ctx, key, data, ttl)
}
