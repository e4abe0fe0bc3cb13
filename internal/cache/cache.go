// Package cache provides the shared key-value cache contract backed by
// Redis. The cache is strictly optional: when no Redis address is
// configured, a no-op implementation is used and every caching operation is
// silently skipped.
package cache

import (
	"context"
	"time"
)

// Cache is the key-value service contract. Implementations never surface
// errors to callers; a failed lookup is a miss and a failed write is
// dropped, because cached state is always reconstructible.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores value under key with a TTL. Last write wins.
	Set(ctx context.Context, key, value string, ttl time.Duration)

	// ZRevRange returns members of a sorted set by descending score.
	ZRevRange(ctx context.Context, key string, start, stop int64) []string

	// LRange returns a slice of a list.
	LRange(ctx context.Context, key string, start, stop int64) []string
}

// Nop is the degraded-mode cache used when Redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (string, bool) { return "", false }

func (Nop) Set(context.Context, string, string, time.Duration) {}

func (Nop) ZRevRange(context.Context, string, int64, int64) []string { return nil }

func (Nop) LRange(context.Context, string, int64, int64) []string { return nil }

var _ Cache = Nop{}
