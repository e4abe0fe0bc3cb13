package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache used in tests and single-node setups where
// running Redis is not worth it. Expiry is checked lazily on read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	zsets   map[string][]string
	lists   map[string][]string
	// now is overridable for expiry tests.
	now func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		zsets:   make(map[string][]string),
		lists:   make(map[string][]string),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
}

func (m *Memory) ZRevRange(_ context.Context, key string, start, stop int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sliceRange(m.zsets[key], start, stop)
}

func (m *Memory) LRange(_ context.Context, key string, start, stop int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sliceRange(m.lists[key], start, stop)
}

// SeedZSet seeds a sorted set, already ordered by descending score.
func (m *Memory) SeedZSet(key string, members ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zsets[key] = members
}

// SeedList seeds a list.
func (m *Memory) SeedList(key string, items ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = items
}

func sliceRange(items []string, start, stop int64) []string {
	n := int64(len(items))
	if n == 0 || start >= n {
		return nil
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		return nil
	}
	out := make([]string, stop-start+1)
	copy(out, items[start:stop+1])
	return out
}

var _ Cache = (*Memory)(nil)
