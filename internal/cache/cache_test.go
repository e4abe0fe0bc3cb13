package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "autocomplete:fone", EnvelopeKey("  Fone "))
	assert.Equal(t, "autocomplete:typo_cache:fone", TypoKey("FONE"))
	assert.Equal(t, "image-cache:https://a/b.jpg", ImageKey("https://a/b.jpg"))
	assert.Equal(t, "upload:j1:status", JobKey("j1"))
	assert.Equal(t, "ranking:searches:acme", RankingSearches("acme"))
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)

	m.Set(ctx, "k", "v", time.Minute)
	got, ok := m.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Now()
	m.now = func() time.Time { return base }

	m.Set(ctx, "k", "v", time.Second)

	base = base.Add(2 * time.Second)
	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryRanges(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SeedZSet("z", "a", "b", "c")
	m.SeedList("l", "x", "y")

	assert.Equal(t, []string{"a", "b"}, m.ZRevRange(ctx, "z", 0, 1))
	assert.Equal(t, []string{"a", "b", "c"}, m.ZRevRange(ctx, "z", 0, -1))
	assert.Equal(t, []string{"x", "y"}, m.LRange(ctx, "l", 0, 5))
	assert.Nil(t, m.ZRevRange(ctx, "missing", 0, 5))
}

func TestNopDegradesSilently(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}

	c.Set(ctx, "k", "v", time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Nil(t, c.ZRevRange(ctx, "z", 0, 1))
}

func TestNewWithoutAddrReturnsNop(t *testing.T) {
	c := New(Config{}, zap.NewNop())
	_, isNop := c.(Nop)
	assert.True(t, isNop)
}
