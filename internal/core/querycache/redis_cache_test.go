package querycache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type board struct {
	Active []string `json:"active"`
	Past   []string `json:"past"`
}

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, s
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache("not a url")
	assert.Error(t, err)
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	var got board
	hit, err := cache.Get(ctx, "sessions", "all:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := board{Active: []string{"s1"}, Past: []string{"s2", "s3"}}
	require.NoError(t, cache.Set(ctx, "sessions", "all:1", want, time.Minute))

	hit, err = cache.Get(ctx, "sessions", "all:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
}

func TestInvalidateDropsGroup(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "sessions", "k", board{Active: []string{"a"}}, time.Minute))
	require.NoError(t, cache.Set(ctx, "files", "k", board{Active: []string{"f"}}, time.Minute))

	require.NoError(t, cache.Invalidate(ctx, "sessions"))

	var got board
	hit, err := cache.Get(ctx, "sessions", "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = cache.Get(ctx, "files", "k", &got)
	require.NoError(t, err)
	assert.True(t, hit, "other groups are untouched")

	// writes after invalidation land under the new version
	require.NoError(t, cache.Set(ctx, "sessions", "k", board{Past: []string{"p"}}, time.Minute))
	hit, err = cache.Get(ctx, "sessions", "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"p"}, got.Past)
}

func TestEntriesExpire(t *testing.T) {
	cache, s := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "sessions", "k", board{}, 30*time.Second))
	s.FastForward(31 * time.Second)

	var got board
	hit, err := cache.Get(ctx, "sessions", "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Noop
	require.NoError(t, c.Set(ctx, "g", "k", 1, time.Minute))
	var n int
	hit, err := c.Get(ctx, "g", "k", &n)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Invalidate(ctx, "g"))
}
