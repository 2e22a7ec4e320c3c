package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/payroll-extract/internal/domain"
)

func newRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("payroll:k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisClient_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)

	require.NoError(t, c.Set(ctx, "result:a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "result:b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "other", []byte("3"), 0))

	require.NoError(t, c.DeleteByPrefix(ctx, "result:"))
	assert.False(t, mr.Exists("payroll:result:a"))
	assert.False(t, mr.Exists("payroll:result:b"))
	assert.True(t, mr.Exists("payroll:other"))

	require.NoError(t, c.Delete(ctx, "other"))
	assert.False(t, mr.Exists("payroll:other"))
}

func TestRedisClient_URL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(context.Background(), RedisConfig{URL: "redis://" + mr.Addr() + "/0", Prefix: "x:"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	assert.True(t, mr.Exists("x:k"))

	_, err = NewRedisClient(context.Background(), RedisConfig{URL: "::not a url"})
	assert.Error(t, err)
}

func TestRedisClient_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestMemoryClient(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)
	defer c.Close()

	_, err := c.Get(ctx, "a")
	assert.True(t, IsMiss(err))

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 2*time.Hour))

	assert.Equal(t, 2, c.Len())
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss, "entry closest to expiry is evicted first")

	got, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	require.NoError(t, c.DeleteByPrefix(ctx, "c"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Set(ctx, "gone", []byte("x"), time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, err = c.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestMemoryClient_CopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(0)
	defer c.Close()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "result:abc:def", CacheKey("result", "abc", "def"))
	assert.Equal(t, "", CacheKey())
}

func TestResultCache(t *testing.T) {
	ctx := context.Background()
	client, _ := newRedis(t)
	rc := NewResultCache(client, DefaultResultCacheConfig(), domain.NopLogger())

	doc := []byte("%PDF-1.4 payroll")
	key := rc.Key(doc, "digits=6")
	assert.NotEqual(t, key, rc.Key(doc, "digits=7"))
	assert.NotEqual(t, key, rc.Key([]byte("other"), "digits=6"))
	assert.Equal(t, key, rc.Key(doc, "digits=6"))

	_, err := rc.Get(ctx, key)
	assert.True(t, IsMiss(err))

	emp, err := domain.NewEmployee("123456", "JOHN DOE", "Developer",
		domain.MustMoney("8500"), domain.MustMoney("6800"), 1)
	require.NoError(t, err)
	payroll, err := domain.NewPayroll(domain.Period{Month: 9, Year: 2025}, []domain.Employee{emp})
	require.NoError(t, err)

	in := CachedResult{
		Payroll: payroll.Snapshot(),
		Period:  domain.PeriodDetection{Period: payroll.Period(), Strategy: domain.StrategyLabel, Page: 1},
		Pages:   1,
	}
	require.NoError(t, rc.Put(ctx, key, in))

	out, err := rc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, in.Payroll, out.Payroll)
	assert.Equal(t, in.Period, out.Period)
	assert.False(t, out.CachedAt.IsZero())

	require.NoError(t, rc.Purge(ctx))
	_, err = rc.Get(ctx, key)
	assert.True(t, IsMiss(err))
}

func TestResultCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryClient(0)
	defer mem.Close()
	rc := NewResultCache(mem, ResultCacheConfig{}, domain.NopLogger())

	require.NoError(t, mem.Set(ctx, "result:bad", []byte("{not json"), 0))
	_, err := rc.Get(ctx, "result:bad")
	assert.True(t, IsMiss(err))
	assert.Equal(t, 0, mem.Len())
}
