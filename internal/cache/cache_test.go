package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name string `json:"name"`
}

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, New(client)
}

func TestStore_AsideCachesFetch(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *entry) func() error {
		return func() error {
			calls++
			dest.Name = "fresh"
			return nil
		}
	}

	var first entry
	hit, err := store.Aside(ctx, "k", &first, time.Minute, fetch(&first))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", first.Name)
	assert.True(t, mr.Exists("k"))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	var second entry
	hit, err = store.Aside(ctx, "k", &second, time.Minute, fetch(&second))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "fresh", second.Name)
	assert.Equal(t, 1, calls)
}

func TestStore_AsideFetchErrorNotCached(t *testing.T) {
	mr, store := newTestStore(t)

	var dest entry
	_, err := store.Aside(context.Background(), "k", &dest, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists("k"))
}

func TestStore_AsideFallsBackOnRedisFailure(t *testing.T) {
	mr, store := newTestStore(t)
	mr.SetError("READONLY")

	before := testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get"))

	var dest entry
	hit, err := store.Aside(context.Background(), "k", &dest, time.Minute, func() error {
		dest.Name = "from-db"
		return nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "from-db", dest.Name)
	assert.Greater(t, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get")), before)
}

func TestStore_CorruptEntryRefetched(t *testing.T) {
	mr, store := newTestStore(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var dest entry
	hit, err := store.Aside(context.Background(), "k", &dest, time.Minute, func() error {
		dest.Name = "repaired"
		return nil
	})
	require.NoError(t, err)
	assert.False(t, hit)

	raw, err := mr.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"repaired"}`, raw)
}

func TestStore_Invalidate(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetJSON(ctx, AutosaveKey("u1"), entry{Name: "x"}, time.Minute))
	assert.True(t, mr.Exists("autosave:u1"))

	store.Invalidate(ctx, AutosaveKey("u1"))
	assert.False(t, mr.Exists("autosave:u1"))
}

func TestStore_DisabledIsMiss(t *testing.T) {
	store := New(nil)
	ctx := context.Background()
	assert.False(t, store.Enabled())
	assert.NoError(t, store.Ping(ctx))

	found, err := store.GetJSON(ctx, "k", &entry{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, store.SetJSON(ctx, "k", entry{}, time.Minute))
	store.Invalidate(ctx, "k")

	calls := 0
	for i := 0; i < 2; i++ {
		_, err := store.Aside(ctx, "k", &entry{}, time.Minute, func() error { calls++; return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client := InitRedis(mr.Addr())
	require.NotNil(t, client)
	_ = client.Close()

	client = InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, client)
	_ = client.Close()

	assert.Nil(t, InitRedis(""))
	assert.Nil(t, InitRedis("redis://%zz"))
}

func TestStore_AsideKeepsConcurrentWrite(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	var dest entry
	hit, err := store.Aside(ctx, "k", &dest, time.Minute, func() error {
		// A writer stores a newer value while this read is in flight.
		require.NoError(t, store.SetJSON(ctx, "k", entry{Name: "new"}, time.Minute))
		dest.Name = "old"
		return nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "old", dest.Name)

	raw, err := mr.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"new"}`, raw)
}

func TestStore_SetJSONNX(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	written, err := store.SetJSONNX(ctx, "k", entry{Name: "a"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = store.SetJSONNX(ctx, "k", entry{Name: "b"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, written)

	var got entry
	found, err := store.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", got.Name)

	written, err = New(nil).SetJSONNX(ctx, "k", entry{}, time.Minute)
	assert.NoError(t, err)
	assert.False(t, written)
}
