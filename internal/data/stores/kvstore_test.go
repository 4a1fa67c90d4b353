package stores

import (
	"context"
	"testing"
	"time"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestKVStore returns a store whose clock is controlled by the returned pointer.
func newTestKVStore(t *testing.T) (*KVStore, *time.Time) {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewKVStore()
	store.now = func() time.Time { return now }
	return store, &now
}

func TestKVStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKVStore(t)

	type payload struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	require.NoError(t, store.Set(ctx, "test-key", payload{Name: "hello", Value: 42}))

	var got payload
	require.NoError(t, store.Get(ctx, "test-key", &got))
	assert.Equal(t, "hello", got.Name)
	assert.Equal(t, 42, got.Value)
}

func TestKVStore_GetNotFound(t *testing.T) {
	store, _ := newTestKVStore(t)

	var v string
	err := store.Get(context.Background(), "nonexistent", &v)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestKVStore_SetOverwriteKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store, now := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "key", "first"))
	created := *now
	*now = now.Add(time.Minute)
	require.NoError(t, store.Set(ctx, "key", "second"))

	entry, err := store.GetRaw(ctx, "key")
	require.NoError(t, err)
	assert.JSONEq(t, `"second"`, string(entry.Value))
	assert.Equal(t, created, entry.CreatedAt)
	assert.Equal(t, *now, entry.UpdatedAt)
}

func TestKVStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, now := newTestKVStore(t)

	require.NoError(t, store.SetTTL(ctx, "temp", "value", time.Minute))

	has, err := store.Has(ctx, "temp")
	require.NoError(t, err)
	assert.True(t, has)

	*now = now.Add(2 * time.Minute)

	has, err = store.Has(ctx, "temp")
	require.NoError(t, err)
	assert.False(t, has)
	assert.Equal(t, 0, store.Len(), "expired entries are deleted lazily")
}

func TestKVStore_SweepAndListKeys(t *testing.T) {
	ctx := context.Background()
	store, now := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "b", 1))
	require.NoError(t, store.Set(ctx, "a", 1))
	require.NoError(t, store.SetTTL(ctx, "c", 1, time.Second))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	*now = now.Add(time.Hour)

	keys, err = store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	removed, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, store.Len())
}

func TestTypedKV_ScopedClear(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKVStore(t)

	alpha := kv.Scoped[int](store, "alpha")
	beta := kv.Scoped[int](store, "beta")

	require.NoError(t, alpha.Set(ctx, "count", 10))
	require.NoError(t, alpha.SetTTL(ctx, "other", 11, 0))
	require.NoError(t, beta.Set(ctx, "count", 20))

	a, err := alpha.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 10, a)

	removed, err := alpha.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	has, err := alpha.Has(ctx, "count")
	require.NoError(t, err)
	assert.False(t, has)

	b, err := beta.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 20, b)
}

func TestSweep_StopsOnCancel(t *testing.T) {
	store, _ := newTestKVStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Sweep(ctx, store, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop")
	}
}
