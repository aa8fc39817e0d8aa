package tenant_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

func TestInMemoryCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stores and retrieves tenant", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCache()
		testTenant := createTestTenant("testone", true)
		cache.Set(ctx, "testone", testTenant, time.Hour)

		got, ok := cache.Get(ctx, "testone")
		require.True(t, ok)
		assert.Equal(t, testTenant, got)
	})

	t.Run("expires entries", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCache()
		cache.Set(ctx, "testone", createTestTenant("testone", true), 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		_, ok := cache.Get(ctx, "testone")
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCacheWithSize(2)
		cache.Set(ctx, "a", createTestTenant("a", true), time.Hour)
		cache.Set(ctx, "b", createTestTenant("b", true), time.Hour)

		_, ok := cache.Get(ctx, "a")
		require.True(t, ok)

		cache.Set(ctx, "c", createTestTenant("c", true), time.Hour)

		_, ok = cache.Get(ctx, "b")
		assert.False(t, ok, "b was least recently used")
		_, ok = cache.Get(ctx, "a")
		assert.True(t, ok)
		_, ok = cache.Get(ctx, "c")
		assert.True(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCache()
		cache.Set(ctx, "testone", createTestTenant("testone", true), time.Hour)
		cache.Delete(ctx, "testone")

		_, ok := cache.Get(ctx, "testone")
		assert.False(t, ok)
	})

	t.Run("noop cache stores nothing", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewNoOpCache()
		cache.Set(ctx, "testone", createTestTenant("testone", true), time.Hour)
		_, ok := cache.Get(ctx, "testone")
		assert.False(t, ok)
	})
}
