package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/erp/gst/internal/domain/tax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisRegistry(t *testing.T, ttl time.Duration) (*RedisInvoiceNumberRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	registry := NewRedisInvoiceNumberRegistryWithClient(client, "", ttl)
	t.Cleanup(func() { _ = registry.Close() })
	return registry, mr
}

func TestRedisInvoiceNumberRegistry_Reserve(t *testing.T) {
	registry, mr := newTestRedisRegistry(t, time.Hour)
	ctx := context.Background()

	t.Run("reserves a new number", func(t *testing.T) {
		ok, err := registry.Reserve(ctx, "INV-20260101-1001")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, mr.Exists(DefaultInvoiceNumberKeyPrefix+"INV-20260101-1001"))
	})

	t.Run("rejects a number already reserved", func(t *testing.T) {
		ok, err := registry.Reserve(ctx, "INV-20260101-1001")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("sets the reservation TTL", func(t *testing.T) {
		_, err := registry.Reserve(ctx, "INV-20260101-1002")
		require.NoError(t, err)
		assert.Equal(t, time.Hour, mr.TTL(DefaultInvoiceNumberKeyPrefix+"INV-20260101-1002"))
	})
}

func TestRedisInvoiceNumberRegistry_Expiry(t *testing.T) {
	registry, mr := newTestRedisRegistry(t, time.Minute)
	ctx := context.Background()

	ok, err := registry.Reserve(ctx, "INV-20260301-4242")
	require.NoError(t, err)
	require.True(t, ok)

	reserved, err := registry.IsReserved(ctx, "INV-20260301-4242")
	require.NoError(t, err)
	assert.True(t, reserved)

	mr.FastForward(2 * time.Minute)

	reserved, err = registry.IsReserved(ctx, "INV-20260301-4242")
	require.NoError(t, err)
	assert.False(t, reserved)

	ok, err = registry.Reserve(ctx, "INV-20260301-4242")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisInvoiceNumberRegistry_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	registry := NewRedisInvoiceNumberRegistryWithClient(client, "tenant-a:inv:", 0)
	defer registry.Close()

	_, err := registry.Reserve(context.Background(), "INV-20260101-3000")
	require.NoError(t, err)

	assert.True(t, mr.Exists("tenant-a:inv:INV-20260101-3000"))
	assert.Equal(t, tax.DefaultReservationTTL, mr.TTL("tenant-a:inv:INV-20260101-3000"))
}

func TestRedisInvoiceNumberRegistry_ServerDown(t *testing.T) {
	registry, mr := newTestRedisRegistry(t, time.Hour)
	mr.Close()

	ok, err := registry.Reserve(context.Background(), "INV-20260101-1001")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "failed to reserve invoice number")
	assert.Error(t, registry.Ping(context.Background()))
}

func TestRedisInvoiceNumberRegistry_Ping(t *testing.T) {
	registry, _ := newTestRedisRegistry(t, time.Hour)
	assert.NoError(t, registry.Ping(context.Background()))
}

func TestNewRedisInvoiceNumberRegistry(t *testing.T) {
	t.Run("connects to a running server", func(t *testing.T) {
		mr := miniredis.RunT(t)

		registry, err := NewRedisInvoiceNumberRegistry(RedisConfig{Addr: mr.Addr()}, time.Hour)
		require.NoError(t, err)
		defer registry.Close()

		assert.NotNil(t, registry.Client())
	})

	t.Run("fails when the server is unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		registry, err := NewRedisInvoiceNumberRegistry(RedisConfig{Addr: addr}, time.Hour)
		require.Error(t, err)
		assert.Nil(t, registry)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}
