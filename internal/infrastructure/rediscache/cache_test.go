package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"walletops/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageKey(t *testing.T) {
	assert.Equal(t, "walletops:history:v0:0xabc:start", pageKey("0", "0xabc:start"))
	assert.Equal(t, "walletops:history:v7:0xabc:c1", pageKey("7", "0xabc:c1"))
}

func TestNewCache_RequiresAddr(t *testing.T) {
	_, err := NewCache(Config{Addr: " "})
	assert.Error(t, err)
}

// TestCache_Redis runs against a live server when REDIS_TEST_ADDR is set.
func TestCache_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	cache, err := NewCache(Config{Addr: addr, TTL: 5 * time.Second})
	require.NoError(t, err)
	defer cache.Close()
	require.NoError(t, cache.Invalidate(ctx))

	cursor := "next"
	want := domain.HistoryPage{
		Cursor: &cursor,
		Total:  1,
		Items:  []domain.NormalizedTransaction{{TimestampISO: "2024-05-14T12:00:00.000Z", Type: domain.OperationSwap, TxHash: "0x1"}},
	}
	require.NoError(t, cache.Set(ctx, "0xabc:start", want))

	got, ok, err := cache.Get(ctx, "0xabc:start")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, cache.Invalidate(ctx))
	_, ok, err = cache.Get(ctx, "0xabc:start")
	require.NoError(t, err)
	assert.False(t, ok)
}
