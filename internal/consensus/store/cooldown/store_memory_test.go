package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knomee/internal/consensus/ports"
)

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, ports.CooldownFailedClaim, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, ports.CooldownFailedClaim, "alice", at))

	got, ok, err := store.Get(ctx, ports.CooldownFailedClaim, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, at, got)
}

func TestKindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	at := time.Now()
	require.NoError(t, store.Set(ctx, ports.CooldownDuplicateFlag, "alice", at))

	_, ok, err := store.Get(ctx, ports.CooldownFailedClaim, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(10 * 24 * time.Hour)
	require.NoError(t, store.Set(ctx, ports.CooldownFailedClaim, "alice", first))
	require.NoError(t, store.Set(ctx, ports.CooldownFailedClaim, "alice", second))

	got, ok, err := store.Get(ctx, ports.CooldownFailedClaim, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, second, got)
}
