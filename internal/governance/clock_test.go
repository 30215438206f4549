package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

func TestFixedClockAdvance(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFixedClock(t0)

	assert.Equal(t, t0, clock.Now())
	clock.Advance(48 * time.Hour)
	assert.Equal(t, t0.Add(48*time.Hour), clock.Now())
}

func TestWarpAuthority(t *testing.T) {
	authority := domain.Address("gov:authority")
	clock := NewClock(authority)

	before := clock.Now()
	require.NoError(t, clock.Warp(authority, 7*24*time.Hour))
	assert.True(t, clock.Now().Sub(before) >= 7*24*time.Hour)

	err := clock.Warp(domain.Address("mallory"), time.Hour)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))

	err = clock.Warp(authority, -time.Hour)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestZeroAuthorityCannotWarp(t *testing.T) {
	clock := NewClock(domain.ZeroAddress)
	err := clock.Warp(domain.ZeroAddress, time.Hour)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestRenounceFreezesOffset(t *testing.T) {
	authority := domain.Address("gov:authority")
	clock := NewClock(authority)

	require.NoError(t, clock.Warp(authority, time.Hour))
	require.NoError(t, clock.Renounce(authority))

	err := clock.Warp(authority, time.Hour)
	assert.True(t, dErrors.Is(err, dErrors.CodeStateConflict))

	err = clock.Renounce(authority)
	assert.True(t, dErrors.Is(err, dErrors.CodeStateConflict))
}
