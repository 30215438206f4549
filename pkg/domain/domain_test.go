package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaimID(t *testing.T) {
	id, err := ParseClaimID("42")
	require.NoError(t, err)
	assert.Equal(t, ClaimID(42), id)
	assert.Equal(t, "42", id.String())

	_, err = ParseClaimID("not-a-number")
	assert.Error(t, err)

	_, err = ParseClaimID("-1")
	assert.Error(t, err)
}

func TestAddressZero(t *testing.T) {
	assert.True(t, ZeroAddress.IsZero())
	assert.False(t, Address("alice").IsZero())
	assert.Equal(t, "alice", Address("alice").String())
}

func TestParseTier(t *testing.T) {
	for v := uint8(0); v <= 3; v++ {
		tier, err := ParseTier(v)
		require.NoError(t, err)
		assert.Equal(t, Tier(v), tier)
	}
	_, err := ParseTier(4)
	assert.Error(t, err)
}

func TestTierSemantics(t *testing.T) {
	assert.False(t, TierGreyGhost.Verified())
	assert.True(t, TierLinkedID.Verified())
	assert.True(t, TierPrimaryID.Verified())

	assert.False(t, TierGreyGhost.CanVote())
	assert.False(t, TierLinkedID.CanVote())
	assert.True(t, TierPrimaryID.CanVote())
	assert.True(t, TierOracle.CanVote())

	assert.True(t, TierOracle.IsPrimary())
	assert.False(t, TierLinkedID.IsPrimary())
}
