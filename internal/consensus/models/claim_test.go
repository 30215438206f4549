package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knomee/internal/governance"
)

func TestParseClaimKind(t *testing.T) {
	for _, k := range []ClaimKind{KindLinkToPrimary, KindNewPrimary, KindDuplicateFlag} {
		parsed, err := ParseClaimKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseClaimKind("bogus")
	assert.Error(t, err)
}

func TestKindThresholds(t *testing.T) {
	p := governance.DefaultParams()
	assert.Equal(t, uint16(5100), KindLinkToPrimary.Threshold(p))
	assert.Equal(t, uint16(6700), KindNewPrimary.Threshold(p))
	assert.Equal(t, uint16(8000), KindDuplicateFlag.Threshold(p))
}

func TestKindSlashRates(t *testing.T) {
	p := governance.DefaultParams()
	assert.Equal(t, uint16(1000), KindLinkToPrimary.SlashRate(p, false))
	assert.Equal(t, uint16(3000), KindNewPrimary.SlashRate(p, true))
	assert.Equal(t, uint16(5000), KindDuplicateFlag.SlashRate(p, false))

	// An approved duplicate flag is a confirmed Sybil: full slash.
	assert.Equal(t, uint16(10000), KindDuplicateFlag.SlashRate(p, true))
}

func TestKindRequiredStake(t *testing.T) {
	p := governance.DefaultParams()
	assert.Equal(t, uint64(10), KindLinkToPrimary.RequiredStake(p))
	assert.Equal(t, uint64(30), KindNewPrimary.RequiredStake(p))
	assert.Equal(t, uint64(100), KindDuplicateFlag.RequiredStake(p))
}

func TestSupportBpsTruncates(t *testing.T) {
	c := &Claim{WeightFor: 2, WeightAgainst: 1}
	// 2/3 is 6666.66... bps; integer division truncates, it never rounds up.
	assert.Equal(t, uint16(6666), c.SupportBps())

	empty := &Claim{}
	assert.Equal(t, uint16(0), empty.SupportBps())
}

func TestConsensusReachedBoundaries(t *testing.T) {
	p := governance.DefaultParams()

	t.Run("exactly at threshold approves", func(t *testing.T) {
		// 67/100 = 6700 bps, exactly the NewPrimary threshold.
		c := &Claim{Kind: KindNewPrimary, Status: StatusActive, WeightFor: 67, WeightAgainst: 33}
		approved, reached := c.ConsensusReached(p)
		assert.True(t, reached)
		assert.True(t, approved)
	})

	t.Run("one below threshold stays open", func(t *testing.T) {
		// 6699 bps support and 3301 bps against: neither side crossed.
		c := &Claim{Kind: KindNewPrimary, Status: StatusActive, WeightFor: 6699, WeightAgainst: 3301}
		_, reached := c.ConsensusReached(p)
		assert.False(t, reached)
	})

	t.Run("rejection crosses on the against side", func(t *testing.T) {
		// support = 3300 bps, so 10000-3300 = 6700 >= threshold: rejected.
		c := &Claim{Kind: KindNewPrimary, Status: StatusActive, WeightFor: 33, WeightAgainst: 67}
		approved, reached := c.ConsensusReached(p)
		assert.True(t, reached)
		assert.False(t, approved)
	})

	t.Run("truncation favors neither side at 2/3", func(t *testing.T) {
		// 2 for, 1 against: 6666 < 6700 and 3334 < 6700.
		c := &Claim{Kind: KindNewPrimary, Status: StatusActive, WeightFor: 2, WeightAgainst: 1}
		_, reached := c.ConsensusReached(p)
		assert.False(t, reached)
	})

	t.Run("zero weight never resolves", func(t *testing.T) {
		c := &Claim{Kind: KindLinkToPrimary, Status: StatusActive}
		_, reached := c.ConsensusReached(p)
		assert.False(t, reached)
	})

	t.Run("terminal claim never re-evaluates", func(t *testing.T) {
		c := &Claim{Kind: KindLinkToPrimary, Status: StatusApproved, WeightFor: 100}
		_, reached := c.ConsensusReached(p)
		assert.False(t, reached)
	})
}

func TestExpiredAtBoundary(t *testing.T) {
	deadline := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	c := &Claim{ExpiresAt: deadline}

	assert.False(t, c.ExpiredAt(deadline.Add(-time.Nanosecond)))
	// Expiry wins at the exact boundary.
	assert.True(t, c.ExpiredAt(deadline))
	assert.True(t, c.ExpiredAt(deadline.Add(time.Hour)))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusActive.Terminal())
	for _, st := range []ClaimStatus{StatusApproved, StatusRejected, StatusExpired} {
		assert.True(t, st.Terminal(), "status %s", st)
	}
}

func TestVouchWonWith(t *testing.T) {
	supporter := &Vouch{Supporting: true}
	opponent := &Vouch{Supporting: false}

	assert.True(t, supporter.WonWith(true))
	assert.False(t, supporter.WonWith(false))
	assert.False(t, opponent.WonWith(true))
	assert.True(t, opponent.WonWith(false))
}
