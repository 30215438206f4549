package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

func TestDefaultParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"threshold below majority", func(p *Params) { p.LinkThreshold = 5000 }},
		{"threshold above 100%", func(p *Params) { p.PrimaryThreshold = 10001 }},
		{"slash above 100%", func(p *Params) { p.SybilSlashBps = 10001 }},
		{"zero min stake", func(p *Params) { p.MinStake = 0 }},
		{"zero multiplier", func(p *Params) { p.DuplicateStakeMultiplier = 0 }},
		{"zero expiry", func(p *Params) { p.ClaimExpiryDuration = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
		})
	}
}

func TestWeightOf(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, uint64(0), p.WeightOf(domain.TierGreyGhost))
	assert.Equal(t, uint64(0), p.WeightOf(domain.TierLinkedID))
	assert.Equal(t, uint64(1), p.WeightOf(domain.TierPrimaryID))
	assert.Equal(t, uint64(100), p.WeightOf(domain.TierOracle))
}

func TestGovernanceUpdate(t *testing.T) {
	authority := domain.Address("gov:authority")
	gov, err := New(authority, DefaultParams(), time.Now())
	require.NoError(t, err)

	updated := DefaultParams()
	updated.MinStake = 50

	t.Run("non-authority rejected", func(t *testing.T) {
		err := gov.Update(domain.Address("mallory"), updated)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
		assert.Equal(t, DefaultMinStake, gov.Snapshot().MinStake)
	})

	t.Run("invalid params rejected", func(t *testing.T) {
		bad := DefaultParams()
		bad.DuplicateThreshold = 100
		err := gov.Update(authority, bad)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})

	t.Run("authority update applies", func(t *testing.T) {
		require.NoError(t, gov.Update(authority, updated))
		assert.Equal(t, uint64(50), gov.Snapshot().MinStake)
	})
}

func TestSnapshotIsACopy(t *testing.T) {
	gov, err := New("gov:authority", DefaultParams(), time.Now())
	require.NoError(t, err)

	snap := gov.Snapshot()
	snap.MinStake = 9999
	assert.Equal(t, DefaultMinStake, gov.Snapshot().MinStake)
}
