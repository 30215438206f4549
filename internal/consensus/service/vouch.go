package service

import (
	"context"
	"math"

	"knomee/internal/audit"
	"knomee/internal/consensus/metrics"
	"knomee/internal/consensus/models"
	"knomee/internal/token"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// Vouch casts a weighted, staked vote on an active claim and immediately runs
// the consensus check. This is the single external write path for voting.
func (s *Service) Vouch(ctx context.Context, claimID domain.ClaimID, voucher domain.Address, supporting bool, stake uint64) error {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	var expired bool
	err = s.transact(ctx, func(ctx context.Context) error {
		c, err := s.claims.Get(ctx, claimID)
		if err != nil {
			return err
		}
		if c.Status == models.StatusActive && c.ExpiredAt(s.clock.Now()) {
			// The claim's window has closed; expiry wins over a vote arriving
			// at the boundary. Finalize it, commit, and report the conflict
			// to the voter afterwards so the terminal state outlives the
			// rejected vote.
			expired = true
			return s.expireLocked(ctx, c, s.clock.Now())
		}
		return s.castVouch(ctx, c, voucher, supporting, stake, false)
	})
	if err != nil {
		return err
	}
	if expired {
		return dErrors.Newf(dErrors.CodeStateConflict, "claim %d expired", claimID)
	}
	return nil
}

// castVouch is the single internal write path for all votes, the opening
// self-vouch included. Callers hold the engine lock and pass the live claim.
//
// Ordering: every check precedes the custody debit, the debit precedes the
// local state writes, and the consensus check (with its registry calls) runs
// last, so a failure in any check moves no tokens and writes no state.
func (s *Service) castVouch(ctx context.Context, c *models.Claim, voucher domain.Address, supporting bool, stake uint64, selfVouch bool) error {
	params := s.gov.Snapshot()
	now := s.clock.Now()

	if c.Status != models.StatusActive {
		return dErrors.Newf(dErrors.CodeStateConflict, "claim %d is %s", c.ID, c.Status)
	}
	if !selfVouch && voucher == c.Subject {
		return dErrors.New(dErrors.CodeStateConflict, "cannot vouch on a claim about yourself")
	}
	dup, err := s.vouches.Has(ctx, c.ID, voucher)
	if err != nil {
		return err
	}
	if dup {
		return dErrors.Newf(dErrors.CodeStateConflict, "%s already vouched on claim %d", voucher, c.ID)
	}

	weight, err := s.weights.IdentityWeight(ctx, voucher)
	if err != nil {
		return err
	}
	if selfVouch && weight == 0 {
		// The claimant's own stake always counts at the base weight: a
		// NewPrimary subject is unverified by precondition, and a zero-weight
		// self-vouch would leave every such claim unable to open its own For
		// side.
		weight = 1
	}
	if weight == 0 {
		return dErrors.Newf(dErrors.CodeEligibility, "%s holds no identity weight", voucher)
	}
	if !selfVouch && stake < params.MinStake {
		return dErrors.Newf(dErrors.CodeEconomic, "stake %d below minimum %d", stake, params.MinStake)
	}
	balance, err := s.ledger.BalanceOf(ctx, voucher)
	if err != nil {
		return err
	}
	if balance < stake {
		return dErrors.Newf(dErrors.CodeEconomic, "balance %d below stake %d", balance, stake)
	}

	// The vouch weight and the updated tallies are computed with checked
	// arithmetic before any state moves; an overflow rejects the vouch whole.
	vouchWeight, err := mulChecked(weight, stake)
	if err != nil {
		return err
	}
	newFor, newAgainst := c.WeightFor, c.WeightAgainst
	if supporting {
		if newFor, err = addChecked(newFor, vouchWeight); err != nil {
			return err
		}
	} else {
		if newAgainst, err = addChecked(newAgainst, vouchWeight); err != nil {
			return err
		}
	}
	newStake, err := addChecked(c.TotalStake, stake)
	if err != nil {
		return err
	}

	// All checks passed. Debit into custody first: if the ledger refuses,
	// no local state has been written yet.
	if err := s.ledger.Transfer(ctx, voucher, token.CustodyAddress, stake); err != nil {
		return err
	}

	v := &models.Vouch{
		ClaimID:    c.ID,
		Voucher:    voucher,
		Supporting: supporting,
		Weight:     vouchWeight,
		Stake:      stake,
		VouchedAt:  now,
	}
	if err := s.vouches.Append(ctx, v); err != nil {
		return err
	}

	c.WeightFor = newFor
	c.WeightAgainst = newAgainst
	c.TotalStake = newStake
	c.VouchCount++
	if err := s.claims.Update(ctx, c); err != nil {
		return err
	}

	// Vouch statistics accrue to the claim's subject, not the voter.
	if err := s.registry.RecordVouch(ctx, c.Subject, stake); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.VouchesCast.WithLabelValues(metrics.SideLabel(supporting)).Inc()
		s.metrics.StakeLocked.Add(float64(stake))
	}
	s.logAudit(ctx, audit.Event{
		Action:     audit.ActionVouchCast,
		ClaimID:    c.ID,
		Actor:      voucher,
		Supporting: supporting,
		Stake:      stake,
		Weight:     v.Weight,
	})

	return s.checkAndResolve(ctx, c, now)
}

func mulChecked(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, dErrors.New(dErrors.CodeValidation, "arithmetic overflow")
	}
	return a * b, nil
}

func addChecked(a, b uint64) (uint64, error) {
	if b > math.MaxUint64-a {
		return 0, dErrors.New(dErrors.CodeValidation, "arithmetic overflow")
	}
	return a + b, nil
}
