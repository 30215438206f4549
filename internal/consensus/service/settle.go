package service

import (
	"context"

	"knomee/internal/audit"
	"knomee/internal/consensus/models"
	"knomee/internal/governance"
	"knomee/internal/token"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// Settle pays out one voucher's outcome on a finalized claim, exactly once.
// Correct voters get their stake back plus a pro-rata share of the slashed
// pool, minted; incorrect voters are slashed and refunded the remainder;
// vouchers on an expired claim get a full refund. Returns the total amount
// transferred to the voucher.
func (s *Service) Settle(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (uint64, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	var refund, reward, slashed uint64
	err = s.transact(ctx, func(ctx context.Context) error {
		c, err := s.claims.Get(ctx, claimID)
		if err != nil {
			return err
		}
		if c.Status == models.StatusActive {
			return dErrors.Newf(dErrors.CodeTiming, "claim %d is not yet resolved", claimID)
		}

		v, err := s.vouches.Get(ctx, claimID, voucher)
		if err != nil {
			return err
		}
		if v.RewardSettled {
			return dErrors.Newf(dErrors.CodeStateConflict, "vouch by %s on claim %d already settled", voucher, claimID)
		}

		if c.Status == models.StatusExpired {
			// No consensus was reached; the protocol holds no verdict to pay
			// out or punish, so the stake comes back whole.
			refund = v.Stake
		} else {
			approved := c.Status == models.StatusApproved
			params := s.gov.Snapshot()
			if v.WonWith(approved) {
				refund = v.Stake
				reward = s.rewardShare(ctx, c, v, approved, params)
			} else {
				slashed = slashAmount(v.Stake, c.Kind.SlashRate(params, approved))
				refund = v.Stake - slashed
			}
		}

		// Fail closed: the settled flag commits before any token moves, so a
		// reentrant or retried settle sees it and stops.
		v.RewardSettled = true
		v.SettledAmount = refund + reward
		if err := s.vouches.Update(ctx, v); err != nil {
			return err
		}
		if slashed > 0 {
			c.TotalSlashed += slashed
			if err := s.claims.Update(ctx, c); err != nil {
				return err
			}
		}

		if slashed > 0 {
			if err := s.ledger.Burn(ctx, token.CustodyAddress, slashed); err != nil {
				return err
			}
		}
		if refund > 0 {
			if err := s.ledger.Transfer(ctx, token.CustodyAddress, voucher, refund); err != nil {
				return err
			}
		}
		if reward > 0 {
			if err := s.ledger.Mint(ctx, voucher, reward); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.Settlements.Inc()
		if slashed > 0 {
			s.metrics.StakeSlashed.Add(float64(slashed))
		}
		if reward > 0 {
			s.metrics.RewardsMinted.Add(float64(reward))
		}
	}
	if slashed > 0 {
		s.logAudit(ctx, audit.Event{
			Action:  audit.ActionStakeSlashed,
			ClaimID: claimID,
			Actor:   voucher,
			Amount:  slashed,
		})
	}
	s.logAudit(ctx, audit.Event{
		Action:  audit.ActionStakeSettled,
		ClaimID: claimID,
		Actor:   voucher,
		Amount:  refund + reward,
	})
	return refund + reward, nil
}

// rewardShare computes the voucher's pro-rata share of the claim's slashed
// pool. The pool and the winning side's stake total are recomputed from the
// immutable vouch records, so every voucher's share is independent of
// settlement order.
func (s *Service) rewardShare(ctx context.Context, c *models.Claim, v *models.Vouch, approved bool, params governance.Params) uint64 {
	all, err := s.vouches.ListByClaim(ctx, c.ID)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "reward pool computation failed", "claim_id", c.ID, "error", err)
		}
		return 0
	}

	slashRate := c.Kind.SlashRate(params, approved)
	var pool, correctStake uint64
	for _, w := range all {
		if w.WonWith(approved) {
			correctStake += w.Stake
		} else {
			pool += slashAmount(w.Stake, slashRate)
		}
	}
	if correctStake == 0 {
		// Cannot happen on a resolved claim: the winning side crossed a
		// majority threshold, so it holds weight and therefore stake.
		return 0
	}

	share := pool * v.Stake / correctStake
	if c.EarlyAdopter {
		share *= governance.EarlyAdopterMultiplier
	}
	return share
}

// slashAmount truncates toward zero, like every bps computation in the
// consensus path.
func slashAmount(stake uint64, rateBps uint16) uint64 {
	return stake * uint64(rateBps) / governance.BasisPoints
}
