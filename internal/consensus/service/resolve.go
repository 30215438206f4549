package service

import (
	"context"
	"time"

	"knomee/internal/audit"
	"knomee/internal/consensus/models"
	"knomee/internal/consensus/ports"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// checkAndResolve runs after every vouch. It finalizes the claim if its
// window closed or either side crossed the kind's threshold; otherwise the
// claim stays active. Callers hold the engine lock.
func (s *Service) checkAndResolve(ctx context.Context, c *models.Claim, now time.Time) error {
	if c.Resolved || c.Status != models.StatusActive {
		return nil
	}
	if c.ExpiredAt(now) {
		return s.expireLocked(ctx, c, now)
	}
	if c.TotalWeight() == 0 {
		return nil
	}
	// The opening self-vouch alone is always 100% support; a claim cannot
	// resolve until at least one other voter has weighed in.
	if c.VouchCount < 2 {
		return nil
	}

	approved, reached := c.ConsensusReached(s.gov.Snapshot())
	if !reached {
		return nil
	}
	return s.resolveLocked(ctx, c, approved, now)
}

// resolveLocked finalizes a claim by vote. Status and the write-once Resolved
// flag commit before the registry mutations, and the whole step runs inside
// the same engine-serialized operation as the vouch that triggered it, so no
// other vouch or resolution can interleave on this claim.
func (s *Service) resolveLocked(ctx context.Context, c *models.Claim, approved bool, now time.Time) error {
	supportBps := c.SupportBps()

	if approved {
		c.Status = models.StatusApproved
	} else {
		c.Status = models.StatusRejected
	}
	c.Resolved = true
	if err := s.claims.Update(ctx, c); err != nil {
		return err
	}

	if err := s.applyIdentityOutcome(ctx, c, approved, now); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ClaimsResolved.WithLabelValues(c.Status.String()).Inc()
		s.metrics.ResolutionSupportBps.Observe(float64(supportBps))
	}
	s.logAudit(ctx, audit.Event{
		Action:  audit.ActionClaimResolved,
		ClaimID: c.ID,
		Kind:    c.Kind.String(),
		Status:  c.Status.String(),
		Subject: c.Subject,
		Related: c.Related,
		Weight:  uint64(supportBps),
	})
	return nil
}

// applyIdentityOutcome performs the kind-specific registry mutation for a
// vote resolution.
func (s *Service) applyIdentityOutcome(ctx context.Context, c *models.Claim, approved bool, now time.Time) error {
	switch c.Kind {
	case models.KindLinkToPrimary:
		if approved {
			return s.registry.UpgradeToLinked(ctx, c.Subject, c.Related, c.Platform, c.Justification)
		}
		return s.cooldowns.Set(ctx, ports.CooldownFailedClaim, c.Subject, now)

	case models.KindNewPrimary:
		if approved {
			return s.registry.UpgradeToPrimary(ctx, c.Subject)
		}
		return s.cooldowns.Set(ctx, ports.CooldownFailedClaim, c.Subject, now)

	case models.KindDuplicateFlag:
		// Exoneration or conviction, the challenge marks come off.
		if err := s.registry.ClearChallenge(ctx, c.Subject); err != nil {
			return err
		}
		if err := s.registry.ClearChallenge(ctx, c.Related); err != nil {
			return err
		}
		if approved {
			// Symmetric punishment: the protocol cannot tell which of the
			// two is the original, so both fall back to unverified.
			if err := s.registry.DowngradeIdentity(ctx, c.Subject, domain.TierGreyGhost); err != nil {
				return err
			}
			return s.registry.DowngradeIdentity(ctx, c.Related, domain.TierGreyGhost)
		}
		// A failed accusation throttles the challenger, not the accused.
		return s.cooldowns.Set(ctx, ports.CooldownDuplicateFlag, c.Creator, now)
	}
	return nil
}

// ResolveExpired finalizes a claim whose window closed without consensus.
// Callable by anyone; the sweeper calls it on a timer. The returned approved
// flag is always false; expiry is never an approval path.
func (s *Service) ResolveExpired(ctx context.Context, claimID domain.ClaimID) (bool, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer done()

	return false, s.transact(ctx, func(ctx context.Context) error {
		c, err := s.claims.Get(ctx, claimID)
		if err != nil {
			return err
		}
		if c.Status != models.StatusActive {
			return dErrors.Newf(dErrors.CodeStateConflict, "claim %d already finalized as %s", c.ID, c.Status)
		}
		now := s.clock.Now()
		if !c.ExpiredAt(now) {
			return dErrors.Newf(dErrors.CodeTiming, "claim %d does not expire until %s", c.ID, c.ExpiresAt)
		}
		return s.expireLocked(ctx, c, now)
	})
}

// expireLocked transitions an active claim to Expired. The subject takes the
// failed-claim cooldown; a flagged pair is released from challenge and the
// challenger takes the duplicate-flag cooldown.
func (s *Service) expireLocked(ctx context.Context, c *models.Claim, now time.Time) error {
	c.Status = models.StatusExpired
	if err := s.claims.Update(ctx, c); err != nil {
		return err
	}

	if c.Kind == models.KindDuplicateFlag {
		if err := s.registry.ClearChallenge(ctx, c.Subject); err != nil {
			return err
		}
		if err := s.registry.ClearChallenge(ctx, c.Related); err != nil {
			return err
		}
		if err := s.cooldowns.Set(ctx, ports.CooldownDuplicateFlag, c.Creator, now); err != nil {
			return err
		}
	} else {
		if err := s.cooldowns.Set(ctx, ports.CooldownFailedClaim, c.Subject, now); err != nil {
			return err
		}
	}

	if s.metrics != nil {
		s.metrics.ClaimsResolved.WithLabelValues(c.Status.String()).Inc()
	}
	s.logAudit(ctx, audit.Event{
		Action:  audit.ActionClaimExpired,
		ClaimID: c.ID,
		Kind:    c.Kind.String(),
		Status:  c.Status.String(),
		Subject: c.Subject,
	})
	return nil
}
