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

// CreateLinkClaim proposes linking subject under primary on the named
// platform. The subject stakes on their own claim; the stake is the opening
// self-vouch.
func (s *Service) CreateLinkClaim(ctx context.Context, subject, primary domain.Address, platform, justification string, stake uint64) (domain.ClaimID, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	if subject.IsZero() || primary.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "subject and primary addresses are required")
	}
	if subject == primary {
		return 0, dErrors.New(dErrors.CodeValidation, "cannot link an address to itself")
	}
	if platform == "" || justification == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "platform and justification are required")
	}

	isPrimary, err := s.registry.IsPrimary(ctx, primary)
	if err != nil {
		return 0, err
	}
	if !isPrimary {
		return 0, dErrors.Newf(dErrors.CodeEligibility, "link target %s is not a primary", primary)
	}
	tier, err := s.registry.GetTier(ctx, subject)
	if err != nil {
		return 0, err
	}
	if tier.Verified() {
		return 0, dErrors.Newf(dErrors.CodeEligibility, "subject %s already holds a verified tier", subject)
	}
	if err := s.checkCooldown(ctx, ports.CooldownFailedClaim, subject, models.KindLinkToPrimary); err != nil {
		return 0, err
	}

	return s.createClaim(ctx, &models.Claim{
		Kind:          models.KindLinkToPrimary,
		Creator:       subject,
		Subject:       subject,
		Related:       primary,
		Platform:      platform,
		Justification: justification,
	}, stake)
}

// CreatePrimaryClaim proposes promoting subject to verified-unique-human.
func (s *Service) CreatePrimaryClaim(ctx context.Context, subject domain.Address, justification string, stake uint64) (domain.ClaimID, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	if subject.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "subject address is required")
	}
	if justification == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "justification is required")
	}

	tier, err := s.registry.GetTier(ctx, subject)
	if err != nil {
		return 0, err
	}
	if tier.Verified() {
		return 0, dErrors.Newf(dErrors.CodeEligibility, "subject %s already holds a verified tier", subject)
	}
	if err := s.checkCooldown(ctx, ports.CooldownFailedClaim, subject, models.KindNewPrimary); err != nil {
		return 0, err
	}

	return s.createClaim(ctx, &models.Claim{
		Kind:          models.KindNewPrimary,
		Creator:       subject,
		Subject:       subject,
		Justification: justification,
	}, stake)
}

// CreateDuplicateFlag accuses addr1 and addr2 of being the same human. Both
// are marked under challenge before the claim becomes queryable.
func (s *Service) CreateDuplicateFlag(ctx context.Context, challenger, addr1, addr2 domain.Address, evidence string, stake uint64) (domain.ClaimID, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	if challenger.IsZero() || addr1.IsZero() || addr2.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "challenger and both challenged addresses are required")
	}
	if addr1 == addr2 {
		return 0, dErrors.New(dErrors.CodeValidation, "cannot flag an address as a duplicate of itself")
	}
	if evidence == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "evidence is required")
	}

	for _, addr := range []domain.Address{addr1, addr2} {
		isPrimary, err := s.registry.IsPrimary(ctx, addr)
		if err != nil {
			return 0, err
		}
		if !isPrimary {
			return 0, dErrors.Newf(dErrors.CodeEligibility, "%s is not a primary", addr)
		}
		challenged, err := s.registry.IsUnderChallenge(ctx, addr)
		if err != nil {
			return 0, err
		}
		if challenged {
			return 0, dErrors.Newf(dErrors.CodeEligibility, "%s is already under challenge", addr)
		}
	}
	if err := s.checkCooldown(ctx, ports.CooldownDuplicateFlag, challenger, models.KindDuplicateFlag); err != nil {
		return 0, err
	}

	return s.createClaim(ctx, &models.Claim{
		Kind:          models.KindDuplicateFlag,
		Creator:       challenger,
		Subject:       addr1,
		Related:       addr2,
		Justification: evidence,
	}, stake)
}

// createClaim finishes creation once kind-specific preconditions passed:
// stake check, custody debit, claim persistence, challenge marks, and the
// opening self-vouch through the single vouch write path.
func (s *Service) createClaim(ctx context.Context, c *models.Claim, stake uint64) (domain.ClaimID, error) {
	params := s.gov.Snapshot()
	now := s.clock.Now()

	if required := c.Kind.RequiredStake(params); stake < required {
		return 0, dErrors.Newf(dErrors.CodeEconomic, "stake %d below required %d for %s", stake, required, c.Kind)
	}
	balance, err := s.ledger.BalanceOf(ctx, c.Creator)
	if err != nil {
		return 0, err
	}
	if balance < stake {
		return 0, dErrors.Newf(dErrors.CodeEconomic, "creator balance %d below stake %d", balance, stake)
	}

	c.Status = models.StatusActive
	c.CreatedAt = now
	c.ExpiresAt = now.Add(params.ClaimExpiryDuration)
	c.EarlyAdopter = now.Sub(s.gov.CreatedAt()) < params.EarlyAdopterPeriod

	var id domain.ClaimID
	err = s.transact(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.claims.Create(ctx, c)
		if err != nil {
			return err
		}

		// Both flagged identities go under challenge before the claim can
		// take votes; a second flag against either address must already see
		// it.
		if c.Kind == models.KindDuplicateFlag {
			if err := s.registry.MarkUnderChallenge(ctx, c.Subject, id); err != nil {
				return err
			}
			if err := s.registry.MarkUnderChallenge(ctx, c.Related, id); err != nil {
				return err
			}
		}

		return s.castVouch(ctx, c, c.Creator, true, stake, true)
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.ClaimsCreated.WithLabelValues(c.Kind.String()).Inc()
	}
	s.logAudit(ctx, audit.Event{
		Action:  audit.ActionClaimCreated,
		ClaimID: id,
		Kind:    c.Kind.String(),
		Actor:   c.Creator,
		Subject: c.Subject,
		Related: c.Related,
		Stake:   stake,
	})
	return id, nil
}

// checkCooldown classifies an active cooldown window as CodeCooldown with the
// remaining time in the message.
func (s *Service) checkCooldown(ctx context.Context, kind ports.CooldownKind, addr domain.Address, claimKind models.ClaimKind) error {
	last, ok, err := s.cooldowns.Get(ctx, kind, addr)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	cooldown := claimKind.Cooldown(s.gov.Snapshot())
	if remaining := cooldown - s.clock.Now().Sub(last); remaining > 0 {
		return dErrors.Newf(dErrors.CodeCooldown, "%s is in cooldown for another %s", addr, remaining.Round(time.Second))
	}
	return nil
}
