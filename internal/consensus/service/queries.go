package service

import (
	"context"
	"fmt"

	"knomee/internal/consensus/models"
	"knomee/internal/governance"
	"knomee/pkg/domain"
)

// GetClaim returns a copy of the claim.
func (s *Service) GetClaim(ctx context.Context, claimID domain.ClaimID) (*models.Claim, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return s.claims.Get(ctx, claimID)
}

// GetVouches returns the claim's vouches in cast order.
func (s *Service) GetVouches(ctx context.Context, claimID domain.ClaimID) ([]*models.Vouch, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	if _, err := s.claims.Get(ctx, claimID); err != nil {
		return nil, err
	}
	return s.vouches.ListByClaim(ctx, claimID)
}

// ClaimsBy returns the IDs of claims created by addr, in creation order.
func (s *Service) ClaimsBy(ctx context.Context, addr domain.Address) ([]domain.ClaimID, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return s.claims.ByCreator(ctx, addr)
}

// ActiveClaimIDs returns the IDs of all claims still open for voting, for the
// expiry sweeper.
func (s *Service) ActiveClaimIDs(ctx context.Context) ([]domain.ClaimID, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return s.claims.ActiveIDs(ctx)
}

// CurrentConsensus returns the weighted support on each side of a claim, in
// basis points. Both sides read zero while no weight has been cast.
func (s *Service) CurrentConsensus(ctx context.Context, claimID domain.ClaimID) (forBps, againstBps uint16, err error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer done()

	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return 0, 0, err
	}
	if c.TotalWeight() == 0 {
		return 0, 0, nil
	}
	forBps = c.SupportBps()
	return forBps, governance.BasisPoints - forBps, nil
}

// CanVouch reports whether the voucher would currently pass every vouch
// eligibility check on the claim, with the first failing check as the reason.
// Advisory only: the answer can go stale the moment the lock is released.
func (s *Service) CanVouch(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (bool, string, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return false, "", err
	}
	defer done()

	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return false, "", err
	}
	if c.Status != models.StatusActive {
		return false, fmt.Sprintf("claim is %s", c.Status), nil
	}
	if c.ExpiredAt(s.clock.Now()) {
		return false, "voting window closed", nil
	}
	if voucher == c.Subject {
		return false, "voucher is the claim subject", nil
	}
	dup, err := s.vouches.Has(ctx, claimID, voucher)
	if err != nil {
		return false, "", err
	}
	if dup {
		return false, "already vouched on this claim", nil
	}
	weight, err := s.weights.IdentityWeight(ctx, voucher)
	if err != nil {
		return false, "", err
	}
	if weight == 0 {
		return false, "voucher holds no identity weight", nil
	}
	balance, err := s.ledger.BalanceOf(ctx, voucher)
	if err != nil {
		return false, "", err
	}
	if min := s.gov.Snapshot().MinStake; balance < min {
		return false, fmt.Sprintf("balance %d below minimum stake %d", balance, min), nil
	}
	return true, "", nil
}
