package handler

import (
	"time"

	"knomee/internal/consensus/models"
	"knomee/pkg/domain"
)

type createLinkRequest struct {
	Subject       string `json:"subject"`
	Primary       string `json:"primary"`
	Platform      string `json:"platform"`
	Justification string `json:"justification"`
	Stake         uint64 `json:"stake"`
}

type createPrimaryRequest struct {
	Subject       string `json:"subject"`
	Justification string `json:"justification"`
	Stake         uint64 `json:"stake"`
}

type createDuplicateRequest struct {
	Challenger string `json:"challenger"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	Evidence   string `json:"evidence"`
	Stake      uint64 `json:"stake"`
}

type vouchRequest struct {
	Voucher    string `json:"voucher"`
	Supporting bool   `json:"supporting"`
	Stake      uint64 `json:"stake"`
}

type settleRequest struct {
	Voucher string `json:"voucher"`
}

type createdResponse struct {
	ClaimID domain.ClaimID `json:"claim_id"`
}

type claimResponse struct {
	ID            domain.ClaimID `json:"id"`
	Kind          string         `json:"kind"`
	Status        string         `json:"status"`
	Creator       string         `json:"creator"`
	Subject       string         `json:"subject"`
	Related       string         `json:"related,omitempty"`
	Platform      string         `json:"platform,omitempty"`
	Justification string         `json:"justification,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
	WeightFor     uint64         `json:"weight_for"`
	WeightAgainst uint64         `json:"weight_against"`
	TotalStake    uint64         `json:"total_stake"`
	TotalSlashed  uint64         `json:"total_slashed"`
	VouchCount    int            `json:"vouch_count"`
	Resolved      bool           `json:"resolved"`
	EarlyAdopter  bool           `json:"early_adopter"`
}

func toClaimResponse(c *models.Claim) claimResponse {
	return claimResponse{
		ID:            c.ID,
		Kind:          c.Kind.String(),
		Status:        c.Status.String(),
		Creator:       c.Creator.String(),
		Subject:       c.Subject.String(),
		Related:       c.Related.String(),
		Platform:      c.Platform,
		Justification: c.Justification,
		CreatedAt:     c.CreatedAt,
		ExpiresAt:     c.ExpiresAt,
		WeightFor:     c.WeightFor,
		WeightAgainst: c.WeightAgainst,
		TotalStake:    c.TotalStake,
		TotalSlashed:  c.TotalSlashed,
		VouchCount:    c.VouchCount,
		Resolved:      c.Resolved,
		EarlyAdopter:  c.EarlyAdopter,
	}
}

type vouchResponse struct {
	ClaimID       domain.ClaimID `json:"claim_id"`
	Voucher       string         `json:"voucher"`
	Supporting    bool           `json:"supporting"`
	Weight        uint64         `json:"weight"`
	Stake         uint64         `json:"stake"`
	VouchedAt     time.Time      `json:"vouched_at"`
	RewardSettled bool           `json:"reward_settled"`
	SettledAmount uint64         `json:"settled_amount"`
}

func toVouchResponses(vs []*models.Vouch) []vouchResponse {
	out := make([]vouchResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, vouchResponse{
			ClaimID:       v.ClaimID,
			Voucher:       v.Voucher.String(),
			Supporting:    v.Supporting,
			Weight:        v.Weight,
			Stake:         v.Stake,
			VouchedAt:     v.VouchedAt,
			RewardSettled: v.RewardSettled,
			SettledAmount: v.SettledAmount,
		})
	}
	return out
}

type consensusResponse struct {
	ForBps     uint16 `json:"for_bps"`
	AgainstBps uint16 `json:"against_bps"`
}

type eligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

type expireResponse struct {
	Expired bool `json:"expired"`
}

type settleResponse struct {
	Amount uint64 `json:"amount"`
}

type claimsResponse struct {
	ClaimIDs []domain.ClaimID `json:"claim_ids"`
}
