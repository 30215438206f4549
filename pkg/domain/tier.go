package domain

import "fmt"

// Tier is an address's verification level. Tiers order strictly upward:
// an unverified GreyGhost can become a LinkedID (secondary of a Primary) or a
// PrimaryID (verified unique human); Oracles are high-trust verifiers promoted
// out of the PrimaryID pool.
type Tier uint8

const (
	TierGreyGhost Tier = iota
	TierLinkedID
	TierPrimaryID
	TierOracle
)

// ParseTier validates and returns a Tier from its wire form.
func ParseTier(v uint8) (Tier, error) {
	t := Tier(v)
	if t > TierOracle {
		return 0, fmt.Errorf("unknown identity tier: %d", v)
	}
	return t, nil
}

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierGreyGhost:
		return "grey_ghost"
	case TierLinkedID:
		return "linked_id"
	case TierPrimaryID:
		return "primary_id"
	case TierOracle:
		return "oracle"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// IsPrimary reports whether the tier counts as a verified Primary.
// Oracles remain Primaries for eligibility purposes.
func (t Tier) IsPrimary() bool {
	return t == TierPrimaryID || t == TierOracle
}

// CanVote reports whether the tier carries voting rights. GreyGhosts and
// LinkedIDs cannot vote; their identity weight is zero.
func (t Tier) CanVote() bool {
	return t.IsPrimary()
}

// Verified reports whether the tier represents any verified state, including
// the secondary LinkedID tier.
func (t Tier) Verified() bool {
	return t != TierGreyGhost
}
