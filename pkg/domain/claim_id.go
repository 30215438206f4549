package domain

import "strconv"

// ClaimID identifies a claim. IDs are assigned monotonically by the claim
// store and never reused, so they double as a creation-order index.
type ClaimID uint64

// ParseClaimID validates and returns a ClaimID from its decimal form.
func ParseClaimID(s string) (ClaimID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ClaimID(n), nil
}

// String returns the decimal representation of the claim ID.
func (id ClaimID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
