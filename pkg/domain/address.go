package domain

// Address identifies a participant. The protocol treats addresses as opaque
// strings supplied by the surrounding chain or gateway; it never derives or
// verifies key material itself.
type Address string

// ZeroAddress is the absent-address value, used where a claim has no related
// party (NewPrimary claims).
const ZeroAddress Address = ""

// String returns the string representation of the address.
func (a Address) String() string {
	return string(a)
}

// IsZero returns true if the address is empty.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}
