package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

// Address is a canonical 20-byte checksum-cased account/token address.
// It is a thin wrapper over go-ethereum's common.Address so that checksum
// encoding (EIP-55) and the hex grammar check come from a single,
// well-tested implementation rather than a hand-rolled one.
type Address common.Address

// NormalizeAddress validates s as a 20-byte hex address and returns its
// checksum-cased canonical form. Every public Token method normalizes its
// address-typed arguments through this single guard before use, rather
// than wrapping every method individually: the cross-cutting concern lives
// in one place, called explicitly at the boundary.
func NormalizeAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return Address{}, validationErrorf("NormalizeAddress", s, "malformed address")
	}
	return Address(common.HexToAddress(s)), nil
}

// String returns the checksum-cased hex representation.
func (a Address) String() string {
	return common.Address(a).Hex()
}
