package ledger

import "math/big"

// AssetsToShares converts an asset amount to shares at the given
// total-shares/total-assets ratio, floor-dividing: floor(a*TS/TA).
// Returns zero when TA is zero (bootstrap case, handled by MintAssets).
func AssetsToShares(assets, totalShares, totalAssets *big.Int) *big.Int {
	if totalAssets.Sign() == 0 {
		return new(big.Int)
	}
	n := new(big.Int).Mul(assets, totalShares)
	return n.Div(n, totalAssets)
}

// SharesToAssets converts a share amount to assets at the given
// total-shares/total-assets ratio, floor-dividing: floor(s*TA/TS).
// Returns zero when TS is zero.
func SharesToAssets(shares, totalShares, totalAssets *big.Int) *big.Int {
	if totalShares.Sign() == 0 {
		return new(big.Int)
	}
	n := new(big.Int).Mul(shares, totalAssets)
	return n.Div(n, totalShares)
}

// ParseDecimal decodes a base-10 string into a non-negative big.Int.
// Unparseable or empty strings decode to zero, matching the source
// system's "null/unparseable strings decode to 0" storage convention —
// persisted integers are decimal text to sidestep a fixed database
// integer width, not to carry sign or fractional information.
func ParseDecimal(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return new(big.Int)
	}
	return n
}

// FormatDecimal encodes a big.Int as base-10 text for storage. A nil value
// formats as "0".
func FormatDecimal(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.Text(10)
}
