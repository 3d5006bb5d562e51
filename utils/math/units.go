package math

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const bpsDenominator = 10000

// ParseUnits converts a whole-token decimal string ("0.01") into smallest
// units. Fractions finer than the token's decimals are rejected.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// MustParseUnits is ParseUnits for constants
func MustParseUnits(amount string, decimals uint8) *big.Int {
	v, err := ParseUnits(amount, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// ToDecimal converts smallest units into whole-token units
func ToDecimal(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// ApplySlippage returns amount × (10000 − bps) / 10000, rounded down
func ApplySlippage(amount *big.Int, bps uint32) *big.Int {
	if bps > bpsDenominator {
		bps = bpsDenominator
	}
	out := new(big.Int).Mul(amount, big.NewInt(int64(bpsDenominator-bps)))
	return out.Quo(out, big.NewInt(bpsDenominator))
}

// BpsOf returns amount × bps / 10000, rounded down
func BpsOf(amount *big.Int, bps uint32) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	return out.Quo(out, big.NewInt(bpsDenominator))
}

// Max returns the larger of a and b
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
