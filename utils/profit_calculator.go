package utils

import (
	"math/big"

	"github.com/shopspring/decimal"

	umath "github.com/michaelpento.lv/arbscanner/utils/math"
)

// ProfitInput describes a priced round trip. Amounts are in smallest units
// of the same asset, which is valued at NativePriceUsd per whole unit.
type ProfitInput struct {
	AmountIn       *big.Int
	AmountOut      *big.Int
	Decimals       uint8
	GasPrice       *big.Int
	GasUnits       uint64
	FeeBps         uint32
	NativePriceUsd decimal.Decimal
	ThresholdUsd   decimal.Decimal
}

// Profit is the breakdown of a round trip. NetUsd always equals
// GrossUsd − GasCostUsd − ProtocolFeeUsd.
type Profit struct {
	Gross         *big.Int
	GasCostNative *big.Int
	ProtocolFee   *big.Int

	GrossUsd       decimal.Decimal
	GasCostUsd     decimal.Decimal
	ProtocolFeeUsd decimal.Decimal
	NetUsd         decimal.Decimal
	Profitable     bool
}

// ProfitCalculator is the single place where profitability is decided
type ProfitCalculator struct{}

// NewProfitCalculator creates a new profit calculator
func NewProfitCalculator() *ProfitCalculator {
	return &ProfitCalculator{}
}

// Calculate prices a round trip. Integer arithmetic is kept until the
// conversion to USD.
func (p *ProfitCalculator) Calculate(in ProfitInput) Profit {
	gross := new(big.Int).Sub(in.AmountOut, in.AmountIn)

	gasCost := new(big.Int)
	if in.GasPrice != nil {
		gasCost.Mul(in.GasPrice, new(big.Int).SetUint64(in.GasUnits))
	}
	fee := umath.BpsOf(in.AmountIn, in.FeeBps)

	out := p.Assess(
		p.ToUsd(gross, in.Decimals, in.NativePriceUsd),
		p.ToUsd(gasCost, in.Decimals, in.NativePriceUsd),
		p.ToUsd(fee, in.Decimals, in.NativePriceUsd),
		in.ThresholdUsd,
	)
	out.Gross = gross
	out.GasCostNative = gasCost
	out.ProtocolFee = fee
	return out
}

// Assess applies the net profit identity and the threshold to USD values
func (p *ProfitCalculator) Assess(grossUsd, gasCostUsd, protocolFeeUsd, thresholdUsd decimal.Decimal) Profit {
	net := grossUsd.Sub(gasCostUsd).Sub(protocolFeeUsd)
	return Profit{
		GrossUsd:       grossUsd,
		GasCostUsd:     gasCostUsd,
		ProtocolFeeUsd: protocolFeeUsd,
		NetUsd:         net,
		Profitable:     net.GreaterThanOrEqual(thresholdUsd),
	}
}

// ToUsd values a smallest-unit amount at priceUsd per whole unit
func (p *ProfitCalculator) ToUsd(amount *big.Int, decimals uint8, priceUsd decimal.Decimal) decimal.Decimal {
	return umath.ToDecimal(amount, decimals).Mul(priceUsd)
}
