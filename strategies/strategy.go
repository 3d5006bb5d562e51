package strategies

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/gas"
	"github.com/michaelpento.lv/arbscanner/quote"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
)

// Strategy scans one chain for priced opportunities. Scan returns every
// resolved combination, profitable or not; the error is reserved for
// failures that invalidate the whole scan.
type Strategy interface {
	Kind() types.Strategy
	Scan(ctx context.Context, c *chain.Context) ([]*types.Opportunity, error)
}

// ReferencePrice quotes one wrapped-native unit into the chain's stable
// token on the price fee tier, falling back when the quote misses.
func ReferencePrice(ctx context.Context, agg *quote.Aggregator, c *chain.Context, fallback decimal.Decimal) decimal.Decimal {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(c.Native.Decimals)), nil)
	leg := types.Leg{
		Venue:    dex.VenueUniswapV3,
		TokenIn:  c.Native,
		TokenOut: c.Stable,
		Fee:      c.PriceFeeTier,
	}

	res := agg.Quote(ctx, c, leg, one)
	if !res.Ok() {
		return fallback
	}
	return umath.ToDecimal(res.Amount, c.Stable.Decimals)
}

// Pricer turns quoted routes into opportunities
type Pricer struct {
	agg      *quote.Aggregator
	gas      *gas.Estimator
	calc     *utils.ProfitCalculator
	fallback decimal.Decimal
	logger   *zap.Logger
}

// NewPricer creates a pricer. fallback is the native price in USD used when
// the reference quote is unavailable.
func NewPricer(agg *quote.Aggregator, est *gas.Estimator, fallback decimal.Decimal, logger *zap.Logger) *Pricer {
	return &Pricer{
		agg:      agg,
		gas:      est,
		calc:     utils.NewProfitCalculator(),
		fallback: fallback,
		logger:   logger,
	}
}

// Aggregator returns the quote aggregator strategies route through
func (p *Pricer) Aggregator() *quote.Aggregator {
	return p.agg
}

// Session holds the chain readings shared by every combination of one scan
type Session struct {
	Chain          *chain.Context
	Strategy       types.Strategy
	Settlement     types.Settlement
	GasPrice       *big.Int
	GasUnits       uint64
	NativePriceUsd decimal.Decimal
	ThresholdUsd   decimal.Decimal

	calc *utils.ProfitCalculator
}

// Begin reads the gas price and reference price for one scan. A gas price
// failure is returned as ErrChainUnreachable.
func (p *Pricer) Begin(ctx context.Context, c *chain.Context, kind types.Strategy, settlement types.Settlement, threshold decimal.Decimal) (*Session, error) {
	gasPrice, err := p.gas.GasPrice(ctx, c.Key, c.Provider)
	if err != nil {
		return nil, err
	}

	return &Session{
		Chain:          c,
		Strategy:       kind,
		Settlement:     settlement,
		GasPrice:       gasPrice,
		GasUnits:       gas.UnitsFor(kind),
		NativePriceUsd: ReferencePrice(ctx, p.agg, c, p.fallback),
		ThresholdUsd:   threshold,
		calc:           p.calc,
	}, nil
}

// Opportunity prices a resolved round trip that starts and ends in the
// wrapped native token. premium is added to the quoted output and feeBps is
// charged on the input.
func (s *Session) Opportunity(route quote.RouteResult, premium *big.Int, feeBps uint32) *types.Opportunity {
	amounts := make([]*big.Int, len(route.Amounts))
	for i, a := range route.Amounts {
		amounts[i] = new(big.Int).Set(a)
	}
	if premium != nil && premium.Sign() > 0 {
		last := len(amounts) - 1
		amounts[last] = new(big.Int).Add(amounts[last], premium)
	}

	amountIn := amounts[0]
	profit := s.calc.Calculate(utils.ProfitInput{
		AmountIn:       amountIn,
		AmountOut:      amounts[len(amounts)-1],
		Decimals:       s.Chain.Native.Decimals,
		GasPrice:       s.GasPrice,
		GasUnits:       s.GasUnits,
		FeeBps:         feeBps,
		NativePriceUsd: s.NativePriceUsd,
		ThresholdUsd:   s.ThresholdUsd,
	})

	now := time.Now()
	desc := types.DescribeRoute(route.Legs)
	return &types.Opportunity{
		ID:             types.OpportunityID(s.Strategy, s.Chain.Key, desc, amountIn, now),
		Strategy:       s.Strategy,
		Settlement:     s.Settlement,
		Chain:          s.Chain.Key,
		Route:          desc,
		Legs:           append([]types.Leg(nil), route.Legs...),
		Amounts:        amounts,
		GrossProfit:    profit.Gross,
		GasUnits:       s.GasUnits,
		GasPrice:       new(big.Int).Set(s.GasPrice),
		GasCostNative:  profit.GasCostNative,
		ProtocolFee:    profit.ProtocolFee,
		NativePriceUsd: s.NativePriceUsd,
		GrossProfitUsd: profit.GrossUsd,
		GasCostUsd:     profit.GasCostUsd,
		ProtocolFeeUsd: profit.ProtocolFeeUsd,
		NetProfitUsd:   profit.NetUsd,
		ThresholdUsd:   s.ThresholdUsd,
		Profitable:     profit.Profitable,
		DiscoveredAt:   now,
	}
}
