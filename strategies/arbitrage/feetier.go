package arbitrage

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/strategies"
	"github.com/michaelpento.lv/arbscanner/types"
)

// feePairLegs builds native -> stable on tier a, stable -> native on tier b
func feePairLegs(c *chain.Context, a, b uint32) []types.Leg {
	return []types.Leg{
		{Venue: dex.VenueUniswapV3, TokenIn: c.Native, TokenOut: c.Stable, Fee: a},
		{Venue: dex.VenueUniswapV3, TokenIn: c.Stable, TokenOut: c.Native, Fee: b},
	}
}

// FeeTier looks for price gaps between fee tiers of the same pair
type FeeTier struct {
	pricer    *strategies.Pricer
	threshold decimal.Decimal
	logger    *zap.Logger
}

// NewFeeTier creates a fee-tier scanner
func NewFeeTier(pricer *strategies.Pricer, threshold decimal.Decimal, logger *zap.Logger) *FeeTier {
	return &FeeTier{
		pricer:    pricer,
		threshold: threshold,
		logger:    logger.With(zap.String("strategy", string(types.StrategyFeeTier))),
	}
}

func (s *FeeTier) Kind() types.Strategy {
	return types.StrategyFeeTier
}

// Scan tries every trade amount against every ordered pair of distinct fee
// tiers
func (s *FeeTier) Scan(ctx context.Context, c *chain.Context) ([]*types.Opportunity, error) {
	session, err := s.pricer.Begin(ctx, c, types.StrategyFeeTier, types.SettlementOnChain, s.threshold)
	if err != nil {
		return nil, err
	}

	agg := s.pricer.Aggregator()
	var opps []*types.Opportunity
	for _, amount := range c.TradeAmounts {
		for _, a := range c.FeeTiers {
			for _, b := range c.FeeTiers {
				if a == b {
					continue
				}
				if err := ctx.Err(); err != nil {
					return opps, err
				}

				route := agg.Route(ctx, c, feePairLegs(c, a, b), amount)
				if !route.Ok() {
					continue
				}
				opps = append(opps, session.Opportunity(route, nil, 0))
			}
		}
	}

	s.logger.Debug("Scan complete",
		zap.String("chain", c.Key),
		zap.Int("opportunities", len(opps)),
	)
	return opps, nil
}
