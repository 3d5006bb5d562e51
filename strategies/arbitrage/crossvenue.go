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

// CrossVenue compares Uniswap V3 pools against SushiSwap V2 in both
// directions
type CrossVenue struct {
	pricer    *strategies.Pricer
	threshold decimal.Decimal
	logger    *zap.Logger
}

// NewCrossVenue creates a cross-venue scanner
func NewCrossVenue(pricer *strategies.Pricer, threshold decimal.Decimal, logger *zap.Logger) *CrossVenue {
	return &CrossVenue{
		pricer:    pricer,
		threshold: threshold,
		logger:    logger.With(zap.String("strategy", string(types.StrategyCrossVenue))),
	}
}

func (s *CrossVenue) Kind() types.Strategy {
	return types.StrategyCrossVenue
}

func (s *CrossVenue) Scan(ctx context.Context, c *chain.Context) ([]*types.Opportunity, error) {
	if !c.HasVenue(dex.VenueSushiswapV2) {
		return nil, nil
	}

	session, err := s.pricer.Begin(ctx, c, types.StrategyCrossVenue, types.SettlementOnChain, s.threshold)
	if err != nil {
		return nil, err
	}

	agg := s.pricer.Aggregator()
	var opps []*types.Opportunity
	for _, amount := range c.TradeAmounts {
		for _, fee := range c.FeeTiers {
			directions := [][]types.Leg{
				{
					{Venue: dex.VenueUniswapV3, TokenIn: c.Native, TokenOut: c.Stable, Fee: fee},
					{Venue: dex.VenueSushiswapV2, TokenIn: c.Stable, TokenOut: c.Native},
				},
				{
					{Venue: dex.VenueSushiswapV2, TokenIn: c.Native, TokenOut: c.Stable},
					{Venue: dex.VenueUniswapV3, TokenIn: c.Stable, TokenOut: c.Native, Fee: fee},
				},
			}
			for _, legs := range directions {
				if err := ctx.Err(); err != nil {
					return opps, err
				}

				route := agg.Route(ctx, c, legs, amount)
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
