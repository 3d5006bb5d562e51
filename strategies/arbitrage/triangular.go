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

// Triangular walks the chain's predefined multi-hop routes on Uniswap V3
type Triangular struct {
	pricer    *strategies.Pricer
	threshold decimal.Decimal
	logger    *zap.Logger
}

// NewTriangular creates a triangular route scanner
func NewTriangular(pricer *strategies.Pricer, threshold decimal.Decimal, logger *zap.Logger) *Triangular {
	return &Triangular{
		pricer:    pricer,
		threshold: threshold,
		logger:    logger.With(zap.String("strategy", string(types.StrategyTriangular))),
	}
}

func (s *Triangular) Kind() types.Strategy {
	return types.StrategyTriangular
}

func routeLegs(route chain.Route) []types.Leg {
	legs := make([]types.Leg, 0, len(route.Fees))
	for i, fee := range route.Fees {
		legs = append(legs, types.Leg{
			Venue:    dex.VenueUniswapV3,
			TokenIn:  route.Tokens[i],
			TokenOut: route.Tokens[i+1],
			Fee:      fee,
		})
	}
	return legs
}

func (s *Triangular) Scan(ctx context.Context, c *chain.Context) ([]*types.Opportunity, error) {
	if len(c.TriangularRoutes) == 0 {
		return nil, nil
	}

	session, err := s.pricer.Begin(ctx, c, types.StrategyTriangular, types.SettlementOnChain, s.threshold)
	if err != nil {
		return nil, err
	}

	agg := s.pricer.Aggregator()
	var opps []*types.Opportunity
	for _, amount := range c.TradeAmounts {
		for _, r := range c.TriangularRoutes {
			if err := ctx.Err(); err != nil {
				return opps, err
			}

			route := agg.Route(ctx, c, routeLegs(r), amount)
			if !route.Ok() {
				continue
			}
			opps = append(opps, session.Opportunity(route, nil, 0))
		}
	}

	s.logger.Debug("Scan complete",
		zap.String("chain", c.Key),
		zap.Int("routes", len(c.TriangularRoutes)),
		zap.Int("opportunities", len(opps)),
	)
	return opps, nil
}
