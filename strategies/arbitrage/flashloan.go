package arbitrage

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/flashloan"
	"github.com/michaelpento.lv/arbscanner/strategies"
	"github.com/michaelpento.lv/arbscanner/types"
)

// FlashLoan prices fee-tier gaps at borrowed scale. There is no on-chain
// settlement path, so its opportunities are only ever simulated.
type FlashLoan struct {
	pricer    *strategies.Pricer
	loans     *flashloan.Manager
	threshold decimal.Decimal
	logger    *zap.Logger
}

// NewFlashLoan creates a flash-loan scale scanner
func NewFlashLoan(pricer *strategies.Pricer, loans *flashloan.Manager, threshold decimal.Decimal, logger *zap.Logger) *FlashLoan {
	return &FlashLoan{
		pricer:    pricer,
		loans:     loans,
		threshold: threshold,
		logger:    logger.With(zap.String("strategy", string(types.StrategyFlashLoan))),
	}
}

func (s *FlashLoan) Kind() types.Strategy {
	return types.StrategyFlashLoan
}

func (s *FlashLoan) Scan(ctx context.Context, c *chain.Context) ([]*types.Opportunity, error) {
	session, err := s.pricer.Begin(ctx, c, types.StrategyFlashLoan, types.SettlementUnimplemented, s.threshold)
	if err != nil {
		return nil, err
	}

	agg := s.pricer.Aggregator()
	var opps []*types.Opportunity
	for _, amount := range c.FlashLoanAmounts {
		loan, err := s.loans.Quote(c.Native.Address, amount)
		if err != nil {
			return nil, err
		}

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
				opps = append(opps, session.Opportunity(route, nil, loan.FeeBps))
			}
		}
	}

	s.logger.Debug("Scan complete",
		zap.String("chain", c.Key),
		zap.Int("opportunities", len(opps)),
	)
	return opps, nil
}
