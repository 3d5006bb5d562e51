package liquidation

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/strategies"
	"github.com/michaelpento.lv/arbscanner/types"
)

// Hunter prices liquidatable positions reported by a SignalSource. Each
// signal's legs unwind the seized collateral back into the native token and
// its premium is the liquidation bonus.
type Hunter struct {
	pricer    *strategies.Pricer
	source    strategies.SignalSource
	threshold decimal.Decimal
	logger    *zap.Logger
}

// NewHunter creates a liquidation hunter. source may be nil.
func NewHunter(pricer *strategies.Pricer, source strategies.SignalSource, threshold decimal.Decimal, logger *zap.Logger) *Hunter {
	return &Hunter{
		pricer:    pricer,
		source:    source,
		threshold: threshold,
		logger:    logger.With(zap.String("strategy", string(types.StrategyLiquidation))),
	}
}

func (h *Hunter) Kind() types.Strategy {
	return types.StrategyLiquidation
}

func (h *Hunter) Scan(ctx context.Context, c *chain.Context) ([]*types.Opportunity, error) {
	if h.source == nil {
		return nil, nil
	}

	session, err := h.pricer.Begin(ctx, c, types.StrategyLiquidation, types.SettlementUnimplemented, h.threshold)
	if err != nil {
		return nil, err
	}

	opps, err := strategies.ScanSignals(ctx, h.pricer, h.source, c, types.StrategyLiquidation, session)
	if err != nil {
		h.logger.Warn("Signal source failed", zap.String("chain", c.Key), zap.Error(err))
		return nil, err
	}

	h.logger.Debug("Scan complete", zap.String("chain", c.Key), zap.Int("opportunities", len(opps)))
	return opps, nil
}
