package sandwich

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/strategies"
	"github.com/michaelpento.lv/arbscanner/types"
)

// Detector prices sandwich candidates supplied by a SignalSource. The
// premium of each signal is the expected victim price impact. Without a
// source it reports nothing.
type Detector struct {
	pricer    *strategies.Pricer
	source    strategies.SignalSource
	threshold decimal.Decimal
	logger    *zap.Logger
}

// NewDetector creates a sandwich detector. source may be nil.
func NewDetector(pricer *strategies.Pricer, source strategies.SignalSource, threshold decimal.Decimal, logger *zap.Logger) *Detector {
	return &Detector{
		pricer:    pricer,
		source:    source,
		threshold: threshold,
		logger:    logger.With(zap.String("strategy", string(types.StrategySandwich))),
	}
}

func (d *Detector) Kind() types.Strategy {
	return types.StrategySandwich
}

func (d *Detector) Scan(ctx context.Context, c *chain.Context) ([]*types.Opportunity, error) {
	if d.source == nil {
		return nil, nil
	}

	session, err := d.pricer.Begin(ctx, c, types.StrategySandwich, types.SettlementUnimplemented, d.threshold)
	if err != nil {
		return nil, err
	}

	opps, err := strategies.ScanSignals(ctx, d.pricer, d.source, c, types.StrategySandwich, session)
	if err != nil {
		d.logger.Warn("Signal source failed", zap.String("chain", c.Key), zap.Error(err))
		return nil, err
	}
	return opps, nil
}
