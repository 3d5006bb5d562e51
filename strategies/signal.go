package strategies

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/types"
)

// Signal is an externally sourced trade candidate. Legs must start and end
// in the chain's wrapped native token. Premium is the native amount the
// source expects on top of pool quotes, such as a victim's price impact or a
// liquidation bonus.
type Signal struct {
	Legs     []types.Leg
	AmountIn *big.Int
	Premium  *big.Int
	Source   string
}

// SignalSource feeds candidates to the signal-driven strategies
type SignalSource interface {
	Signals(ctx context.Context, c *chain.Context) ([]Signal, error)
}

// StaticSignals serves a fixed candidate list per chain key
type StaticSignals map[string][]Signal

func (s StaticSignals) Signals(_ context.Context, c *chain.Context) ([]Signal, error) {
	return s[c.Key], nil
}

// ScanSignals prices every candidate the source offers for the chain.
// Candidates whose route does not resolve are dropped.
func ScanSignals(ctx context.Context, p *Pricer, source SignalSource, c *chain.Context, kind types.Strategy, session *Session) ([]*types.Opportunity, error) {
	signals, err := source.Signals(ctx, c)
	if err != nil {
		return nil, err
	}

	var opps []*types.Opportunity
	for _, sig := range signals {
		if len(sig.Legs) == 0 || sig.AmountIn == nil || sig.AmountIn.Sign() <= 0 {
			continue
		}
		if sig.Legs[0].TokenIn.Address != c.Native.Address || sig.Legs[len(sig.Legs)-1].TokenOut.Address != c.Native.Address {
			p.logger.Debug("Skipping signal outside native round trip",
				zap.String("chain", c.Key),
				zap.String("strategy", string(kind)),
				zap.String("source", sig.Source),
			)
			continue
		}

		route := p.agg.Route(ctx, c, sig.Legs, sig.AmountIn)
		if !route.Ok() {
			continue
		}
		opps = append(opps, session.Opportunity(route, sig.Premium, 0))
	}
	return opps, nil
}
