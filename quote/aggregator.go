package quote

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
)

// Result is the outcome of one quote. A failed quote carries an error
// wrapping types.ErrQuoteUnavailable and no amount.
type Result struct {
	Amount *big.Int
	Err    error
}

// Ok reports whether the quote produced an amount
func (r Result) Ok() bool {
	return r.Err == nil && r.Amount != nil
}

// RouteResult is the outcome of chaining quotes along legs. Amounts holds
// the input followed by every leg's output up to the first miss.
type RouteResult struct {
	Legs    []types.Leg
	Amounts []*big.Int
	Err     error
}

// Ok reports whether every leg resolved
func (r RouteResult) Ok() bool {
	return r.Err == nil && len(r.Amounts) == len(r.Legs)+1
}

// Output returns the final amount of a resolved route
func (r RouteResult) Output() *big.Int {
	if !r.Ok() {
		return nil
	}
	return r.Amounts[len(r.Amounts)-1]
}

// Aggregator wraps chain quoters with per-call failure isolation. It keeps
// no state besides metrics and never retries.
type Aggregator struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAggregator creates a new quote aggregator
func NewAggregator(m *metrics.Metrics, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		metrics: m,
		logger:  logger.With(zap.String("component", "quote-aggregator")),
	}
}

// Quote asks the chain for a single leg quote
func (a *Aggregator) Quote(ctx context.Context, c *chain.Context, leg types.Leg, amountIn *big.Int) Result {
	start := time.Now()
	out, err := c.Provider.Quote(ctx, leg, amountIn)
	a.metrics.Scan.QuoteLatency.WithLabelValues(leg.Venue).Observe(time.Since(start).Seconds())

	if err == nil && (out == nil || out.Sign() <= 0) {
		err = fmt.Errorf("empty output")
	}
	if err != nil {
		a.metrics.Scan.QuoteMisses.WithLabelValues(c.Key, leg.Venue).Inc()
		a.logger.Debug("Quote unavailable",
			zap.String("chain", c.Key),
			zap.String("venue", leg.Venue),
			zap.String("token_in", leg.TokenIn.Symbol),
			zap.String("token_out", leg.TokenOut.Symbol),
			zap.Uint32("fee", leg.Fee),
			zap.Error(err),
		)
		return Result{Err: fmt.Errorf("%w: %s %s->%s: %v", types.ErrQuoteUnavailable, leg.Venue, leg.TokenIn.Symbol, leg.TokenOut.Symbol, err)}
	}

	return Result{Amount: out}
}

// Route chains quotes along legs, feeding each output into the next leg,
// and stops at the first miss
func (a *Aggregator) Route(ctx context.Context, c *chain.Context, legs []types.Leg, amountIn *big.Int) RouteResult {
	res := RouteResult{
		Legs:    legs,
		Amounts: make([]*big.Int, 0, len(legs)+1),
	}
	res.Amounts = append(res.Amounts, amountIn)

	amount := amountIn
	for _, leg := range legs {
		q := a.Quote(ctx, c, leg, amount)
		if !q.Ok() {
			res.Err = q.Err
			return res
		}
		amount = q.Amount
		res.Amounts = append(res.Amounts, amount)
	}

	return res
}
