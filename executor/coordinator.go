package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
)

// Locker guards execution across processes
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Journal persists trade log entries outside the process
type Journal interface {
	Record(ctx context.Context, entry types.TradeLogEntry) error
}

// Options tune execution
type Options struct {
	MaxSlippageBps       uint32
	SafetyMargin         *big.Int
	SimulatedRealization decimal.Decimal
}

// Coordinator executes at most one opportunity at a time
type Coordinator struct {
	state   *state.RunState
	metrics *metrics.Metrics
	opts    Options
	calc    *utils.ProfitCalculator
	logger  *zap.Logger

	locker  Locker
	journal Journal

	busy atomic.Bool
}

// NewCoordinator creates a new execution coordinator
func NewCoordinator(s *state.RunState, m *metrics.Metrics, opts Options, logger *zap.Logger) *Coordinator {
	if opts.SafetyMargin == nil {
		opts.SafetyMargin = new(big.Int)
	}
	return &Coordinator{
		state:   s,
		metrics: m,
		opts:    opts,
		calc:    utils.NewProfitCalculator(),
		logger:  logger.With(zap.String("component", "executor")),
	}
}

// WithLocker adds a cross-process lock taken after the local one
func (c *Coordinator) WithLocker(l Locker) *Coordinator {
	c.locker = l
	return c
}

// WithJournal adds a best-effort trade journal
func (c *Coordinator) WithJournal(j Journal) *Coordinator {
	c.journal = j
	return c
}

// Busy reports whether an execution is in flight
func (c *Coordinator) Busy() bool {
	return c.busy.Load()
}

// Execute runs opp to completion. A concurrent call is rejected with
// ErrExecutionInFlight and leaves the stats untouched; every other outcome
// is reported through the result and recorded.
func (c *Coordinator) Execute(ctx context.Context, cc *chain.Context, opp *types.Opportunity) (*types.ExecutionResult, error) {
	if !c.busy.CompareAndSwap(false, true) {
		c.metrics.Execution.Rejected.Inc()
		return nil, types.ErrExecutionInFlight
	}
	defer c.busy.Store(false)

	// in-flight transactions are never abandoned on shutdown
	ctx = context.WithoutCancel(ctx)

	if c.locker != nil {
		ok, err := c.locker.TryLock(ctx)
		if err != nil || !ok {
			c.metrics.Execution.Rejected.Inc()
			if err == nil {
				err = errors.New("lock held by another process")
			}
			return nil, fmt.Errorf("%w: %v", types.ErrExecutionInFlight, err)
		}
		defer func() {
			if err := c.locker.Unlock(ctx); err != nil {
				c.logger.Warn("Failed to release execution lock", zap.Error(err))
			}
		}()
	}

	c.logger.Info("Executing opportunity",
		zap.String("id", opp.ID),
		zap.String("strategy", string(opp.Strategy)),
		zap.String("chain", opp.Chain),
		zap.String("route", opp.Route),
		zap.String("settlement", opp.Settlement.String()),
	)

	start := time.Now()
	var result *types.ExecutionResult
	switch opp.Settlement {
	case types.SettlementOnChain:
		result = c.executeOnChain(ctx, cc, opp)
	default:
		result = c.simulate(opp)
	}
	result.Duration = time.Since(start)

	c.record(ctx, opp, result)
	return result, nil
}

// simulate realizes a fraction of the modeled profit for strategies that
// have no settlement path. Gas is charged in full.
func (c *Coordinator) simulate(opp *types.Opportunity) *types.ExecutionResult {
	modeled := new(big.Int).Set(opp.GrossProfit)
	if opp.ProtocolFee != nil {
		modeled.Sub(modeled, opp.ProtocolFee)
	}
	realizedNative := decimal.NewFromBigInt(modeled, 0).Mul(c.opts.SimulatedRealization).BigInt()
	realizedUsd := opp.GrossProfitUsd.Sub(opp.ProtocolFeeUsd).Mul(c.opts.SimulatedRealization)

	gasCost := new(big.Int)
	if opp.GasCostNative != nil {
		gasCost.Set(opp.GasCostNative)
	}

	return &types.ExecutionResult{
		Outcome:       types.OutcomeSimulated,
		Success:       true,
		Simulated:     true,
		ProfitNative:  realizedNative,
		GasCostNative: gasCost,
		ProfitUsd:     realizedUsd,
		GasCostUsd:    opp.GasCostUsd,
		NetProfitUsd:  realizedUsd.Sub(opp.GasCostUsd),
	}
}

type run struct {
	result *types.ExecutionResult
	swaps  int
	gas    *big.Int
}

func (r *run) step(name string, receipt *chain.Receipt) {
	r.result.CompletedSteps = append(r.result.CompletedSteps, name)
	if receipt != nil {
		r.result.TxHashes = append(r.result.TxHashes, receipt.TxHash)
	}
}

// executeOnChain swaps leg by leg, waiting for each confirmation before the
// next step. The first failure aborts the rest; nothing is unwound.
func (c *Coordinator) executeOnChain(ctx context.Context, cc *chain.Context, opp *types.Opportunity) *types.ExecutionResult {
	p := cc.Provider
	amountIn := opp.AmountIn()
	r := &run{
		result: &types.ExecutionResult{
			Outcome:       types.OutcomeFailed,
			ProfitNative:  new(big.Int),
			GasCostNative: new(big.Int),
		},
		gas: new(big.Int),
	}

	held := cc.Native
	amount := new(big.Int).Set(amountIn)
	fail := func(err error) *types.ExecutionResult {
		res := r.result
		res.Err = err
		res.GasCostNative = r.gas
		res.GasCostUsd = c.calc.ToUsd(r.gas, cc.Native.Decimals, opp.NativePriceUsd)
		res.NetProfitUsd = res.GasCostUsd.Neg()
		if r.swaps > 0 {
			res.Outcome = types.OutcomePartial
			res.Stranded = &types.StrandedAsset{Token: held, Amount: amount}
		}
		return res
	}

	wrapped, err := p.TokenBalance(ctx, cc.Native.Address)
	if err != nil {
		return fail(err)
	}
	shortfall := new(big.Int)
	if wrapped.Cmp(amountIn) < 0 {
		shortfall.Sub(amountIn, wrapped)
	}

	// native covers the wrap shortfall plus gas headroom
	native, err := p.NativeBalance(ctx)
	if err != nil {
		return fail(err)
	}
	required := new(big.Int).Add(shortfall, c.opts.SafetyMargin)
	if native.Cmp(required) < 0 {
		return fail(fmt.Errorf("%w: have %s, need %s", types.ErrInsufficientBalance, native, required))
	}

	if shortfall.Sign() > 0 {
		receipt, err := p.Wrap(ctx, shortfall)
		if err != nil {
			return fail(fmt.Errorf("failed to wrap %s: %w", shortfall, err))
		}
		r.step("wrap", receipt)
	}

	before, err := p.TokenBalance(ctx, cc.Native.Address)
	if err != nil {
		return fail(err)
	}

	for i, leg := range opp.Legs {
		receipt, err := p.EnsureApproval(ctx, leg.TokenIn.Address, leg.Venue, amount)
		if err != nil {
			return fail(fmt.Errorf("failed to approve %s on %s: %w", leg.TokenIn.Symbol, leg.Venue, err))
		}
		if receipt != nil {
			r.step("approve:"+leg.TokenIn.Symbol, receipt)
		}

		outBefore, err := p.TokenBalance(ctx, leg.TokenOut.Address)
		if err != nil {
			return fail(err)
		}

		minOut := umath.ApplySlippage(opp.Amounts[i+1], c.opts.MaxSlippageBps)
		receipt, err = p.Swap(ctx, leg, amount, minOut)
		if err != nil {
			return fail(fmt.Errorf("swap %d %s->%s failed: %w", i+1, leg.TokenIn.Symbol, leg.TokenOut.Symbol, err))
		}
		r.swaps++
		r.gas.Add(r.gas, receipt.GasCost())
		c.metrics.Execution.GasUsed.Observe(float64(receipt.GasUsed))
		r.step(fmt.Sprintf("swap:%s>%s", leg.TokenIn.Symbol, leg.TokenOut.Symbol), receipt)

		outAfter, err := p.TokenBalance(ctx, leg.TokenOut.Address)
		held = leg.TokenOut
		if err != nil {
			amount = new(big.Int)
			return fail(err)
		}
		amount = new(big.Int).Sub(outAfter, outBefore)
	}

	after, err := p.TokenBalance(ctx, cc.Native.Address)
	if err != nil {
		return fail(err)
	}

	res := r.result
	res.Outcome = types.OutcomeCompleted
	res.Success = true
	res.ProfitNative = new(big.Int).Sub(after, before)
	res.GasCostNative = r.gas
	res.ProfitUsd = c.calc.ToUsd(res.ProfitNative, cc.Native.Decimals, opp.NativePriceUsd)
	res.GasCostUsd = c.calc.ToUsd(r.gas, cc.Native.Decimals, opp.NativePriceUsd)
	res.NetProfitUsd = res.ProfitUsd.Sub(res.GasCostUsd)
	return res
}

func (c *Coordinator) record(ctx context.Context, opp *types.Opportunity, result *types.ExecutionResult) {
	entry := types.TradeLogEntry{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Chain:        opp.Chain,
		Strategy:     opp.Strategy,
		Route:        opp.Route,
		AmountIn:     opp.AmountIn().String(),
		Status:       result.Status(),
		Outcome:      result.Outcome,
		ExpectedUsd:  opp.NetProfitUsd,
		NetProfitUsd: result.NetProfitUsd,
		GasCostUsd:   result.GasCostUsd,
		TxHashes:     hashStrings(result.TxHashes),
		Stranded:     result.Stranded,
		DurationMs:   result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}

	c.state.RecordExecution(entry, result)
	c.metrics.Execution.Attempts.WithLabelValues(string(opp.Strategy), string(result.Outcome)).Inc()
	c.metrics.Execution.ExecutionTime.Observe(result.Duration.Seconds())
	c.metrics.Execution.NetProfitUsd.Add(result.NetProfitUsd.InexactFloat64())

	fields := []zap.Field{
		zap.String("id", entry.ID),
		zap.String("opportunity", opp.ID),
		zap.String("chain", opp.Chain),
		zap.String("outcome", string(result.Outcome)),
		zap.String("net_usd", result.NetProfitUsd.StringFixed(4)),
		zap.Strings("tx_hashes", entry.TxHashes),
		zap.Duration("duration", result.Duration),
	}
	switch result.Outcome {
	case types.OutcomeCompleted, types.OutcomeSimulated:
		c.logger.Info("Execution finished", fields...)
	case types.OutcomePartial:
		fields = append(fields,
			zap.String("stranded_token", result.Stranded.Token.Symbol),
			zap.String("stranded_amount", result.Stranded.Amount.String()),
			zap.Error(result.Err),
		)
		c.logger.Error("Execution stopped midway", fields...)
	default:
		c.logger.Warn("Execution failed", append(fields, zap.Error(result.Err))...)
	}

	if c.journal != nil {
		if err := c.journal.Record(ctx, entry); err != nil {
			c.logger.Warn("Failed to journal trade", zap.String("id", entry.ID), zap.Error(err))
		}
	}
}

func hashStrings(hashes []common.Hash) []string {
	if len(hashes) == 0 {
		return nil
	}
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.Hex()
	}
	return out
}
