package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/evaluator"
	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/strategies"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
)

// Executor runs a selected opportunity
type Executor interface {
	Execute(ctx context.Context, c *chain.Context, opp *types.Opportunity) (*types.ExecutionResult, error)
	Busy() bool
}

// Options control the tick loop
type Options struct {
	Interval     time.Duration
	RefreshEvery int
	AutoExecute  bool
}

// Scheduler scans one live chain per tick in round-robin order
type Scheduler struct {
	registry   *chain.Registry
	strategies []strategies.Strategy
	evaluator  *evaluator.Evaluator
	executor   Executor
	state      *state.RunState
	metrics    *metrics.Metrics
	opts       Options
	logger     *zap.Logger

	mu    sync.Mutex
	rr    uint64
	ticks uint64
}

// New creates a scheduler. strats are scanned and merged in the given order.
func New(
	registry *chain.Registry,
	strats []strategies.Strategy,
	eval *evaluator.Evaluator,
	exec Executor,
	s *state.RunState,
	m *metrics.Metrics,
	opts Options,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		registry:   registry,
		strategies: strats,
		evaluator:  eval,
		executor:   exec,
		state:      s,
		metrics:    m,
		opts:       opts,
		logger:     logger.With(zap.String("component", "scheduler")),
	}
}

// Run ticks until ctx is cancelled. Every tick runs in its own goroutine so
// a long execution never delays the timer.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	s.logger.Info("Scheduler started", zap.Duration("interval", s.opts.Interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Tick(ctx)
			}()
		}
	}
}

// Tick performs one scan cycle
func (s *Scheduler) Tick(ctx context.Context) {
	rec, running := s.state.BeginTick()
	if !running {
		s.metrics.Scan.TicksSkipped.WithLabelValues("stopped").Inc()
		return
	}
	if s.executor.Busy() {
		s.metrics.Scan.TicksSkipped.WithLabelValues("busy").Inc()
		s.logger.Debug("Execution in flight, skipping tick")
		return
	}

	live := s.registry.Live()
	if len(live) == 0 {
		s.metrics.Scan.TicksSkipped.WithLabelValues("no_live_chains").Inc()
		s.logger.Debug("No live chains")
		return
	}

	s.mu.Lock()
	c := live[s.rr%uint64(len(live))]
	s.rr++
	s.ticks++
	refresh := s.opts.RefreshEvery > 0 && s.ticks%uint64(s.opts.RefreshEvery) == 0
	s.mu.Unlock()

	s.metrics.Scan.Ticks.Inc()
	rec.RecordTick(c.Key)

	start := time.Now()
	merged := s.scan(ctx, rec, c)
	latency := time.Since(start)
	s.metrics.Scan.ScanLatency.Observe(latency.Seconds())

	// the run was stopped or restarted while scanning
	if !rec.Current() {
		s.metrics.Scan.TicksSkipped.WithLabelValues("stale").Inc()
		s.logger.Debug("Run changed during scan, dropping tick", zap.String("chain", c.Key))
	} else {
		rec.RecordScan(latency)
		best := s.evaluator.EvaluateInto(rec, merged)
		if best != nil && s.opts.AutoExecute {
			s.execute(ctx, c, best)
		}
	}

	// every chain is re-read so unreachable or underfunded chains can rejoin
	if refresh {
		s.registry.Refresh(ctx)
		s.state.UpdateChains(s.registry.Statuses())
	}
}

// scan fans out to every enabled strategy and merges the results in
// strategy order
func (s *Scheduler) scan(ctx context.Context, rec state.TickRecorder, c *chain.Context) []*types.Opportunity {
	enabled := make([]strategies.Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		if s.state.StrategyEnabled(st.Kind()) {
			enabled = append(enabled, st)
		}
	}

	results := make([][]*types.Opportunity, len(enabled))
	errs := make([]error, len(enabled))

	var g errgroup.Group
	for i, st := range enabled {
		i, st := i, st
		g.Go(func() error {
			results[i], errs[i] = st.Scan(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	var merged []*types.Opportunity
	unreachable := false
	for i, st := range enabled {
		kind := st.Kind()
		rec.RecordStrategyScan(kind, results[i], errs[i])
		s.metrics.Scan.StrategyScans.WithLabelValues(string(kind)).Inc()

		if err := errs[i]; err != nil {
			s.metrics.Scan.StrategyErrors.WithLabelValues(string(kind)).Inc()
			s.logger.Warn("Strategy scan failed",
				zap.String("strategy", string(kind)),
				zap.String("chain", c.Key),
				zap.Error(err),
			)
			if errors.Is(err, types.ErrChainUnreachable) && !unreachable {
				unreachable = true
				s.registry.MarkUnreachable(c.Key, err)
			}
		}

		profitable := 0
		for _, o := range results[i] {
			if o.Profitable {
				profitable++
			}
		}
		s.metrics.Scan.Opportunities.WithLabelValues(string(kind)).Add(float64(len(results[i])))
		s.metrics.Scan.Profitable.WithLabelValues(string(kind)).Add(float64(profitable))
		merged = append(merged, results[i]...)
	}

	if unreachable {
		s.state.UpdateChains(s.registry.Statuses())
	}
	return merged
}

func (s *Scheduler) execute(ctx context.Context, c *chain.Context, best *types.Opportunity) {
	if s.state.DryRun() {
		s.logger.Info("Dry run, skipping execution",
			zap.String("id", best.ID),
			zap.String("strategy", string(best.Strategy)),
			zap.String("chain", best.Chain),
			zap.String("route", best.Route),
			zap.String("amount_in", best.AmountIn().String()),
			zap.String("net_usd", best.NetProfitUsd.StringFixed(4)),
		)
		return
	}

	if _, err := s.executor.Execute(ctx, c, best); err != nil {
		if errors.Is(err, types.ErrExecutionInFlight) {
			s.logger.Debug("Execution already in flight", zap.String("id", best.ID))
			return
		}
		s.logger.Error("Failed to execute opportunity", zap.String("id", best.ID), zap.Error(err))
	}
}
