package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
)

// Options sizes the buffers kept by a RunState
type Options struct {
	TradeLogLimit int
	HistoryLimit  int
	LatencyWindow int
}

// DefaultOptions keeps 50 trades, 50 historical opportunities and the last
// 20 scan latencies
func DefaultOptions() Options {
	return Options{TradeLogLimit: 50, HistoryLimit: 50, LatencyWindow: 20}
}

// Stats are the run-wide counters
type Stats struct {
	Ticks                  uint64
	Scans                  uint64
	OpportunitiesEvaluated uint64
	ProfitableFound        uint64
	TradesAttempted        uint64
	TradesSucceeded        uint64

	TotalProfitUsd decimal.Decimal
	TotalGasUsd    decimal.Decimal
	NetProfitUsd   decimal.Decimal
	WinRate        decimal.Decimal

	AvgScanLatency time.Duration
	ScansPerSecond float64
	CurrentChain   string
	LastScanAt     time.Time
}

// StrategyStats are the counters of one strategy
type StrategyStats struct {
	Enabled    bool
	Scans      uint64
	Evaluated  uint64
	Profitable uint64
	Errors     uint64
	LastError  string
}

// RunState is the observable state of one scanning run. All methods are
// safe for concurrent use.
type RunState struct {
	mu sync.RWMutex

	running   bool
	dryRun    bool
	startedAt time.Time
	gen       uint64

	stats      Stats
	latencies  []time.Duration
	window     int
	strategies map[types.Strategy]*StrategyStats
	chains     []chain.Status

	trades  *Ring[types.TradeLogEntry]
	history *Ring[*types.Opportunity]
	latest  []*types.Opportunity

	metrics *metrics.Metrics
}

// New creates an idle RunState. enabled seeds the strategy enable flags;
// strategies missing from it start disabled.
func New(opts Options, enabled map[types.Strategy]bool, m *metrics.Metrics) (*RunState, error) {
	if opts.LatencyWindow <= 0 {
		opts.LatencyWindow = DefaultOptions().LatencyWindow
	}

	trades, err := NewRing[types.TradeLogEntry](opts.TradeLogLimit)
	if err != nil {
		return nil, fmt.Errorf("trade log: %w", err)
	}
	history, err := NewRing[*types.Opportunity](opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("opportunity history: %w", err)
	}

	s := &RunState{
		window:     opts.LatencyWindow,
		strategies: make(map[types.Strategy]*StrategyStats, len(types.AllStrategies)),
		trades:     trades,
		history:    history,
		metrics:    m,
	}
	for _, kind := range types.AllStrategies {
		s.strategies[kind] = &StrategyStats{Enabled: enabled[kind]}
	}
	s.resetLocked()
	return s, nil
}

func (s *RunState) resetLocked() {
	s.stats = Stats{
		TotalProfitUsd: decimal.Zero,
		TotalGasUsd:    decimal.Zero,
		NetProfitUsd:   decimal.Zero,
		WinRate:        decimal.Zero,
	}
	s.latencies = s.latencies[:0]
	for _, st := range s.strategies {
		*st = StrategyStats{Enabled: st.Enabled}
	}
	s.chains = nil
	s.trades.Reset()
	s.history.Reset()
	s.latest = nil
}

// Start resets every counter and buffer, keeping strategy enable flags, and
// marks the run as started
func (s *RunState) Start(dryRun bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return types.ErrAlreadyRunning
	}
	s.resetLocked()
	s.gen++
	s.running = true
	s.dryRun = dryRun
	s.startedAt = time.Now()
	return nil
}

// Stop halts the run. It reports whether the run was active.
func (s *RunState) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.running
	s.running = false
	return was
}

func (s *RunState) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Generation identifies the current run. It changes on every Start.
func (s *RunState) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *RunState) DryRun() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dryRun
}

// RecordTick counts a tick that selected chainKey
func (s *RunState) RecordTick(chainKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordTickLocked(chainKey)
}

func (s *RunState) recordTickLocked(chainKey string) {
	s.stats.Ticks++
	s.stats.CurrentChain = chainKey
}

// RecordScan adds one chain scan latency to the rolling window and
// recomputes throughput as 1000 / average milliseconds
func (s *RunState) RecordScan(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordScanLocked(latency)
}

func (s *RunState) recordScanLocked(latency time.Duration) {
	s.stats.Scans++
	s.stats.LastScanAt = time.Now()

	s.latencies = append(s.latencies, latency)
	if len(s.latencies) > s.window {
		s.latencies = s.latencies[len(s.latencies)-s.window:]
	}

	var total time.Duration
	for _, l := range s.latencies {
		total += l
	}
	avg := total / time.Duration(len(s.latencies))
	s.stats.AvgScanLatency = avg

	ms := float64(avg) / float64(time.Millisecond)
	if ms > 0 {
		s.stats.ScansPerSecond = 1000 / ms
	} else {
		s.stats.ScansPerSecond = 0
	}
}

// RecordStrategyScan records one strategy's contribution to a tick
func (s *RunState) RecordStrategyScan(kind types.Strategy, opps []*types.Opportunity, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordStrategyScanLocked(kind, opps, err)
}

func (s *RunState) recordStrategyScanLocked(kind types.Strategy, opps []*types.Opportunity, err error) {
	st, ok := s.strategies[kind]
	if !ok {
		return
	}
	st.Scans++
	if err != nil {
		st.Errors++
		st.LastError = err.Error()
	}

	var profitable uint64
	for _, o := range opps {
		if o.Profitable {
			profitable++
		}
	}
	st.Evaluated += uint64(len(opps))
	st.Profitable += profitable
	s.stats.OpportunitiesEvaluated += uint64(len(opps))
	s.stats.ProfitableFound += profitable
}

// RecordExecution folds a finished attempt into the stats and appends its
// trade log entry
func (s *RunState) RecordExecution(entry types.TradeLogEntry, result *types.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TradesAttempted++
	if result.Success {
		s.stats.TradesSucceeded++
	}
	s.stats.TotalProfitUsd = s.stats.TotalProfitUsd.Add(result.ProfitUsd)
	s.stats.TotalGasUsd = s.stats.TotalGasUsd.Add(result.GasCostUsd)
	s.stats.NetProfitUsd = s.stats.NetProfitUsd.Add(result.NetProfitUsd)
	s.stats.WinRate = decimal.NewFromInt(int64(s.stats.TradesSucceeded)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.stats.TradesAttempted))).
		Round(2)

	s.trades.Push(entry)
}

// SetLatest replaces the opportunities of the latest tick
func (s *RunState) SetLatest(opps []*types.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = append([]*types.Opportunity(nil), opps...)
}

// PrependHistory pushes opps so that opps[0] ends up newest
func (s *RunState) PrependHistory(opps []*types.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prependHistoryLocked(opps)
}

func (s *RunState) prependHistoryLocked(opps []*types.Opportunity) {
	for i := len(opps) - 1; i >= 0; i-- {
		s.history.Push(opps[i])
	}
}

// UpdateChains replaces the chain connectivity snapshot
func (s *RunState) UpdateChains(statuses []chain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains = statuses
}

// SetStrategyEnabled flips a strategy on or off. Counters are untouched.
func (s *RunState) SetStrategyEnabled(kind types.Strategy, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.strategies[kind]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownStrategy, kind)
	}
	st.Enabled = enabled
	return nil
}

func (s *RunState) StrategyEnabled(kind types.Strategy) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.strategies[kind]
	return ok && st.Enabled
}

// Stats returns a copy of the run-wide counters
func (s *RunState) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Strategy returns a copy of one strategy's counters
func (s *RunState) Strategy(kind types.Strategy) (StrategyStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.strategies[kind]
	if !ok {
		return StrategyStats{}, false
	}
	return *st, true
}

// TradeLog returns the trade log newest first
func (s *RunState) TradeLog() []types.TradeLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trades.Items()
}

// History returns the opportunity history newest first
func (s *RunState) History() []*types.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Items()
}

// Latest returns the opportunities of the latest tick
func (s *RunState) Latest() []*types.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*types.Opportunity(nil), s.latest...)
}
