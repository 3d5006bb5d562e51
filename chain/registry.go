package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	umath "github.com/michaelpento.lv/arbscanner/utils/math"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
)

// Status is the connectivity and balance snapshot of one chain
type Status struct {
	Key         string
	Name        string
	Connected   bool
	Balance     *big.Int
	LastChecked time.Time
	LastError   string
}

// Registry tracks which chains are live. A chain is live when its last
// balance read succeeded and the balance is at least the minimum.
type Registry struct {
	chains     []*Context
	minBalance *big.Int
	metrics    *metrics.Metrics
	logger     *zap.Logger

	mu     sync.RWMutex
	status map[string]*Status
}

// NewRegistry creates a registry over chains in scheduling order
func NewRegistry(chains []*Context, minBalance *big.Int, m *metrics.Metrics, logger *zap.Logger) *Registry {
	status := make(map[string]*Status, len(chains))
	for _, c := range chains {
		status[c.Key] = &Status{Key: c.Key, Name: c.Name, Balance: new(big.Int)}
	}
	if minBalance == nil {
		minBalance = new(big.Int)
	}
	return &Registry{
		chains:     chains,
		minBalance: minBalance,
		metrics:    m,
		logger:     logger.With(zap.String("component", "chain-registry")),
		status:     status,
	}
}

// Chains returns every configured chain
func (r *Registry) Chains() []*Context {
	return r.chains
}

// Get returns a chain by key
func (r *Registry) Get(key string) (*Context, bool) {
	for _, c := range r.chains {
		if c.Key == key {
			return c, true
		}
	}
	return nil, false
}

// Refresh re-reads native balances for the given chains, or all chains when
// none are named. Failures mark the chain disconnected.
func (r *Registry) Refresh(ctx context.Context, keys ...string) {
	targets := r.chains
	if len(keys) > 0 {
		targets = nil
		for _, key := range keys {
			if c, ok := r.Get(key); ok {
				targets = append(targets, c)
			}
		}
	}

	for _, c := range targets {
		balance, err := c.Provider.NativeBalance(ctx)
		if err != nil {
			r.MarkUnreachable(c.Key, err)
			continue
		}

		r.mu.Lock()
		s := r.status[c.Key]
		s.Connected = true
		s.Balance = balance
		s.LastChecked = time.Now()
		s.LastError = ""
		live := balance.Cmp(r.minBalance) >= 0
		r.mu.Unlock()

		r.metrics.Chain.Balance.WithLabelValues(c.Key).Set(umath.ToDecimal(balance, c.Native.Decimals).InexactFloat64())
		r.metrics.Chain.Live.WithLabelValues(c.Key).Set(boolGauge(live))
		r.logger.Debug("Refreshed chain balance",
			zap.String("chain", c.Key),
			zap.String("balance", balance.String()),
			zap.Bool("live", live),
		)
	}
}

// MarkUnreachable takes a chain out of rotation until its next successful refresh
func (r *Registry) MarkUnreachable(key string, err error) {
	r.mu.Lock()
	s, ok := r.status[key]
	if ok {
		s.Connected = false
		s.LastChecked = time.Now()
		if err != nil {
			s.LastError = err.Error()
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.metrics.Chain.Live.WithLabelValues(key).Set(0)
	r.metrics.Chain.RPCErrors.WithLabelValues(key).Inc()
	r.logger.Warn("Chain unreachable", zap.String("chain", key), zap.Error(err))
}

// Live returns connected, funded chains in configuration order
func (r *Registry) Live() []*Context {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := make([]*Context, 0, len(r.chains))
	for _, c := range r.chains {
		s := r.status[c.Key]
		if s.Connected && s.Balance.Cmp(r.minBalance) >= 0 {
			live = append(live, c)
		}
	}
	return live
}

// Statuses returns a copy of every chain's status in configuration order
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(r.chains))
	for _, c := range r.chains {
		s := *r.status[c.Key]
		s.Balance = new(big.Int).Set(s.Balance)
		out = append(out, s)
	}
	return out
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
