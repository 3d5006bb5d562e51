package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/types"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
)

// Fixed gas budgets per strategy, sized by the number of swaps involved
const (
	UnitsFeeTier     uint64 = 300000
	UnitsCrossVenue  uint64 = 400000
	UnitsTriangular  uint64 = 450000
	UnitsFlashLoan   uint64 = 500000
	UnitsSandwich    uint64 = 300000
	UnitsLiquidation uint64 = 400000
)

// UnitsFor returns the gas budget used to price a strategy's opportunities
func UnitsFor(strategy types.Strategy) uint64 {
	switch strategy {
	case types.StrategyFeeTier:
		return UnitsFeeTier
	case types.StrategyCrossVenue:
		return UnitsCrossVenue
	case types.StrategyTriangular:
		return UnitsTriangular
	case types.StrategyFlashLoan:
		return UnitsFlashLoan
	case types.StrategySandwich:
		return UnitsSandwich
	case types.StrategyLiquidation:
		return UnitsLiquidation
	default:
		return UnitsFlashLoan
	}
}

// Cost returns gasPrice × units
func Cost(gasPrice *big.Int, units uint64) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(units))
}

// PriceReader reads the current gas price of one chain
type PriceReader interface {
	GasPrice(ctx context.Context) (*big.Int, error)
}

// Estimator reads gas prices and remembers the last observation per chain
type Estimator struct {
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu   sync.RWMutex
	last map[string]*big.Int
}

// NewEstimator creates a new gas estimator
func NewEstimator(m *metrics.Metrics, logger *zap.Logger) *Estimator {
	return &Estimator{
		metrics: m,
		logger:  logger,
		last:    make(map[string]*big.Int),
	}
}

// GasPrice reads the chain's gas price. Every failure is reported as
// ErrChainUnreachable.
func (e *Estimator) GasPrice(ctx context.Context, chainKey string, reader PriceReader) (*big.Int, error) {
	price, err := reader.GasPrice(ctx)
	if err != nil {
		if !errors.Is(err, types.ErrChainUnreachable) {
			err = fmt.Errorf("%w: %v", types.ErrChainUnreachable, err)
		}
		e.logger.Debug("Failed to read gas price", zap.String("chain", chainKey), zap.Error(err))
		return nil, err
	}

	e.mu.Lock()
	e.last[chainKey] = new(big.Int).Set(price)
	e.mu.Unlock()

	e.metrics.Chain.GasPriceGwei.WithLabelValues(chainKey).Set(umath.ToDecimal(price, 9).InexactFloat64())
	return price, nil
}

// Last returns the most recent gas price seen for a chain
func (e *Estimator) Last(chainKey string) (*big.Int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.last[chainKey]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(p), true
}
