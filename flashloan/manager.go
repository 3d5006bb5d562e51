package flashloan

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/config"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
)

// Manager picks the cheapest flash-loan provider for a token
type Manager struct {
	mu        sync.RWMutex
	providers []Provider
	logger    *zap.Logger
}

// NewManager creates a manager from configured providers
func NewManager(cfg config.FlashLoanConfig, logger *zap.Logger) *Manager {
	m := &Manager{logger: logger}
	for _, p := range cfg.Providers {
		m.AddProvider(NewStaticProvider(p.Name, p.FeeBps))
	}
	return m
}

// AddProvider adds a new flash loan provider
func (m *Manager) AddProvider(provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, provider)
}

// Quote selects the lowest-fee provider and prices a loan of amount.
// Ties keep the first configured provider.
func (m *Manager) Quote(token common.Address, amount *big.Int) (Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.providers) == 0 {
		return Quote{}, fmt.Errorf("no providers available")
	}

	best := m.providers[0]
	bestFee := best.FeeBps(token)
	for _, p := range m.providers[1:] {
		if fee := p.FeeBps(token); fee < bestFee {
			best, bestFee = p, fee
		}
	}

	m.logger.Debug("Selected flash loan provider",
		zap.String("provider", best.Name()),
		zap.Uint32("fee_bps", bestFee),
		zap.String("token", token.Hex()),
	)

	return Quote{
		Provider: best.Name(),
		FeeBps:   bestFee,
		Fee:      umath.BpsOf(amount, bestFee),
	}, nil
}
