package flashloan

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Provider prices flash loans. Execution is never performed; only the fee
// enters the profit model.
type Provider interface {
	Name() string
	FeeBps(token common.Address) uint32
}

// Quote is the fee charged by the selected provider for one loan
type Quote struct {
	Provider string
	FeeBps   uint32
	Fee      *big.Int
}

// StaticProvider charges the same fee for every token
type StaticProvider struct {
	name   string
	feeBps uint32
}

// NewStaticProvider creates a provider with a flat fee in basis points
func NewStaticProvider(name string, feeBps uint32) *StaticProvider {
	return &StaticProvider{name: name, feeBps: feeBps}
}

func (p *StaticProvider) Name() string {
	return p.name
}

func (p *StaticProvider) FeeBps(common.Address) uint32 {
	return p.feeBps
}
