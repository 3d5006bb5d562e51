package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbscanner/types"
)

// Quoter produces read-only swap quotes
type Quoter interface {
	Quote(ctx context.Context, leg types.Leg, amountIn *big.Int) (*big.Int, error)
}

// Provider is everything the scanner and the coordinator need from one chain
type Provider interface {
	Quoter

	GasPrice(ctx context.Context) (*big.Int, error)
	NativeBalance(ctx context.Context) (*big.Int, error)
	TokenBalance(ctx context.Context, token common.Address) (*big.Int, error)

	// Wrap deposits amount of the native asset into the wrapped token
	Wrap(ctx context.Context, amount *big.Int) (*Receipt, error)

	// EnsureApproval lets the venue's router spend at least amount of token.
	// It returns a nil receipt when the allowance already suffices.
	EnsureApproval(ctx context.Context, token common.Address, venue string, amount *big.Int) (*Receipt, error)

	// Swap submits an exact-input swap and waits for its confirmation
	Swap(ctx context.Context, leg types.Leg, amountIn, minOut *big.Int) (*Receipt, error)
}

// Receipt is the confirmed outcome of a submitted transaction
type Receipt struct {
	TxHash            common.Hash
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	BlockNumber       uint64
}

// GasCost returns gasUsed × effectiveGasPrice
func (r *Receipt) GasCost() *big.Int {
	if r == nil || r.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}
