package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbscanner/types"
)

// Venue names used in legs and config
const (
	VenueUniswapV3   = "uniswap-v3"
	VenueSushiswapV2 = "sushiswap-v2"
)

// Venue quotes and encodes swaps for one DEX deployment on one chain
type Venue interface {
	// Name returns the venue name used in legs
	Name() string

	// Router returns the contract that receives swaps and approvals
	Router() common.Address

	// Quote returns the output of swapping amountIn along leg without
	// sending a transaction
	Quote(ctx context.Context, leg types.Leg, amountIn *big.Int) (*big.Int, error)

	// PackSwap encodes calldata for an exact-input swap
	PackSwap(leg types.Leg, amountIn, minOut *big.Int, recipient common.Address, deadline *big.Int) ([]byte, error)
}
