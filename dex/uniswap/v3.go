package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/types"
)

const quoterV2ABIJson = `[{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"quoteExactInputSingle","outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}]`

const swapRouter02ABIJson = `[{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"}]`

var (
	QuoterV2ABI     = mustParseABI(quoterV2ABIJson)
	SwapRouter02ABI = mustParseABI(swapRouter02ABIJson)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// UniswapV3 quotes through QuoterV2 and swaps through SwapRouter02
type UniswapV3 struct {
	caller bind.ContractCaller
	quoter common.Address
	router common.Address
}

// NewUniswapV3 creates a new Uniswap V3 venue
func NewUniswapV3(caller bind.ContractCaller, quoter, router common.Address) *UniswapV3 {
	return &UniswapV3{
		caller: caller,
		quoter: quoter,
		router: router,
	}
}

// Name returns the venue name
func (u *UniswapV3) Name() string {
	return dex.VenueUniswapV3
}

// Router returns the SwapRouter02 address
func (u *UniswapV3) Router() common.Address {
	return u.router
}

// Quote calls quoteExactInputSingle for the leg's pool
func (u *UniswapV3) Quote(ctx context.Context, leg types.Leg, amountIn *big.Int) (*big.Int, error) {
	data, err := QuoterV2ABI.Pack("quoteExactInputSingle", quoteExactInputSingleParams{
		TokenIn:           leg.TokenIn.Address,
		TokenOut:          leg.TokenOut.Address,
		AmountIn:          amountIn,
		Fee:               new(big.Int).SetUint64(uint64(leg.Fee)),
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack quote: %w", err)
	}

	out, err := u.caller.CallContract(ctx, ethereum.CallMsg{To: &u.quoter, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call quoter: %w", err)
	}

	values, err := QuoterV2ABI.Unpack("quoteExactInputSingle", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack quote: %w", err)
	}
	amountOut, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected quote output %T", values[0])
	}

	return amountOut, nil
}

// PackSwap encodes exactInputSingle. SwapRouter02 takes no deadline.
func (u *UniswapV3) PackSwap(leg types.Leg, amountIn, minOut *big.Int, recipient common.Address, _ *big.Int) ([]byte, error) {
	return SwapRouter02ABI.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           leg.TokenIn.Address,
		TokenOut:          leg.TokenOut.Address,
		Fee:               new(big.Int).SetUint64(uint64(leg.Fee)),
		Recipient:         recipient,
		AmountIn:          amountIn,
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: new(big.Int),
	})
}
