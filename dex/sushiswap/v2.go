package sushiswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/types"
)

// SushiswapV2 quotes and swaps through a UniswapV2-style router
type SushiswapV2 struct {
	routerAddr common.Address
	routerABI  abi.ABI
	router     *bind.BoundContract
}

// NewSushiswapV2 creates a new Sushiswap V2 venue
func NewSushiswapV2(caller bind.ContractCaller, router common.Address) (*SushiswapV2, error) {
	parsedABI, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	return &SushiswapV2{
		routerAddr: router,
		routerABI:  parsedABI,
		router:     bind.NewBoundContract(router, parsedABI, caller, nil, nil),
	}, nil
}

// Name returns the venue name
func (s *SushiswapV2) Name() string {
	return dex.VenueSushiswapV2
}

// Router returns the router contract address
func (s *SushiswapV2) Router() common.Address {
	return s.routerAddr
}

// Quote asks the router for getAmountsOut along the two-token path
func (s *SushiswapV2) Quote(ctx context.Context, leg types.Leg, amountIn *big.Int) (*big.Int, error) {
	var out []interface{}
	path := []common.Address{leg.TokenIn.Address, leg.TokenOut.Address}
	if err := s.router.Call(&bind.CallOpts{Context: ctx}, &out, "getAmountsOut", amountIn, path); err != nil {
		return nil, fmt.Errorf("failed to get amounts out: %w", err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("empty getAmountsOut result")
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return nil, fmt.Errorf("failed to parse getAmountsOut result")
	}

	return amounts[len(amounts)-1], nil
}

// PackSwap encodes swapExactTokensForTokens
func (s *SushiswapV2) PackSwap(leg types.Leg, amountIn, minOut *big.Int, recipient common.Address, deadline *big.Int) ([]byte, error) {
	path := []common.Address{leg.TokenIn.Address, leg.TokenOut.Address}
	return s.routerABI.Pack("swapExactTokensForTokens", amountIn, minOut, path, recipient, deadline)
}

// routerABIJson is the subset of the V2 router the bot uses
const routerABIJson = `[{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"},{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}]`
