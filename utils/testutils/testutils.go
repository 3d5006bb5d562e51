package testutils

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/types"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
)

// QuoteFunc answers quotes for a FakeProvider
type QuoteFunc func(leg types.Leg, amountIn *big.Int) (*big.Int, error)

// QuoteKey renders the lookup key used by QuoteTable, e.g.
// "uniswap-v3:WETH>USDC:500"
func QuoteKey(venue, in, out string, fee uint32) string {
	return fmt.Sprintf("%s:%s>%s:%d", venue, in, out, fee)
}

// QuoteTable returns fixed outputs per leg regardless of amount. Legs not in
// the table fail.
func QuoteTable(table map[string]*big.Int) QuoteFunc {
	return func(leg types.Leg, amountIn *big.Int) (*big.Int, error) {
		out, ok := table[QuoteKey(leg.Venue, leg.TokenIn.Symbol, leg.TokenOut.Symbol, leg.Fee)]
		if !ok {
			return nil, errors.New("execution reverted: no pool")
		}
		return new(big.Int).Set(out), nil
	}
}

// QuoteRates prices legs at a fixed rate, out = amountIn × rate rounded
// down. Legs without a rate fail.
func QuoteRates(rates map[string]*big.Rat) QuoteFunc {
	return func(leg types.Leg, amountIn *big.Int) (*big.Int, error) {
		r, ok := rates[QuoteKey(leg.Venue, leg.TokenIn.Symbol, leg.TokenOut.Symbol, leg.Fee)]
		if !ok {
			return nil, errors.New("execution reverted: no pool")
		}
		out := new(big.Int).Mul(amountIn, r.Num())
		return out.Quo(out, r.Denom()), nil
	}
}

// GapRates sells WETH for 3500 USDC on the 500 tier and buys it back at
// 3430 USDC on the 3000 tier. Every other fee pair misses.
func GapRates() map[string]*big.Rat {
	return map[string]*big.Rat{
		QuoteKey("uniswap-v3", "WETH", "USDC", 500):  big.NewRat(3500, 1e12),
		QuoteKey("uniswap-v3", "USDC", "WETH", 3000): big.NewRat(1e12, 3430),
	}
}

// FakeProvider is an in-memory chain.Provider. Swaps move balances using
// the quote function and every submitted transaction is recorded in Calls.
type FakeProvider struct {
	mu sync.Mutex

	Wrapped common.Address
	Quotes  QuoteFunc

	GasPriceWei *big.Int
	GasPriceErr error
	Native      *big.Int
	NativeErr   error
	Balances    map[common.Address]*big.Int
	Allowances  map[string]*big.Int

	// FailSwap makes the n-th swap (1-based) fail; zero never fails
	FailSwap int
	// SwapOutput overrides the quote function when swaps execute
	SwapOutput QuoteFunc
	// Release, when set, blocks every swap until it is closed
	Release chan struct{}
	// Started receives a value when a swap begins
	Started chan struct{}

	GasUsed           uint64
	EffectiveGasPrice *big.Int

	Calls      []string
	QuoteCalls int
	swaps      int
	txs        int64
}

// NewFakeProvider returns a funded provider with 1 native unit and no tokens
func NewFakeProvider(wrapped common.Address) *FakeProvider {
	return &FakeProvider{
		Wrapped:           wrapped,
		Quotes:            QuoteTable(nil),
		GasPriceWei:       big.NewInt(100000000), // 0.1 gwei
		Native:            new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		Balances:          make(map[common.Address]*big.Int),
		Allowances:        make(map[string]*big.Int),
		GasUsed:           150000,
		EffectiveGasPrice: big.NewInt(100000000),
	}
}

func (f *FakeProvider) Quote(ctx context.Context, leg types.Leg, amountIn *big.Int) (*big.Int, error) {
	f.mu.Lock()
	f.QuoteCalls++
	quotes := f.Quotes
	f.mu.Unlock()
	return quotes(leg, amountIn)
}

func (f *FakeProvider) GasPrice(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GasPriceErr != nil {
		return nil, f.GasPriceErr
	}
	return new(big.Int).Set(f.GasPriceWei), nil
}

func (f *FakeProvider) NativeBalance(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NativeErr != nil {
		return nil, f.NativeErr
	}
	return new(big.Int).Set(f.Native), nil
}

func (f *FakeProvider) TokenBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.balance(token)), nil
}

func (f *FakeProvider) balance(token common.Address) *big.Int {
	b, ok := f.Balances[token]
	if !ok {
		b = new(big.Int)
		f.Balances[token] = b
	}
	return b
}

func (f *FakeProvider) receipt() *chain.Receipt {
	f.txs++
	return &chain.Receipt{
		TxHash:            common.BigToHash(big.NewInt(f.txs)),
		GasUsed:           f.GasUsed,
		EffectiveGasPrice: new(big.Int).Set(f.EffectiveGasPrice),
		BlockNumber:       uint64(f.txs),
	}
}

func (f *FakeProvider) Wrap(ctx context.Context, amount *big.Int) (*chain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Native.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: wrap exceeds balance", types.ErrTransactionFailed)
	}
	f.Native.Sub(f.Native, amount)
	f.balance(f.Wrapped).Add(f.balance(f.Wrapped), amount)
	f.Calls = append(f.Calls, "wrap")
	return f.receipt(), nil
}

func (f *FakeProvider) EnsureApproval(ctx context.Context, token common.Address, venue string, amount *big.Int) (*chain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := token.Hex() + "/" + venue
	if a, ok := f.Allowances[key]; ok && a.Cmp(amount) >= 0 {
		return nil, nil
	}
	f.Allowances[key] = new(big.Int).Set(gmath.MaxBig256)
	f.Calls = append(f.Calls, "approve:"+venue)
	return f.receipt(), nil
}

func (f *FakeProvider) Swap(ctx context.Context, leg types.Leg, amountIn, minOut *big.Int) (*chain.Receipt, error) {
	f.mu.Lock()
	f.swaps++
	n := f.swaps
	started, release := f.Started, f.Release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	call := fmt.Sprintf("swap:%s>%s", leg.TokenIn.Symbol, leg.TokenOut.Symbol)
	if f.FailSwap == n {
		f.Calls = append(f.Calls, call+":reverted")
		return nil, fmt.Errorf("%w: swap %d reverted", types.ErrTransactionFailed, n)
	}

	in := f.balance(leg.TokenIn.Address)
	if in.Cmp(amountIn) < 0 {
		return nil, fmt.Errorf("%w: transfer amount exceeds balance", types.ErrTransactionFailed)
	}

	output := f.SwapOutput
	if output == nil {
		output = f.Quotes
	}
	out, err := output(leg, amountIn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTransactionFailed, err)
	}
	if out.Cmp(minOut) < 0 {
		f.Calls = append(f.Calls, call+":slippage")
		return nil, fmt.Errorf("%w: too little received", types.ErrTransactionFailed)
	}

	in.Sub(in, amountIn)
	f.balance(leg.TokenOut.Address).Add(f.balance(leg.TokenOut.Address), out)
	f.Calls = append(f.Calls, call)
	return f.receipt(), nil
}

// SetBalance sets a token balance
func (f *FakeProvider) SetBalance(token common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[token] = new(big.Int).Set(amount)
}

// CallLog returns a copy of the recorded transactions
func (f *FakeProvider) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// NewChain builds a chain.Context from the default chain table
func NewChain(t *testing.T, key string, provider chain.Provider) *chain.Context {
	t.Helper()
	for _, cfg := range config.DefaultChains() {
		if cfg.Key != key {
			continue
		}
		c, err := chain.NewContext(cfg, provider)
		require.NoError(t, err)
		return c
	}
	t.Fatalf("unknown chain %q", key)
	return nil
}

// NewFakeChain builds a chain context backed by a fresh FakeProvider
func NewFakeChain(t *testing.T, key string) (*chain.Context, *FakeProvider) {
	t.Helper()
	for _, cfg := range config.DefaultChains() {
		if cfg.Key == key {
			p := NewFakeProvider(common.HexToAddress(cfg.WrappedNative.Address))
			return NewChain(t, key, p), p
		}
	}
	t.Fatalf("unknown chain %q", key)
	return nil, nil
}

// Wei parses a whole-unit decimal amount with 18 decimals
func Wei(amount string) *big.Int {
	return umath.MustParseUnits(amount, 18)
}
