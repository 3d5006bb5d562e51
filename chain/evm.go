package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gmath "github.com/ethereum/go-ethereum/common/math"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/dex/sushiswap"
	"github.com/michaelpento.lv/arbscanner/dex/uniswap"
	"github.com/michaelpento.lv/arbscanner/types"
)

const (
	erc20ABIJson = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}]`
	wethABIJson  = `[{"constant":false,"inputs":[],"name":"deposit","outputs":[],"payable":true,"type":"function"},{"constant":false,"inputs":[{"name":"wad","type":"uint256"}],"name":"withdraw","outputs":[],"type":"function"}]`

	swapDeadline    = 5 * time.Minute
	gasLimitPercent = 120
)

// Backend is the subset of ethclient.Client the provider uses
type Backend interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// EVMOptions tunes RPC usage
type EVMOptions struct {
	RateLimit      config.RateLimitConfig
	ReceiptTimeout time.Duration
}

// EVMProvider implements Provider for one EVM chain with a single hot wallet
type EVMProvider struct {
	key        string
	backend    Backend
	chainID    *big.Int
	signer     gethtypes.Signer
	privateKey *ecdsa.PrivateKey
	from       common.Address
	wrapped    common.Address
	venues     map[string]dex.Venue

	limiter        *rate.Limiter
	waitTimeout    time.Duration
	receiptTimeout time.Duration

	erc20ABI abi.ABI
	wethABI  abi.ABI

	// serializes nonce assignment
	sendMu sync.Mutex
	logger *zap.Logger
}

// DialEVMProvider connects to the chain's RPC endpoint
func DialEVMProvider(ctx context.Context, cfg config.ChainConfig, secrets *config.Secrets, opts EVMOptions, logger *zap.Logger) (*EVMProvider, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial %s: %v", types.ErrChainUnreachable, cfg.Key, err)
	}
	return NewEVMProvider(cfg, client, secrets, opts, logger)
}

// NewEVMProvider creates a provider over an existing backend
func NewEVMProvider(cfg config.ChainConfig, backend Backend, secrets *config.Secrets, opts EVMOptions, logger *zap.Logger) (*EVMProvider, error) {
	if secrets == nil || secrets.PrivateKey == nil {
		return nil, fmt.Errorf("%w: wallet key", types.ErrConfigurationMissing)
	}

	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	wethABI, err := abi.JSON(strings.NewReader(wethABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse WETH ABI: %w", err)
	}

	venues := map[string]dex.Venue{
		dex.VenueUniswapV3: uniswap.NewUniswapV3(
			backend,
			common.HexToAddress(cfg.Venues.UniswapV3Quoter),
			common.HexToAddress(cfg.Venues.UniswapV3Router),
		),
	}
	if cfg.Venues.SushiswapRouter != "" {
		sushi, err := sushiswap.NewSushiswapV2(backend, common.HexToAddress(cfg.Venues.SushiswapRouter))
		if err != nil {
			return nil, err
		}
		venues[dex.VenueSushiswapV2] = sushi
	}

	rps := opts.RateLimit.RequestsPerSecond
	burst := opts.RateLimit.BurstSize
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 && burst > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	chainID := new(big.Int).SetUint64(cfg.ChainID)
	return &EVMProvider{
		key:            cfg.Key,
		backend:        backend,
		chainID:        chainID,
		signer:         gethtypes.LatestSignerForChainID(chainID),
		privateKey:     secrets.PrivateKey,
		from:           secrets.Address,
		wrapped:        common.HexToAddress(cfg.WrappedNative.Address),
		venues:         venues,
		limiter:        limiter,
		waitTimeout:    opts.RateLimit.WaitTimeout.Duration,
		receiptTimeout: opts.ReceiptTimeout,
		erc20ABI:       erc20ABI,
		wethABI:        wethABI,
		logger:         logger.With(zap.String("component", "evm-provider"), zap.String("chain", cfg.Key)),
	}, nil
}

// Address returns the wallet address
func (p *EVMProvider) Address() common.Address {
	return p.from
}

func (p *EVMProvider) wait(ctx context.Context) error {
	if p.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.waitTimeout)
		defer cancel()
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rpc rate limit: %w", err)
	}
	return nil
}

func (p *EVMProvider) venue(name string) (dex.Venue, error) {
	v, ok := p.venues[name]
	if !ok {
		return nil, fmt.Errorf("venue %s not deployed on %s", name, p.key)
	}
	return v, nil
}

// Quote implements Quoter
func (p *EVMProvider) Quote(ctx context.Context, leg types.Leg, amountIn *big.Int) (*big.Int, error) {
	v, err := p.venue(leg.Venue)
	if err != nil {
		return nil, err
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return v.Quote(ctx, leg, amountIn)
}

// GasPrice returns the node's suggested legacy gas price
func (p *EVMProvider) GasPrice(ctx context.Context) (*big.Int, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	price, err := p.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get gas price: %v", types.ErrChainUnreachable, err)
	}
	return price, nil
}

// NativeBalance returns the wallet's native balance
func (p *EVMProvider) NativeBalance(ctx context.Context) (*big.Int, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	balance, err := p.backend.BalanceAt(ctx, p.from, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get balance: %v", types.ErrChainUnreachable, err)
	}
	return balance, nil
}

// TokenBalance returns the wallet's ERC-20 balance
func (p *EVMProvider) TokenBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	return p.callUint(ctx, token, "balanceOf", p.from)
}

func (p *EVMProvider) callUint(ctx context.Context, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	data, err := p.erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	out, err := p.backend.CallContract(ctx, ethereum.CallMsg{From: p.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call %s: %v", types.ErrChainUnreachable, method, err)
	}
	values, err := p.erc20ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output %T", method, values[0])
	}
	return v, nil
}

// Wrap deposits native currency into the wrapped token contract
func (p *EVMProvider) Wrap(ctx context.Context, amount *big.Int) (*Receipt, error) {
	data, err := p.wethABI.Pack("deposit")
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit: %w", err)
	}
	return p.send(ctx, p.wrapped, amount, data)
}

// EnsureApproval approves the venue router for the maximum amount when the
// current allowance is below amount
func (p *EVMProvider) EnsureApproval(ctx context.Context, token common.Address, venue string, amount *big.Int) (*Receipt, error) {
	v, err := p.venue(venue)
	if err != nil {
		return nil, err
	}

	allowance, err := p.callUint(ctx, token, "allowance", p.from, v.Router())
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil, nil
	}

	data, err := p.erc20ABI.Pack("approve", v.Router(), gmath.MaxBig256)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	return p.send(ctx, token, new(big.Int), data)
}

// Swap submits an exact-input swap on the leg's venue
func (p *EVMProvider) Swap(ctx context.Context, leg types.Leg, amountIn, minOut *big.Int) (*Receipt, error) {
	v, err := p.venue(leg.Venue)
	if err != nil {
		return nil, err
	}

	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())
	data, err := v.PackSwap(leg, amountIn, minOut, p.from, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap: %w", err)
	}
	return p.send(ctx, v.Router(), new(big.Int), data)
}

// send signs, broadcasts and waits for one transaction. Gas is estimated
// first so calls that would revert fail before broadcast.
func (p *EVMProvider) send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*Receipt, error) {
	signed, gasPrice, err := p.signAndBroadcast(ctx, to, value, data)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Submitted transaction",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("gas_limit", signed.Gas()),
	)

	waitCtx := ctx
	if p.receiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.receiptTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, p.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s: %v", types.ErrTransactionFailed, signed.Hash().Hex(), err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s reverted", types.ErrTransactionFailed, signed.Hash().Hex())
	}

	effective := receipt.EffectiveGasPrice
	if effective == nil {
		effective = gasPrice
	}
	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}

	return &Receipt{
		TxHash:            receipt.TxHash,
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: effective,
		BlockNumber:       block,
	}, nil
}

func (p *EVMProvider) signAndBroadcast(ctx context.Context, to common.Address, value *big.Int, data []byte) (*gethtypes.Transaction, *big.Int, error) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	if err := p.wait(ctx); err != nil {
		return nil, nil, err
	}

	nonce, err := p.backend.PendingNonceAt(ctx, p.from)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to get nonce: %v", types.ErrChainUnreachable, err)
	}
	gasPrice, err := p.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to get gas price: %v", types.ErrChainUnreachable, err)
	}
	gas, err := p.backend.EstimateGas(ctx, ethereum.CallMsg{From: p.from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: preflight failed: %v", types.ErrTransactionFailed, err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas * gasLimitPercent / 100,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := gethtypes.SignTx(tx, p.signer, p.privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := p.backend.SendTransaction(ctx, signed); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to send: %v", types.ErrTransactionFailed, err)
	}
	return signed, gasPrice, nil
}
