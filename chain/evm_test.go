package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/types"
)

type mockBackend struct {
	mu sync.Mutex

	balance     *big.Int
	balanceErr  error
	callResult  []byte
	estimateErr error
	status      uint64

	calls []ethereum.CallMsg
	sent  []*gethtypes.Transaction
}

func (m *mockBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (m *mockBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.callResult, nil
}

func (m *mockBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return m.balance, m.balanceErr
}

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.sent)), nil
}

func (m *mockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1000000000), nil
}

func (m *mockBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if m.estimateErr != nil {
		return 0, m.estimateErr
	}
	return 100000, nil
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, tx)
	return nil
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return &gethtypes.Receipt{
		Status:            m.status,
		TxHash:            txHash,
		GasUsed:           80000,
		EffectiveGasPrice: big.NewInt(2000000000),
		BlockNumber:       big.NewInt(42),
	}, nil
}

func newTestProvider(t *testing.T, backend *mockBackend) (*EVMProvider, *config.Secrets) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	secrets := &config.Secrets{PrivateKey: key, Address: crypto.PubkeyToAddress(key.PublicKey)}

	cfg := config.DefaultChains()[1]
	p, err := NewEVMProvider(cfg, backend, secrets, EVMOptions{
		RateLimit:      config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000, WaitTimeout: config.Duration{Duration: time.Second}},
		ReceiptTimeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p, secrets
}

func uintWord(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func TestNewEVMProviderRequiresKey(t *testing.T) {
	_, err := NewEVMProvider(config.DefaultChains()[0], &mockBackend{}, nil, EVMOptions{}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, types.ErrConfigurationMissing)
}

func TestEVMProviderNativeBalance(t *testing.T) {
	backend := &mockBackend{balance: big.NewInt(5)}
	p, _ := newTestProvider(t, backend)

	balance, err := p.NativeBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance.Int64())

	backend.balanceErr = errors.New("connection refused")
	_, err = p.NativeBalance(context.Background())
	assert.ErrorIs(t, err, types.ErrChainUnreachable)
}

func TestEVMProviderTokenBalance(t *testing.T) {
	backend := &mockBackend{callResult: uintWord(20000000)}
	p, secrets := newTestProvider(t, backend)

	usdc := common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	balance, err := p.TokenBalance(context.Background(), usdc)
	require.NoError(t, err)
	assert.Equal(t, int64(20000000), balance.Int64())

	require.Len(t, backend.calls, 1)
	assert.Equal(t, usdc, *backend.calls[0].To)
	assert.Equal(t, secrets.Address, backend.calls[0].From)
}

func TestEVMProviderEnsureApprovalSkipsWhenAllowed(t *testing.T) {
	backend := &mockBackend{callResult: uintWord(1000)}
	p, _ := newTestProvider(t, backend)

	receipt, err := p.EnsureApproval(context.Background(), common.HexToAddress("0x01"), dex.VenueUniswapV3, big.NewInt(1000))
	require.NoError(t, err)
	assert.Nil(t, receipt)
	assert.Empty(t, backend.sent)
}

func TestEVMProviderEnsureApprovalSendsApprove(t *testing.T) {
	backend := &mockBackend{callResult: uintWord(0), status: gethtypes.ReceiptStatusSuccessful}
	p, _ := newTestProvider(t, backend)

	token := common.HexToAddress("0x01")
	receipt, err := p.EnsureApproval(context.Background(), token, dex.VenueSushiswapV2, big.NewInt(1000))
	require.NoError(t, err)
	require.NotNil(t, receipt)

	require.Len(t, backend.sent, 1)
	assert.Equal(t, token, *backend.sent[0].To())
	assert.Equal(t, p.erc20ABI.Methods["approve"].ID, backend.sent[0].Data()[:4])
}

func TestEVMProviderWrap(t *testing.T) {
	backend := &mockBackend{status: gethtypes.ReceiptStatusSuccessful}
	p, secrets := newTestProvider(t, backend)

	amount := big.NewInt(10000000000000000)
	receipt, err := p.Wrap(context.Background(), amount)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, p.wrapped, *tx.To())
	assert.Equal(t, amount.String(), tx.Value().String())
	assert.Equal(t, uint64(120000), tx.Gas())

	sender, err := gethtypes.Sender(p.signer, tx)
	require.NoError(t, err)
	assert.Equal(t, secrets.Address, sender)

	assert.Equal(t, tx.Hash(), receipt.TxHash)
	assert.Equal(t, uint64(80000), receipt.GasUsed)
	assert.Equal(t, "160000000000000", receipt.GasCost().String())
	assert.Equal(t, uint64(42), receipt.BlockNumber)
}

func TestEVMProviderSwapReverted(t *testing.T) {
	backend := &mockBackend{status: gethtypes.ReceiptStatusFailed}
	p, _ := newTestProvider(t, backend)

	leg := types.Leg{
		Venue:    dex.VenueUniswapV3,
		TokenIn:  types.Token{Symbol: "WETH", Address: p.wrapped, Decimals: 18},
		TokenOut: types.Token{Symbol: "USDC", Address: common.HexToAddress("0x02"), Decimals: 6},
		Fee:      500,
	}
	_, err := p.Swap(context.Background(), leg, big.NewInt(1), big.NewInt(1))
	assert.ErrorIs(t, err, types.ErrTransactionFailed)
	assert.Len(t, backend.sent, 1)
}

func TestEVMProviderPreflightFailureDoesNotBroadcast(t *testing.T) {
	backend := &mockBackend{estimateErr: errors.New("execution reverted: STF")}
	p, _ := newTestProvider(t, backend)

	_, err := p.Wrap(context.Background(), big.NewInt(1))
	assert.ErrorIs(t, err, types.ErrTransactionFailed)
	assert.Empty(t, backend.sent)
}

func TestEVMProviderUnknownVenue(t *testing.T) {
	p, _ := newTestProvider(t, &mockBackend{})

	_, err := p.Quote(context.Background(), types.Leg{Venue: "curve"}, big.NewInt(1))
	assert.Error(t, err)
}
