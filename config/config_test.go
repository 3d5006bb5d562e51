package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbscanner/types"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.ScanInterval.Duration)
	assert.Equal(t, 30, cfg.BalanceRefreshEvery)
	assert.Equal(t, uint32(50), cfg.MaxSlippageBps)
	assert.Len(t, cfg.Chains, 3)
	assert.Len(t, cfg.Strategies, len(types.AllStrategies))

	for _, s := range types.AllStrategies {
		_, ok := cfg.Strategy(string(s))
		assert.True(t, ok, "strategy %s missing from defaults", s)
	}
}

func TestLoadConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Chains[0].Key, cfg.Chains[0].Key)
}

func TestLoadConfigYAMLFillsKnownChain(t *testing.T) {
	path := writeFile(t, "bot.yaml", `
scan_interval: 2s
auto_execute: false
chains:
  - key: arbitrum
    trade_amounts: ["0.1"]
strategies:
  - name: simple-fee-tier
    enabled: true
    min_profit_usd: "0.25"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.ScanInterval.Duration)
	assert.False(t, cfg.AutoExecute)
	require.Len(t, cfg.Chains, 1)

	arb := cfg.Chains[0]
	assert.Equal(t, uint64(42161), arb.ChainID)
	assert.Equal(t, []string{"0.1"}, arb.TradeAmounts)
	assert.Equal(t, []uint32{100, 500, 3000}, arb.FeeTiers)
	assert.Equal(t, "USDC", arb.Stable.Symbol)
	assert.True(t, common.IsHexAddress(arb.Venues.UniswapV3Quoter))

	require.Len(t, cfg.Strategies, 1)
	assert.Equal(t, "0.25", cfg.Strategies[0].MinProfitUsd)
}

func TestLoadConfigTOMLAndJSON(t *testing.T) {
	tomlPath := writeFile(t, "bot.toml", `
scan_interval = "3s"
max_slippage_bps = 30

[[chains]]
key = "optimism"
`)
	cfg, err := LoadConfig(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ScanInterval.Duration)
	assert.Equal(t, uint32(30), cfg.MaxSlippageBps)
	assert.Equal(t, uint64(10), cfg.Chains[0].ChainID)
	assert.Len(t, cfg.Strategies, len(types.AllStrategies))

	jsonPath := writeFile(t, "bot.json", `{"scan_interval": "750ms", "chains": [{"key": "base"}]}`)
	cfg, err = LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.ScanInterval.Duration)
	assert.Equal(t, uint64(8453), cfg.Chains[0].ChainID)
}

func TestLoadConfigRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "bot.ini", "scan_interval=1s")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScanInterval = Duration{}
	cfg.MaxSlippageBps = 10000
	cfg.Chains[0].TradeAmounts = []string{"-1"}
	cfg.Chains[1].Venues.UniswapV3Quoter = "nope"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan_interval")
	assert.Contains(t, err.Error(), "max_slippage_bps")
	assert.Contains(t, err.Error(), "chain base")
	assert.Contains(t, err.Error(), "chain arbitrum")
}

func TestValidateRejectsRouteWithoutFees(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chains[0].TriangularRoutes = []RouteConfig{{Tokens: []string{"WETH", "USDC", "WETH"}, Fees: []uint32{500}}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsRouteOutsideNative(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chains[0].TriangularRoutes = []RouteConfig{{Tokens: []string{"USDC", "WETH", "DAI", "USDC"}, Fees: []uint32{500, 500, 100}}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start and end in WETH")
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	_, err := LoadSecrets()
	assert.ErrorIs(t, err, types.ErrConfigurationMissing)

	t.Setenv(EnvPrivateKey, "0xnothex")
	_, err = LoadSecrets()
	assert.ErrorIs(t, err, types.ErrConfigurationMissing)

	t.Setenv(EnvPrivateKey, "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	secrets, err := LoadSecrets()
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, secrets.Address)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RPC_URL_BASE", "http://localhost:8545")
	t.Setenv(EnvRedisAddr, "localhost:6379")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://localhost:8545", cfg.Chains[0].RPCEndpoint)
	assert.Equal(t, "https://arb1.arbitrum.io/rpc", cfg.Chains[1].RPCEndpoint)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}
