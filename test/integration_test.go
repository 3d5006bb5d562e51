package test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v2"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/cmd/bot"
	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/control"
	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/strategies"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils/testutils"
)

// Scenario describes the simulated chains of one run
type Scenario struct {
	Config string `yaml:"config"`
	Chains map[string]struct {
		Native string `yaml:"native"`
		Quotes string `yaml:"quotes"`
	} `yaml:"chains"`
	Liquidations map[string]struct {
		AmountIn string `yaml:"amount_in"`
		Bonus    string `yaml:"bonus"`
	} `yaml:"liquidations"`
}

const scenarioYAML = `
config: |
  scan_interval: 1s
  auto_execute: true
  control:
    listen: ""
  strategies:
    - name: simple-fee-tier
      enabled: true
      min_profit_usd: "0.01"
    - name: liquidation
      enabled: true
      min_profit_usd: "0.50"
chains:
  base:
    native: "1"
    quotes: gap
  arbitrum:
    native: "0.0001"
    quotes: none
  optimism:
    native: "1"
    quotes: none
liquidations:
  base:
    amount_in: "0.1"
    bonus: "0.005"
`

func loadScenario(t *testing.T) (*config.Config, Scenario) {
	t.Helper()
	var sc Scenario
	require.NoError(t, yaml.Unmarshal([]byte(scenarioYAML), &sc))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sc.Config), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	return cfg, sc
}

func buildChains(t *testing.T, cfg *config.Config, sc Scenario) ([]*chain.Context, map[string]*testutils.FakeProvider) {
	t.Helper()
	rates := testutils.GapRates()
	rates[testutils.QuoteKey(dex.VenueUniswapV3, "USDC", "WETH", 500)] = big.NewRat(1e12, 3500)

	providers := make(map[string]*testutils.FakeProvider)
	var chains []*chain.Context
	for _, cc := range cfg.Chains {
		p := testutils.NewFakeProvider(common.HexToAddress(cc.WrappedNative.Address))
		sim, ok := sc.Chains[cc.Key]
		require.True(t, ok, "scenario has no chain %s", cc.Key)
		p.Native = testutils.Wei(sim.Native)
		if sim.Quotes == "gap" {
			p.Quotes = testutils.QuoteRates(rates)
		}

		c, err := chain.NewContext(cc, p)
		require.NoError(t, err)
		chains = append(chains, c)
		providers[cc.Key] = p
	}
	return chains, providers
}

func liquidations(chains []*chain.Context, sc Scenario) strategies.StaticSignals {
	signals := make(strategies.StaticSignals)
	for _, c := range chains {
		l, ok := sc.Liquidations[c.Key]
		if !ok {
			continue
		}
		signals[c.Key] = []strategies.Signal{{
			Legs: []types.Leg{
				{Venue: dex.VenueUniswapV3, TokenIn: c.Native, TokenOut: c.Stable, Fee: 500},
				{Venue: dex.VenueUniswapV3, TokenIn: c.Stable, TokenOut: c.Native, Fee: 500},
			},
			AmountIn: testutils.Wei(l.AmountIn),
			Premium:  testutils.Wei(l.Bonus),
			Source:   "scenario",
		}}
	}
	return signals
}

func request(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func status(t *testing.T, h http.Handler) state.Snapshot {
	t.Helper()
	rec := request(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func TestFullIntegration(t *testing.T) {
	cfg, sc := loadScenario(t)
	logger := zaptest.NewLogger(t)

	chains, providers := buildChains(t, cfg, sc)
	scanner, err := bot.New(cfg, chains, bot.Options{LiquidationSignals: liquidations(chains, sc)}, logger)
	require.NoError(t, err)

	h := control.NewServer(control.Config{}, scanner, logger).Handler()

	rec := request(t, h, http.MethodPost, "/start", `{"dryRun": false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := status(t, h)
	require.Len(t, snap.Chains, 3)
	balances := map[string]string{}
	for _, c := range snap.Chains {
		assert.True(t, c.Connected, c.Key)
		balances[c.Key] = c.Balance
	}
	assert.Equal(t, testutils.Wei("0.0001").String(), balances["arbitrum"])

	ctx := context.Background()
	// arbitrum is below the minimum balance and never scanned
	scanner.Scheduler().Tick(ctx) // base
	scanner.Scheduler().Tick(ctx) // optimism, no quotes

	snap = status(t, h)
	assert.Equal(t, uint64(2), snap.Stats.Ticks)
	assert.Equal(t, "optimism", snap.Stats.CurrentChain)

	// the liquidation bonus beats every fee-tier gap and is simulated
	require.Len(t, snap.TradeLog, 1)
	entry := snap.TradeLog[0]
	assert.Equal(t, types.StrategyLiquidation, entry.Strategy)
	assert.Equal(t, "base", entry.Chain)
	assert.Equal(t, types.OutcomeSimulated, entry.Outcome)
	assert.Empty(t, providers["base"].CallLog())

	// base produced three fee-tier gaps and one liquidation
	assert.Len(t, snap.History, 4)
	assert.Empty(t, snap.Opportunities, "optimism found nothing")

	for _, sv := range snap.Strategies {
		switch sv.Name {
		case types.StrategyFeeTier, types.StrategyLiquidation:
			assert.True(t, sv.Enabled, sv.Name)
			assert.Equal(t, uint64(2), sv.Scans, sv.Name)
		default:
			assert.False(t, sv.Enabled, sv.Name)
			assert.Zero(t, sv.Scans, sv.Name)
		}
	}

	rec = request(t, h, http.MethodPost, "/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	scanner.Scheduler().Tick(ctx)
	assert.Equal(t, uint64(2), scanner.State().Stats().Ticks)
}
