package liquidation_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/gas"
	"github.com/michaelpento.lv/arbscanner/quote"
	"github.com/michaelpento.lv/arbscanner/strategies"
	"github.com/michaelpento.lv/arbscanner/strategies/liquidation"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
	"github.com/michaelpento.lv/arbscanner/utils/testutils"
)

func newHunter(t *testing.T, source strategies.SignalSource) *liquidation.Hunter {
	logger := zaptest.NewLogger(t)
	m := metrics.NewForTesting()
	pricer := strategies.NewPricer(quote.NewAggregator(m, logger), gas.NewEstimator(m, logger), decimal.NewFromInt(3500), logger)
	return liquidation.NewHunter(pricer, source, decimal.RequireFromString("0.5"), logger)
}

func TestHunterWithoutSource(t *testing.T) {
	c, provider := testutils.NewFakeChain(t, "base")

	h := newHunter(t, nil)
	assert.Equal(t, types.StrategyLiquidation, h.Kind())

	opps, err := h.Scan(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, opps)
	assert.Equal(t, 0, provider.QuoteCalls)
}

func TestHunterBonusCoversGas(t *testing.T) {
	c, provider := testutils.NewFakeChain(t, "base")
	// flat pools: 0.1 WETH -> 350 USDC -> 0.1 WETH
	provider.Quotes = testutils.QuoteRates(map[string]*big.Rat{
		testutils.QuoteKey("uniswap-v3", "WETH", "USDC", 500): big.NewRat(3500, 1e12),
		testutils.QuoteKey("uniswap-v3", "USDC", "WETH", 500): big.NewRat(1e12, 3500),
	})

	legs := []types.Leg{
		{Venue: dex.VenueUniswapV3, TokenIn: c.Native, TokenOut: c.Stable, Fee: 500},
		{Venue: dex.VenueUniswapV3, TokenIn: c.Stable, TokenOut: c.Native, Fee: 500},
	}
	source := strategies.StaticSignals{
		"base": {{Legs: legs, AmountIn: testutils.Wei("0.1"), Premium: testutils.Wei("0.005")}},
	}

	opps, err := newHunter(t, source).Scan(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, types.SettlementUnimplemented, opp.Settlement)
	assert.Equal(t, testutils.Wei("0.005").String(), opp.GrossProfit.String())
	// 0.005 × 3500 = 17.5, gas 0.1 gwei × 400k = 0.14
	assert.True(t, decimal.RequireFromString("17.36").Equal(opp.NetProfitUsd), opp.NetProfitUsd.String())
	assert.True(t, opp.Profitable)
}

func TestHunterIgnoresOtherChains(t *testing.T) {
	c, _ := testutils.NewFakeChain(t, "arbitrum")
	source := strategies.StaticSignals{"base": {{AmountIn: big.NewInt(1)}}}

	opps, err := newHunter(t, source).Scan(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, opps)
}
