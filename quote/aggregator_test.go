package quote_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/quote"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
	"github.com/michaelpento.lv/arbscanner/utils/testutils"
)

func TestAggregatorRoundTrip(t *testing.T) {
	c, p := testutils.NewFakeChain(t, "arbitrum")
	p.Quotes = testutils.QuoteTable(map[string]*big.Int{
		testutils.QuoteKey(dex.VenueUniswapV3, "WETH", "USDC", 500):  big.NewInt(20000000),
		testutils.QuoteKey(dex.VenueUniswapV3, "USDC", "WETH", 3000): big.NewInt(10200000000000000),
	})

	m := metrics.NewForTesting()
	agg := quote.NewAggregator(m, zaptest.NewLogger(t))

	legs := []types.Leg{
		{Venue: dex.VenueUniswapV3, TokenIn: c.Native, TokenOut: c.Stable, Fee: 500},
		{Venue: dex.VenueUniswapV3, TokenIn: c.Stable, TokenOut: c.Native, Fee: 3000},
	}
	res := agg.Route(context.Background(), c, legs, testutils.Wei("0.01"))

	require.True(t, res.Ok())
	require.Len(t, res.Amounts, 3)
	assert.Equal(t, "10000000000000000", res.Amounts[0].String())
	assert.Equal(t, "20000000", res.Amounts[1].String())
	assert.Equal(t, "10200000000000000", res.Output().String())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Scan.QuoteMisses.WithLabelValues("arbitrum", dex.VenueUniswapV3)))
}

func TestAggregatorMissIsAValue(t *testing.T) {
	c, p := testutils.NewFakeChain(t, "base")
	p.Quotes = testutils.QuoteTable(map[string]*big.Int{
		testutils.QuoteKey(dex.VenueUniswapV3, "WETH", "USDC", 500): big.NewInt(20000000),
	})

	m := metrics.NewForTesting()
	agg := quote.NewAggregator(m, zaptest.NewLogger(t))

	legs := []types.Leg{
		{Venue: dex.VenueUniswapV3, TokenIn: c.Native, TokenOut: c.Stable, Fee: 500},
		{Venue: dex.VenueUniswapV3, TokenIn: c.Stable, TokenOut: c.Native, Fee: 100},
	}
	res := agg.Route(context.Background(), c, legs, testutils.Wei("0.01"))

	assert.False(t, res.Ok())
	assert.ErrorIs(t, res.Err, types.ErrQuoteUnavailable)
	assert.Nil(t, res.Output())
	assert.Len(t, res.Amounts, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Scan.QuoteMisses.WithLabelValues("base", dex.VenueUniswapV3)))
	assert.Equal(t, float64(1), m.QuoteMisses()["base"])
}

func TestAggregatorZeroOutputIsAMiss(t *testing.T) {
	c, p := testutils.NewFakeChain(t, "base")
	p.Quotes = func(leg types.Leg, amountIn *big.Int) (*big.Int, error) {
		return big.NewInt(0), nil
	}
	agg := quote.NewAggregator(metrics.NewForTesting(), zaptest.NewLogger(t))

	res := agg.Quote(context.Background(), c, types.Leg{Venue: dex.VenueUniswapV3, TokenIn: c.Native, TokenOut: c.Stable, Fee: 500}, big.NewInt(1))
	assert.False(t, res.Ok())
	assert.ErrorIs(t, res.Err, types.ErrQuoteUnavailable)
}
