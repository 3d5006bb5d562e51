package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/dex"
)

func TestNewContextFromDefaults(t *testing.T) {
	cfg := config.DefaultChains()[1]
	c, err := NewContext(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "arbitrum", c.Key)
	assert.Equal(t, uint64(42161), c.ID)
	assert.Equal(t, "WETH", c.Native.Symbol)
	assert.Equal(t, uint8(6), c.Stable.Decimals)
	require.Len(t, c.TradeAmounts, 3)
	assert.Equal(t, "10000000000000000", c.TradeAmounts[1].String())
	assert.Equal(t, "1000000000000000000", c.FlashLoanAmounts[0].String())
	assert.True(t, c.HasVenue(dex.VenueUniswapV3))
	assert.True(t, c.HasVenue(dex.VenueSushiswapV2))

	require.Len(t, c.TriangularRoutes, 1)
	route := c.TriangularRoutes[0]
	assert.Equal(t, "USDT", route.Tokens[2].Symbol)
	assert.Equal(t, []uint32{500, 100, 500}, route.Fees)
}

func TestNewContextDropsRoutesWithUnknownTokens(t *testing.T) {
	cfg := config.DefaultChains()[0]
	cfg.Venues.SushiswapRouter = ""
	cfg.TriangularRoutes = append(cfg.TriangularRoutes, config.RouteConfig{
		Tokens: []string{"WETH", "USDC", "FRAX", "WETH"},
		Fees:   []uint32{500, 100, 500},
	})

	c, err := NewContext(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, c.TriangularRoutes, 1)
	assert.False(t, c.HasVenue(dex.VenueSushiswapV2))
}

func TestNewContextDropsRoutesOutsideNative(t *testing.T) {
	cfg := config.DefaultChains()[0]
	cfg.TriangularRoutes = []config.RouteConfig{
		{Tokens: []string{"USDC", "WETH", "DAI", "USDC"}, Fees: []uint32{500, 500, 100}},
		{Tokens: []string{"WETH", "USDC", "DAI"}, Fees: []uint32{500, 100}},
		{Tokens: []string{"WETH", "USDC", "DAI", "WETH"}, Fees: []uint32{500, 100, 500}},
	}

	c, err := NewContext(cfg, nil)
	require.NoError(t, err)
	require.Len(t, c.TriangularRoutes, 1)
	assert.Equal(t, "WETH", c.TriangularRoutes[0].Tokens[0].Symbol)
	assert.Equal(t, "WETH", c.TriangularRoutes[0].Tokens[3].Symbol)
}

func TestNewContextRejectsBadAmounts(t *testing.T) {
	cfg := config.DefaultChains()[0]
	cfg.TradeAmounts = []string{"0.0000000000000000001"}
	_, err := NewContext(cfg, nil)
	assert.Error(t, err)
}
