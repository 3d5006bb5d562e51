package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/dex"
	"github.com/michaelpento.lv/arbscanner/types"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
)

// Route is a predefined multi-hop path with one fee tier per hop
type Route struct {
	Tokens []types.Token
	Fees   []uint32
}

// Context is the read-only description of one chain for the whole run
type Context struct {
	Key      string
	Name     string
	ID       uint64
	Explorer string

	Native types.Token
	Stable types.Token
	Tokens map[string]types.Token

	FeeTiers         []uint32
	PriceFeeTier     uint32
	TradeAmounts     []*big.Int
	FlashLoanAmounts []*big.Int
	TriangularRoutes []Route
	Venues           []string

	Provider Provider
}

func toToken(cfg config.TokenConfig) types.Token {
	return types.Token{
		Symbol:   cfg.Symbol,
		Address:  common.HexToAddress(cfg.Address),
		Decimals: cfg.Decimals,
	}
}

// NewContext resolves a chain config against its provider. Triangular
// routes that name tokens the chain does not list, or that are not a
// round trip from the wrapped native token, are dropped.
func NewContext(cfg config.ChainConfig, provider Provider) (*Context, error) {
	c := &Context{
		Key:          cfg.Key,
		Name:         cfg.Name,
		ID:           cfg.ChainID,
		Explorer:     cfg.Explorer,
		Native:       toToken(cfg.WrappedNative),
		Stable:       toToken(cfg.Stable),
		Tokens:       make(map[string]types.Token),
		FeeTiers:     append([]uint32(nil), cfg.FeeTiers...),
		PriceFeeTier: cfg.PriceFeeTier,
		Venues:       []string{dex.VenueUniswapV3},
		Provider:     provider,
	}
	if c.PriceFeeTier == 0 && len(c.FeeTiers) > 0 {
		c.PriceFeeTier = c.FeeTiers[0]
	}
	if cfg.Venues.SushiswapRouter != "" {
		c.Venues = append(c.Venues, dex.VenueSushiswapV2)
	}

	c.Tokens[c.Native.Symbol] = c.Native
	c.Tokens[c.Stable.Symbol] = c.Stable
	for _, t := range cfg.Tokens {
		c.Tokens[t.Symbol] = toToken(t)
	}

	var err error
	if c.TradeAmounts, err = parseAmounts(cfg.TradeAmounts, c.Native.Decimals); err != nil {
		return nil, fmt.Errorf("chain %s: %w", cfg.Key, err)
	}
	if c.FlashLoanAmounts, err = parseAmounts(cfg.FlashLoanAmounts, c.Native.Decimals); err != nil {
		return nil, fmt.Errorf("chain %s: %w", cfg.Key, err)
	}

	for _, rc := range cfg.TriangularRoutes {
		route, ok := c.resolveRoute(rc)
		if ok {
			c.TriangularRoutes = append(c.TriangularRoutes, route)
		}
	}

	return c, nil
}

func parseAmounts(raw []string, decimals uint8) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(raw))
	for _, a := range raw {
		v, err := umath.ParseUnits(a, decimals)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Context) resolveRoute(rc config.RouteConfig) (Route, bool) {
	if len(rc.Tokens) < 3 || len(rc.Fees) != len(rc.Tokens)-1 {
		return Route{}, false
	}
	// amounts and profit are denominated in the wrapped native token
	if rc.Tokens[0] != c.Native.Symbol || rc.Tokens[len(rc.Tokens)-1] != c.Native.Symbol {
		return Route{}, false
	}
	route := Route{Fees: append([]uint32(nil), rc.Fees...)}
	for _, symbol := range rc.Tokens {
		t, ok := c.Tokens[symbol]
		if !ok {
			return Route{}, false
		}
		route.Tokens = append(route.Tokens, t)
	}
	return route, true
}

// Token looks up a token by symbol
func (c *Context) Token(symbol string) (types.Token, bool) {
	t, ok := c.Tokens[symbol]
	return t, ok
}

// HasVenue reports whether the chain has a deployment of venue
func (c *Context) HasVenue(venue string) bool {
	for _, v := range c.Venues {
		if v == venue {
			return true
		}
	}
	return false
}
