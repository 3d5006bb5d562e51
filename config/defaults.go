package config

import (
	"time"
)

// DefaultStrategies enables every strategy with its minimum net profit in USD
func DefaultStrategies() []StrategyConfig {
	return []StrategyConfig{
		{Name: "simple-fee-tier", Enabled: true, MinProfitUsd: "0.01"},
		{Name: "triangular", Enabled: true, MinProfitUsd: "0.05"},
		{Name: "cross-venue", Enabled: true, MinProfitUsd: "0.05"},
		{Name: "flash-loan", Enabled: true, MinProfitUsd: "1.00"},
		{Name: "mev-sandwich", Enabled: true, MinProfitUsd: "0.50"},
		{Name: "liquidation", Enabled: true, MinProfitUsd: "0.50"},
	}
}

// DefaultChains returns the Base, Arbitrum and Optimism deployments
func DefaultChains() []ChainConfig {
	weth := "0x4200000000000000000000000000000000000006"
	feeTiers := []uint32{100, 500, 3000}
	tradeAmounts := []string{"0.005", "0.01", "0.02"}
	flashAmounts := []string{"1", "5", "10"}

	return []ChainConfig{
		{
			Key:           "base",
			Name:          "Base",
			ChainID:       8453,
			RPCEndpoint:   "https://mainnet.base.org",
			Explorer:      "https://basescan.org",
			WrappedNative: TokenConfig{Symbol: "WETH", Address: weth, Decimals: 18},
			Stable:        TokenConfig{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
			Tokens: []TokenConfig{
				{Symbol: "DAI", Address: "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb", Decimals: 18},
			},
			FeeTiers:         feeTiers,
			PriceFeeTier:     500,
			TradeAmounts:     tradeAmounts,
			FlashLoanAmounts: flashAmounts,
			TriangularRoutes: []RouteConfig{
				{Tokens: []string{"WETH", "USDC", "DAI", "WETH"}, Fees: []uint32{500, 100, 500}},
			},
			Venues: VenueConfig{
				UniswapV3Quoter: "0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a",
				UniswapV3Router: "0x2626664c2603336E57B271c5C0b26F421741e481",
				SushiswapRouter: "0x6BDED42c6DA8FBf0d2bA55B2fa120C5e0c8D7891",
			},
		},
		{
			Key:           "arbitrum",
			Name:          "Arbitrum One",
			ChainID:       42161,
			RPCEndpoint:   "https://arb1.arbitrum.io/rpc",
			Explorer:      "https://arbiscan.io",
			WrappedNative: TokenConfig{Symbol: "WETH", Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Decimals: 18},
			Stable:        TokenConfig{Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
			Tokens: []TokenConfig{
				{Symbol: "USDT", Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Decimals: 6},
			},
			FeeTiers:         feeTiers,
			PriceFeeTier:     500,
			TradeAmounts:     tradeAmounts,
			FlashLoanAmounts: flashAmounts,
			TriangularRoutes: []RouteConfig{
				{Tokens: []string{"WETH", "USDC", "USDT", "WETH"}, Fees: []uint32{500, 100, 500}},
			},
			Venues: VenueConfig{
				UniswapV3Quoter: "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
				UniswapV3Router: "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
				SushiswapRouter: "0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506",
			},
		},
		{
			Key:           "optimism",
			Name:          "Optimism",
			ChainID:       10,
			RPCEndpoint:   "https://mainnet.optimism.io",
			Explorer:      "https://optimistic.etherscan.io",
			WrappedNative: TokenConfig{Symbol: "WETH", Address: weth, Decimals: 18},
			Stable:        TokenConfig{Symbol: "USDC", Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Decimals: 6},
			Tokens: []TokenConfig{
				{Symbol: "USDT", Address: "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", Decimals: 6},
			},
			FeeTiers:         feeTiers,
			PriceFeeTier:     500,
			TradeAmounts:     tradeAmounts,
			FlashLoanAmounts: flashAmounts,
			TriangularRoutes: []RouteConfig{
				{Tokens: []string{"WETH", "USDC", "USDT", "WETH"}, Fees: []uint32{500, 100, 500}},
			},
			Venues: VenueConfig{
				UniswapV3Quoter: "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
				UniswapV3Router: "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
				SushiswapRouter: "0x2ABf469074dc0b54d793850807E6eb5Faf2625b1",
			},
		},
	}
}

func DefaultConfig() *Config {
	return &Config{
		ScanInterval:         Duration{5 * time.Second},
		BalanceRefreshEvery:  30,
		LatencyWindow:        20,
		AutoExecute:          true,
		MaxSlippageBps:       50,
		SafetyMargin:         "0.001",
		MinLiveBalance:       "0.0005",
		SimulatedRealization: "0.8",
		FallbackNativePrice:  "3500",
		ReceiptTimeout:       Duration{2 * time.Minute},
		TradeLogLimit:        50,
		HistoryLimit:         50,
		HistoryPerTick:       20,
		Strategies:           DefaultStrategies(),
		FlashLoan: FlashLoanConfig{
			Providers: []FlashLoanProviderConfig{
				{Name: "aave-v3", FeeBps: 9},
			},
		},
		Chains: DefaultChains(),
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 25,
			BurstSize:         50,
			WaitTimeout:       Duration{time.Second},
		},
		Control: ControlConfig{
			Listen: "127.0.0.1:3001",
		},
		Redis: RedisConfig{
			LockKey: "arbscanner:execution",
			LockTTL: Duration{5 * time.Minute},
		},
		PrometheusEnabled:  true,
		PrometheusEndpoint: "/metrics",
	}
}
