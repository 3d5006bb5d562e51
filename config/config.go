package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Scheduling
	ScanInterval        Duration `json:"scan_interval" yaml:"scan_interval" toml:"scan_interval"`
	BalanceRefreshEvery int      `json:"balance_refresh_every" yaml:"balance_refresh_every" toml:"balance_refresh_every"`
	LatencyWindow       int      `json:"latency_window" yaml:"latency_window" toml:"latency_window"`

	// Execution
	AutoExecute           bool     `json:"auto_execute" yaml:"auto_execute" toml:"auto_execute"`
	MaxSlippageBps        uint32   `json:"max_slippage_bps" yaml:"max_slippage_bps" toml:"max_slippage_bps"`
	SafetyMargin          string   `json:"safety_margin" yaml:"safety_margin" toml:"safety_margin"`
	MinLiveBalance        string   `json:"min_live_balance" yaml:"min_live_balance" toml:"min_live_balance"`
	SimulatedRealization  string   `json:"simulated_realization" yaml:"simulated_realization" toml:"simulated_realization"`
	FallbackNativePrice   string   `json:"fallback_native_price" yaml:"fallback_native_price" toml:"fallback_native_price"`
	ReceiptTimeout        Duration `json:"receipt_timeout" yaml:"receipt_timeout" toml:"receipt_timeout"`
	TradeLogLimit         int      `json:"trade_log_limit" yaml:"trade_log_limit" toml:"trade_log_limit"`
	HistoryLimit          int      `json:"history_limit" yaml:"history_limit" toml:"history_limit"`
	HistoryPerTick        int      `json:"history_per_tick" yaml:"history_per_tick" toml:"history_per_tick"`

	Strategies []StrategyConfig `json:"strategies" yaml:"strategies" toml:"strategies"`
	FlashLoan  FlashLoanConfig  `json:"flash_loan" yaml:"flash_loan" toml:"flash_loan"`
	Chains     []ChainConfig    `json:"chains" yaml:"chains" toml:"chains"`

	RPCRateLimit RateLimitConfig `json:"rpc_rate_limit" yaml:"rpc_rate_limit" toml:"rpc_rate_limit"`

	Control  ControlConfig  `json:"control" yaml:"control" toml:"control"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres" toml:"postgres"`
	Redis    RedisConfig    `json:"redis" yaml:"redis" toml:"redis"`

	// Feature flags
	PrometheusEnabled  bool   `json:"prometheus_enabled" yaml:"prometheus_enabled" toml:"prometheus_enabled"`
	PrometheusEndpoint string `json:"prometheus_endpoint" yaml:"prometheus_endpoint" toml:"prometheus_endpoint"`
}

type StrategyConfig struct {
	Name         string `json:"name" yaml:"name" toml:"name"`
	Enabled      bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	MinProfitUsd string `json:"min_profit_usd" yaml:"min_profit_usd" toml:"min_profit_usd"`
}

type FlashLoanConfig struct {
	Providers []FlashLoanProviderConfig `json:"providers" yaml:"providers" toml:"providers"`
}

type FlashLoanProviderConfig struct {
	Name   string `json:"name" yaml:"name" toml:"name"`
	FeeBps uint32 `json:"fee_bps" yaml:"fee_bps" toml:"fee_bps"`
}

type ChainConfig struct {
	Key         string `json:"key" yaml:"key" toml:"key"`
	Name        string `json:"name" yaml:"name" toml:"name"`
	ChainID     uint64 `json:"chain_id" yaml:"chain_id" toml:"chain_id"`
	RPCEndpoint string `json:"rpc_endpoint" yaml:"rpc_endpoint" toml:"rpc_endpoint"`
	Explorer    string `json:"explorer" yaml:"explorer" toml:"explorer"`

	WrappedNative TokenConfig   `json:"wrapped_native" yaml:"wrapped_native" toml:"wrapped_native"`
	Stable        TokenConfig   `json:"stable" yaml:"stable" toml:"stable"`
	Tokens        []TokenConfig `json:"tokens" yaml:"tokens" toml:"tokens"`

	FeeTiers         []uint32      `json:"fee_tiers" yaml:"fee_tiers" toml:"fee_tiers"`
	PriceFeeTier     uint32        `json:"price_fee_tier" yaml:"price_fee_tier" toml:"price_fee_tier"`
	TradeAmounts     []string      `json:"trade_amounts" yaml:"trade_amounts" toml:"trade_amounts"`
	FlashLoanAmounts []string      `json:"flash_loan_amounts" yaml:"flash_loan_amounts" toml:"flash_loan_amounts"`
	TriangularRoutes []RouteConfig `json:"triangular_routes" yaml:"triangular_routes" toml:"triangular_routes"`

	Venues VenueConfig `json:"venues" yaml:"venues" toml:"venues"`
}

type TokenConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol" toml:"symbol"`
	Address  string `json:"address" yaml:"address" toml:"address"`
	Decimals uint8  `json:"decimals" yaml:"decimals" toml:"decimals"`
}

type RouteConfig struct {
	Tokens []string `json:"tokens" yaml:"tokens" toml:"tokens"`
	Fees   []uint32 `json:"fees" yaml:"fees" toml:"fees"`
}

type VenueConfig struct {
	UniswapV3Quoter string `json:"uniswap_v3_quoter" yaml:"uniswap_v3_quoter" toml:"uniswap_v3_quoter"`
	UniswapV3Router string `json:"uniswap_v3_router" yaml:"uniswap_v3_router" toml:"uniswap_v3_router"`
	SushiswapRouter string `json:"sushiswap_router" yaml:"sushiswap_router" toml:"sushiswap_router"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64  `json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	BurstSize         int      `json:"burst_size" yaml:"burst_size" toml:"burst_size"`
	WaitTimeout       Duration `json:"wait_timeout" yaml:"wait_timeout" toml:"wait_timeout"`
}

type ControlConfig struct {
	Listen string `json:"listen" yaml:"listen" toml:"listen"`
}

type PostgresConfig struct {
	DSN string `json:"dsn" yaml:"dsn" toml:"dsn"`
}

type RedisConfig struct {
	Addr     string   `json:"addr" yaml:"addr" toml:"addr"`
	Password string   `json:"password" yaml:"password" toml:"password"`
	DB       int      `json:"db" yaml:"db" toml:"db"`
	LockKey  string   `json:"lock_key" yaml:"lock_key" toml:"lock_key"`
	LockTTL  Duration `json:"lock_ttl" yaml:"lock_ttl" toml:"lock_ttl"`
}

// Duration accepts "5s" style strings in JSON, YAML and TOML
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var text string
	if err := unmarshal(&text); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(text))
}

// Strategy returns the settings for one strategy, if configured
func (c *Config) Strategy(name string) (StrategyConfig, bool) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return StrategyConfig{}, false
}

func (c *Config) Validate() error {
	var errors []string

	if c.ScanInterval.Duration <= 0 {
		errors = append(errors, "scan_interval must be positive")
	}
	if c.BalanceRefreshEvery <= 0 {
		errors = append(errors, "balance_refresh_every must be positive")
	}
	if c.MaxSlippageBps >= 10000 {
		errors = append(errors, "max_slippage_bps must be below 10000")
	}
	for name, value := range map[string]string{
		"safety_margin":         c.SafetyMargin,
		"min_live_balance":      c.MinLiveBalance,
		"simulated_realization": c.SimulatedRealization,
		"fallback_native_price": c.FallbackNativePrice,
	} {
		if _, err := decimal.NewFromString(value); err != nil {
			errors = append(errors, fmt.Sprintf("%s must be a decimal: %v", name, err))
		}
	}
	for _, s := range c.Strategies {
		if _, err := decimal.NewFromString(s.MinProfitUsd); err != nil {
			errors = append(errors, fmt.Sprintf("strategy %s: min_profit_usd must be a decimal", s.Name))
		}
	}
	if len(c.Chains) == 0 {
		errors = append(errors, "at least one chain must be configured")
	}
	seen := make(map[string]bool)
	for _, ch := range c.Chains {
		if seen[ch.Key] {
			errors = append(errors, fmt.Sprintf("duplicate chain key %q", ch.Key))
		}
		seen[ch.Key] = true
		if err := ch.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("chain %s: %v", ch.Key, err))
		}
	}
	if err := c.RPCRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("RPC rate limit error: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (c *ChainConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("key must be specified")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("chain_id must be specified")
	}
	if c.RPCEndpoint == "" {
		return fmt.Errorf("rpc_endpoint must be specified")
	}
	for _, t := range append([]TokenConfig{c.WrappedNative, c.Stable}, c.Tokens...) {
		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("token %s has invalid address %q", t.Symbol, t.Address)
		}
	}
	if !common.IsHexAddress(c.Venues.UniswapV3Quoter) || !common.IsHexAddress(c.Venues.UniswapV3Router) {
		return fmt.Errorf("uniswap v3 quoter and router must be valid addresses")
	}
	if c.Venues.SushiswapRouter != "" && !common.IsHexAddress(c.Venues.SushiswapRouter) {
		return fmt.Errorf("sushiswap_router is not a valid address")
	}
	if len(c.FeeTiers) < 2 {
		return fmt.Errorf("at least two fee tiers are required")
	}
	if len(c.TradeAmounts) == 0 {
		return fmt.Errorf("trade_amounts must not be empty")
	}
	for _, a := range append(append([]string{}, c.TradeAmounts...), c.FlashLoanAmounts...) {
		d, err := decimal.NewFromString(a)
		if err != nil || !d.IsPositive() {
			return fmt.Errorf("amount %q must be a positive decimal", a)
		}
	}
	for _, r := range c.TriangularRoutes {
		if len(r.Tokens) != len(r.Fees)+1 {
			return fmt.Errorf("route %v needs one fee per hop", r.Tokens)
		}
		if r.Tokens[0] != c.WrappedNative.Symbol || r.Tokens[len(r.Tokens)-1] != c.WrappedNative.Symbol {
			return fmt.Errorf("route %v must start and end in %s", r.Tokens, c.WrappedNative.Symbol)
		}
	}
	return nil
}

func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	if r.WaitTimeout.Duration <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}

	return nil
}

// LoadConfig reads a JSON, YAML or TOML file on top of DefaultConfig. An
// empty path yields the defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	config := DefaultConfig()
	if cfgFile == "" {
		return config, config.Validate()
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	// Lists replace the defaults wholesale instead of merging element-wise.
	defaults := *config
	config.Strategies, config.Chains, config.FlashLoan.Providers = nil, nil, nil

	switch strings.ToLower(filepath.Ext(cfgFile)) {
	case ".json":
		err = json.Unmarshal(data, config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".toml":
		_, err = toml.Decode(string(data), config)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(cfgFile))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if len(config.Strategies) == 0 {
		config.Strategies = defaults.Strategies
	}
	if len(config.Chains) == 0 {
		config.Chains = defaults.Chains
	}
	if len(config.FlashLoan.Providers) == 0 {
		config.FlashLoan.Providers = defaults.FlashLoan.Providers
	}
	config.fillChainDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// fillChainDefaults completes chains that name a known network but leave
// fields out.
func (c *Config) fillChainDefaults() {
	known := make(map[string]ChainConfig)
	for _, ch := range DefaultChains() {
		known[ch.Key] = ch
	}
	for i := range c.Chains {
		ch := &c.Chains[i]
		def, ok := known[ch.Key]
		if !ok {
			continue
		}
		if ch.Name == "" {
			ch.Name = def.Name
		}
		if ch.ChainID == 0 {
			ch.ChainID = def.ChainID
		}
		if ch.RPCEndpoint == "" {
			ch.RPCEndpoint = def.RPCEndpoint
		}
		if ch.Explorer == "" {
			ch.Explorer = def.Explorer
		}
		if ch.WrappedNative.Address == "" {
			ch.WrappedNative = def.WrappedNative
		}
		if ch.Stable.Address == "" {
			ch.Stable = def.Stable
		}
		if len(ch.Tokens) == 0 {
			ch.Tokens = def.Tokens
		}
		if len(ch.FeeTiers) == 0 {
			ch.FeeTiers = def.FeeTiers
		}
		if ch.PriceFeeTier == 0 {
			ch.PriceFeeTier = def.PriceFeeTier
		}
		if len(ch.TradeAmounts) == 0 {
			ch.TradeAmounts = def.TradeAmounts
		}
		if len(ch.FlashLoanAmounts) == 0 {
			ch.FlashLoanAmounts = def.FlashLoanAmounts
		}
		if len(ch.TriangularRoutes) == 0 {
			ch.TriangularRoutes = def.TriangularRoutes
		}
		if ch.Venues == (VenueConfig{}) {
			ch.Venues = def.Venues
		}
	}
}

func SaveConfig(cfg *Config, cfgFile string) error {
	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}
