package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Strategy tags the module that produced an opportunity
type Strategy string

const (
	StrategyFeeTier     Strategy = "simple-fee-tier"
	StrategyTriangular  Strategy = "triangular"
	StrategyCrossVenue  Strategy = "cross-venue"
	StrategyFlashLoan   Strategy = "flash-loan"
	StrategySandwich    Strategy = "mev-sandwich"
	StrategyLiquidation Strategy = "liquidation"
)

// AllStrategies lists every strategy in scan order
var AllStrategies = []Strategy{
	StrategyFeeTier,
	StrategyTriangular,
	StrategyCrossVenue,
	StrategyFlashLoan,
	StrategySandwich,
	StrategyLiquidation,
}

// ParseStrategy resolves a strategy tag
func ParseStrategy(name string) (Strategy, bool) {
	for _, s := range AllStrategies {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Settlement describes how an opportunity can be realized
type Settlement int

const (
	// SettlementOnChain opportunities are executed as a sequence of swaps
	SettlementOnChain Settlement = iota
	// SettlementUnimplemented opportunities have no execution path and are simulated
	SettlementUnimplemented
)

func (s Settlement) String() string {
	switch s {
	case SettlementOnChain:
		return "on-chain"
	case SettlementUnimplemented:
		return "unimplemented"
	default:
		return "unknown"
	}
}

// Token identifies an ERC-20 asset on one chain
type Token struct {
	Symbol   string         `json:"symbol"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// Leg is one swap hop on a venue
type Leg struct {
	Venue    string `json:"venue"`
	TokenIn  Token  `json:"tokenIn"`
	TokenOut Token  `json:"tokenOut"`
	Fee      uint32 `json:"fee"`
}

// Opportunity is a fully priced candidate trade. It is never mutated after a
// strategy returns it.
type Opportunity struct {
	ID         string
	Strategy   Strategy
	Settlement Settlement
	Chain      string
	Route      string
	Legs       []Leg

	// Amounts holds the input followed by the quoted output of every leg,
	// in smallest units of the respective token.
	Amounts []*big.Int

	GrossProfit   *big.Int
	GasUnits      uint64
	GasPrice      *big.Int
	GasCostNative *big.Int
	ProtocolFee   *big.Int

	NativePriceUsd decimal.Decimal
	GrossProfitUsd decimal.Decimal
	GasCostUsd     decimal.Decimal
	ProtocolFeeUsd decimal.Decimal
	NetProfitUsd   decimal.Decimal
	ThresholdUsd   decimal.Decimal
	Profitable     bool

	DiscoveredAt time.Time
}

// AmountIn returns the input amount of the route
func (o *Opportunity) AmountIn() *big.Int {
	if len(o.Amounts) == 0 {
		return new(big.Int)
	}
	return o.Amounts[0]
}

// AmountOut returns the quoted final output of the route
func (o *Opportunity) AmountOut() *big.Int {
	if len(o.Amounts) == 0 {
		return new(big.Int)
	}
	return o.Amounts[len(o.Amounts)-1]
}

// DescribeRoute renders legs as "WETH -(uniswap-v3:500)-> USDC -(uniswap-v3:3000)-> WETH"
func DescribeRoute(legs []Leg) string {
	if len(legs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(legs[0].TokenIn.Symbol)
	for _, leg := range legs {
		b.WriteString(" -(")
		b.WriteString(leg.Venue)
		if leg.Fee > 0 {
			b.WriteString(":")
			b.WriteString(strconv.FormatUint(uint64(leg.Fee), 10))
		}
		b.WriteString(")-> ")
		b.WriteString(leg.TokenOut.Symbol)
	}
	return b.String()
}

// OpportunityID derives a stable identifier for a scanned combination
func OpportunityID(strategy Strategy, chain, route string, amountIn *big.Int, at time.Time) string {
	h := xxhash.New()
	_, _ = h.WriteString(string(strategy))
	_, _ = h.WriteString(chain)
	_, _ = h.WriteString(route)
	if amountIn != nil {
		_, _ = h.Write(amountIn.Bytes())
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(at.UnixNano()))
	_, _ = h.Write(ts[:])
	return strconv.FormatUint(h.Sum64(), 16)
}

// Outcome classifies a finished execution attempt
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomePartial means at least one swap confirmed before a later step
	// failed. The intermediate asset stays in the wallet.
	OutcomePartial   Outcome = "partial"
	OutcomeSimulated Outcome = "simulated"
)

// StrandedAsset is what a partial execution left behind
type StrandedAsset struct {
	Token  Token    `json:"token"`
	Amount *big.Int `json:"amount"`
}

// MarshalJSON renders the amount as a decimal string
func (s StrandedAsset) MarshalJSON() ([]byte, error) {
	amount := "0"
	if s.Amount != nil {
		amount = s.Amount.String()
	}
	return json.Marshal(struct {
		Token  Token  `json:"token"`
		Amount string `json:"amount"`
	}{s.Token, amount})
}

// UnmarshalJSON accepts the decimal string form written by MarshalJSON
func (s *StrandedAsset) UnmarshalJSON(data []byte) error {
	var raw struct {
		Token  Token  `json:"token"`
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(raw.Amount, 10)
	if !ok {
		return fmt.Errorf("invalid stranded amount %q", raw.Amount)
	}
	s.Token, s.Amount = raw.Token, amount
	return nil
}

// ExecutionResult is the coordinator's report for one attempt
type ExecutionResult struct {
	Outcome   Outcome
	Success   bool
	Simulated bool

	ProfitNative  *big.Int
	GasCostNative *big.Int
	ProfitUsd     decimal.Decimal
	GasCostUsd    decimal.Decimal
	NetProfitUsd  decimal.Decimal

	TxHashes       []common.Hash
	CompletedSteps []string
	Stranded       *StrandedAsset

	Duration time.Duration
	Err      error
}

// Status maps the outcome onto the trade log vocabulary
func (r *ExecutionResult) Status() string {
	switch r.Outcome {
	case OutcomeCompleted:
		return "success"
	case OutcomeSimulated:
		return "simulated"
	default:
		return "failed"
	}
}

// TradeLogEntry summarizes one completed execution attempt
type TradeLogEntry struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Chain        string          `json:"chain"`
	Strategy     Strategy        `json:"strategy"`
	Route        string          `json:"route"`
	AmountIn     string          `json:"amountIn"`
	Status       string          `json:"status"`
	Outcome      Outcome         `json:"outcome"`
	ExpectedUsd  decimal.Decimal `json:"expectedUsd"`
	NetProfitUsd decimal.Decimal `json:"netProfitUsd"`
	GasCostUsd   decimal.Decimal `json:"gasCostUsd"`
	TxHashes     []string        `json:"txHashes,omitempty"`
	Stranded     *StrandedAsset  `json:"stranded,omitempty"`
	DurationMs   int64           `json:"durationMs"`
	Error        string          `json:"error,omitempty"`
}
