package state

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/michaelpento.lv/arbscanner/types"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
)

// Snapshot is the JSON view of a RunState. Big integers are rendered as
// decimal strings and USD amounts as decimal strings.
type Snapshot struct {
	Running     bool               `json:"running"`
	DryRun      bool               `json:"dryRun"`
	StartedAt   *time.Time         `json:"startedAt,omitempty"`
	UptimeSec   int64              `json:"uptimeSec"`
	Stats       StatsView          `json:"stats"`
	Strategies  []StrategyView     `json:"strategies"`
	Chains      []ChainView        `json:"chains"`
	QuoteMisses map[string]float64 `json:"quoteMisses"`

	TradeLog      []types.TradeLogEntry `json:"tradeLog"`
	History       []OpportunityView     `json:"opportunityHistory"`
	Opportunities []OpportunityView     `json:"opportunities"`
}

type StatsView struct {
	Ticks                  uint64          `json:"ticks"`
	Scans                  uint64          `json:"scans"`
	OpportunitiesEvaluated uint64          `json:"opportunitiesEvaluated"`
	ProfitableFound        uint64          `json:"profitableFound"`
	TradesAttempted        uint64          `json:"tradesAttempted"`
	TradesSucceeded        uint64          `json:"tradesSucceeded"`
	TotalProfitUsd         decimal.Decimal `json:"totalProfitUsd"`
	TotalGasUsd            decimal.Decimal `json:"totalGasUsd"`
	NetProfitUsd           decimal.Decimal `json:"netProfitUsd"`
	WinRate                decimal.Decimal `json:"winRate"`
	AvgScanLatencyMs       float64         `json:"avgScanLatencyMs"`
	ScansPerSecond         float64         `json:"scansPerSecond"`
	CurrentChain           string          `json:"currentChain"`
	LastScanAt             *time.Time      `json:"lastScanAt,omitempty"`
}

type StrategyView struct {
	Name       types.Strategy `json:"name"`
	Enabled    bool           `json:"enabled"`
	Scans      uint64         `json:"scans"`
	Evaluated  uint64         `json:"evaluated"`
	Profitable uint64         `json:"profitable"`
	Errors     uint64         `json:"errors"`
	LastError  string         `json:"lastError,omitempty"`
}

type ChainView struct {
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Connected   bool       `json:"connected"`
	Balance     string     `json:"balance"`
	BalanceEth  string     `json:"balanceFormatted"`
	LastChecked *time.Time `json:"lastChecked,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

type OpportunityView struct {
	ID             string          `json:"id"`
	Strategy       types.Strategy  `json:"strategy"`
	Settlement     string          `json:"settlement"`
	Chain          string          `json:"chain"`
	Route          string          `json:"route"`
	AmountIn       string          `json:"amountIn"`
	AmountOut      string          `json:"amountOut"`
	GrossProfit    string          `json:"grossProfit"`
	GasUnits       uint64          `json:"gasUnits"`
	GasPrice       string          `json:"gasPrice"`
	GasCostNative  string          `json:"gasCost"`
	ProtocolFee    string          `json:"protocolFee"`
	GrossProfitUsd decimal.Decimal `json:"grossProfitUsd"`
	GasCostUsd     decimal.Decimal `json:"gasCostUsd"`
	ProtocolFeeUsd decimal.Decimal `json:"protocolFeeUsd"`
	NetProfitUsd   decimal.Decimal `json:"netProfitUsd"`
	ThresholdUsd   decimal.Decimal `json:"thresholdUsd"`
	Profitable     bool            `json:"profitable"`
	DiscoveredAt   time.Time       `json:"discoveredAt"`
}

// ViewOf renders one opportunity
func ViewOf(o *types.Opportunity) OpportunityView {
	v := OpportunityView{
		ID:             o.ID,
		Strategy:       o.Strategy,
		Settlement:     o.Settlement.String(),
		Chain:          o.Chain,
		Route:          o.Route,
		AmountIn:       o.AmountIn().String(),
		AmountOut:      o.AmountOut().String(),
		GasUnits:       o.GasUnits,
		GrossProfitUsd: o.GrossProfitUsd,
		GasCostUsd:     o.GasCostUsd,
		ProtocolFeeUsd: o.ProtocolFeeUsd,
		NetProfitUsd:   o.NetProfitUsd,
		ThresholdUsd:   o.ThresholdUsd,
		Profitable:     o.Profitable,
		DiscoveredAt:   o.DiscoveredAt,
	}
	v.GrossProfit, v.GasPrice, v.GasCostNative, v.ProtocolFee = "0", "0", "0", "0"
	if o.GrossProfit != nil {
		v.GrossProfit = o.GrossProfit.String()
	}
	if o.GasPrice != nil {
		v.GasPrice = o.GasPrice.String()
	}
	if o.GasCostNative != nil {
		v.GasCostNative = o.GasCostNative.String()
	}
	if o.ProtocolFee != nil {
		v.ProtocolFee = o.ProtocolFee.String()
	}
	return v
}

func viewsOf(opps []*types.Opportunity) []OpportunityView {
	out := make([]OpportunityView, 0, len(opps))
	for _, o := range opps {
		out = append(out, ViewOf(o))
	}
	return out
}

// Snapshot copies the whole state for serialization
func (s *RunState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Running: s.running,
		DryRun:  s.dryRun,
		Stats: StatsView{
			Ticks:                  s.stats.Ticks,
			Scans:                  s.stats.Scans,
			OpportunitiesEvaluated: s.stats.OpportunitiesEvaluated,
			ProfitableFound:        s.stats.ProfitableFound,
			TradesAttempted:        s.stats.TradesAttempted,
			TradesSucceeded:        s.stats.TradesSucceeded,
			TotalProfitUsd:         s.stats.TotalProfitUsd,
			TotalGasUsd:            s.stats.TotalGasUsd,
			NetProfitUsd:           s.stats.NetProfitUsd,
			WinRate:                s.stats.WinRate,
			AvgScanLatencyMs:       float64(s.stats.AvgScanLatency) / float64(time.Millisecond),
			ScansPerSecond:         s.stats.ScansPerSecond,
			CurrentChain:           s.stats.CurrentChain,
		},
		Chains:        []ChainView{},
		QuoteMisses:   map[string]float64{},
		TradeLog:      s.trades.Items(),
		History:       viewsOf(s.history.Items()),
		Opportunities: viewsOf(s.latest),
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		snap.StartedAt = &started
		if s.running {
			snap.UptimeSec = int64(time.Since(started).Seconds())
		}
	}
	if !s.stats.LastScanAt.IsZero() {
		last := s.stats.LastScanAt
		snap.Stats.LastScanAt = &last
	}

	for _, kind := range types.AllStrategies {
		st := s.strategies[kind]
		snap.Strategies = append(snap.Strategies, StrategyView{
			Name:       kind,
			Enabled:    st.Enabled,
			Scans:      st.Scans,
			Evaluated:  st.Evaluated,
			Profitable: st.Profitable,
			Errors:     st.Errors,
			LastError:  st.LastError,
		})
	}

	for _, c := range s.chains {
		view := ChainView{
			Key:        c.Key,
			Name:       c.Name,
			Connected:  c.Connected,
			Balance:    "0",
			BalanceEth: "0",
			LastError:  c.LastError,
		}
		if c.Balance != nil {
			view.Balance = c.Balance.String()
			view.BalanceEth = umath.ToDecimal(c.Balance, 18).String()
		}
		if !c.LastChecked.IsZero() {
			checked := c.LastChecked
			view.LastChecked = &checked
		}
		snap.Chains = append(snap.Chains, view)
	}

	if s.metrics != nil {
		snap.QuoteMisses = s.metrics.QuoteMisses()
	}
	return snap
}
