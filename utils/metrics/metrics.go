package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const DefaultNamespace = "arbscanner"

// Metrics groups every collector the bot exports. All collectors are
// registered on one registry so tests can run side by side.
type Metrics struct {
	Scan      *ScanMetrics
	Execution *ExecutionMetrics
	Chain     *ChainMetrics

	registry *prometheus.Registry
}

// New registers the bot's collectors on registry
func New(namespace string, registry *prometheus.Registry) *Metrics {
	return &Metrics{
		Scan:      NewScanMetrics(namespace, registry),
		Execution: NewExecutionMetrics(namespace, registry),
		Chain:     NewChainMetrics(namespace, registry),
		registry:  registry,
	}
}

// NewForTesting returns metrics on a private registry
func NewForTesting() *Metrics {
	return New("test", prometheus.NewRegistry())
}

// Registry exposes the underlying registry for promhttp and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// QuoteMisses sums quote misses per chain across venues
func (m *Metrics) QuoteMisses() map[string]float64 {
	out := make(map[string]float64)
	families, err := m.registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER || !strings.HasSuffix(mf.GetName(), "_quote_misses_total") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			out[labelValue(metric, "chain")] += metric.GetCounter().GetValue()
		}
	}
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

type ScanMetrics struct {
	Ticks          prometheus.Counter
	TicksSkipped   *prometheus.CounterVec
	ScanLatency    prometheus.Histogram
	StrategyScans  *prometheus.CounterVec
	StrategyErrors *prometheus.CounterVec
	Opportunities  *prometheus.CounterVec
	Profitable     *prometheus.CounterVec
	QuoteMisses    *prometheus.CounterVec
	QuoteLatency   *prometheus.HistogramVec
}

func NewScanMetrics(namespace string, reg prometheus.Registerer) *ScanMetrics {
	factory := promauto.With(reg)
	return &ScanMetrics{
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of scheduler ticks that ran a scan",
		}),
		TicksSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Ticks dropped before scanning or discarded as stale, by reason",
		}, []string{"reason"}),
		ScanLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_latency_seconds",
			Help:      "Wall time of one fan-out over all strategies",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		StrategyScans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_scans_total",
			Help:      "Strategy scans by strategy",
		}, []string{"strategy"}),
		StrategyErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_errors_total",
			Help:      "Strategy scans that failed as a whole",
		}, []string{"strategy"}),
		Opportunities: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Priced combinations by strategy",
		}, []string{"strategy"}),
		Profitable: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_profitable_total",
			Help:      "Combinations whose net profit met the threshold",
		}, []string{"strategy"}),
		QuoteMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_misses_total",
			Help:      "Quotes that could not be produced",
		}, []string{"chain", "venue"}),
		QuoteLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_latency_seconds",
			Help:      "Latency of single quote calls",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"venue"}),
	}
}

type ExecutionMetrics struct {
	Attempts      *prometheus.CounterVec
	Rejected      prometheus.Counter
	ExecutionTime prometheus.Histogram
	GasUsed       prometheus.Histogram
	NetProfitUsd  prometheus.Gauge
}

func NewExecutionMetrics(namespace string, reg prometheus.Registerer) *ExecutionMetrics {
	factory := promauto.With(reg)
	return &ExecutionMetrics{
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Execution attempts by outcome",
		}, []string{"strategy", "outcome"}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_rejected_total",
			Help:      "Execution requests rejected because another was in flight",
		}),
		ExecutionTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_time_seconds",
			Help:      "Time taken to execute an opportunity",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		GasUsed: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gas_used",
			Help:      "Gas used per swap transaction",
			Buckets:   prometheus.ExponentialBuckets(21000, 2, 10),
		}),
		NetProfitUsd: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "net_profit_usd",
			Help:      "Cumulative realized net profit in USD since start",
		}),
	}
}

type ChainMetrics struct {
	GasPriceGwei *prometheus.GaugeVec
	Live         *prometheus.GaugeVec
	Balance      *prometheus.GaugeVec
	RPCErrors    *prometheus.CounterVec
}

func NewChainMetrics(namespace string, reg prometheus.Registerer) *ChainMetrics {
	factory := promauto.With(reg)
	return &ChainMetrics{
		GasPriceGwei: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gas_price_gwei",
			Help:      "Last observed gas price per chain",
		}, []string{"chain"}),
		Live: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_live",
			Help:      "1 when the chain is connected and funded",
		}, []string{"chain"}),
		Balance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wallet_balance_native",
			Help:      "Wallet native balance per chain in whole units",
		}, []string{"chain"}),
		RPCErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_errors_total",
			Help:      "RPC failures per chain",
		}, []string{"chain"}),
	}
}
