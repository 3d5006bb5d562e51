package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/control"
	"github.com/michaelpento.lv/arbscanner/evaluator"
	"github.com/michaelpento.lv/arbscanner/executor"
	"github.com/michaelpento.lv/arbscanner/flashloan"
	"github.com/michaelpento.lv/arbscanner/gas"
	"github.com/michaelpento.lv/arbscanner/quote"
	"github.com/michaelpento.lv/arbscanner/scheduler"
	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/store/postgres"
	"github.com/michaelpento.lv/arbscanner/store/redis"
	"github.com/michaelpento.lv/arbscanner/strategies"
	"github.com/michaelpento.lv/arbscanner/strategies/arbitrage"
	"github.com/michaelpento.lv/arbscanner/strategies/liquidation"
	"github.com/michaelpento.lv/arbscanner/strategies/sandwich"
	"github.com/michaelpento.lv/arbscanner/types"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
	"github.com/michaelpento.lv/arbscanner/utils/monitor"
)

const metricsNamespace = "arbscanner"

// Options carries optional inputs that have no config file representation
type Options struct {
	// SandwichSignals feeds the sandwich detector; nil disables its output
	SandwichSignals strategies.SignalSource
	// LiquidationSignals feeds the liquidation hunter; nil disables its output
	LiquidationSignals strategies.SignalSource
}

// Bot owns the run state and every component of the scanner
type Bot struct {
	cfg         *config.Config
	metrics     *metrics.Metrics
	state       *state.RunState
	registry    *chain.Registry
	coordinator *executor.Coordinator
	scheduler   *scheduler.Scheduler
	logger      *zap.Logger

	closers []func()
	wg      sync.WaitGroup
}

// DialChains connects to every configured chain with the wallet
func DialChains(ctx context.Context, cfg *config.Config, secrets *config.Secrets, logger *zap.Logger) ([]*chain.Context, error) {
	opts := chain.EVMOptions{
		RateLimit:      cfg.RPCRateLimit,
		ReceiptTimeout: cfg.ReceiptTimeout.Duration,
	}

	chains := make([]*chain.Context, 0, len(cfg.Chains))
	for _, cc := range cfg.Chains {
		provider, err := chain.DialEVMProvider(ctx, cc, secrets, opts, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cc.Key, err)
		}
		c, err := chain.NewContext(cc, provider)
		if err != nil {
			return nil, err
		}
		chains = append(chains, c)
	}
	return chains, nil
}

// New wires the scanner over already resolved chains
func New(cfg *config.Config, chains []*chain.Context, opts Options, logger *zap.Logger) (*Bot, error) {
	m := metrics.New(metricsNamespace, prometheus.NewRegistry())

	enabled := make(map[types.Strategy]bool)
	thresholds := make(map[types.Strategy]decimal.Decimal)
	for _, sc := range cfg.Strategies {
		kind, ok := types.ParseStrategy(sc.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownStrategy, sc.Name)
		}
		threshold, err := decimal.NewFromString(sc.MinProfitUsd)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: invalid min profit: %w", sc.Name, err)
		}
		enabled[kind] = sc.Enabled
		thresholds[kind] = threshold
	}

	runState, err := state.New(state.Options{
		TradeLogLimit: cfg.TradeLogLimit,
		HistoryLimit:  cfg.HistoryLimit,
		LatencyWindow: cfg.LatencyWindow,
	}, enabled, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create run state: %w", err)
	}

	minBalance, err := umath.ParseUnits(cfg.MinLiveBalance, 18)
	if err != nil {
		return nil, fmt.Errorf("invalid min live balance: %w", err)
	}
	safetyMargin, err := umath.ParseUnits(cfg.SafetyMargin, 18)
	if err != nil {
		return nil, fmt.Errorf("invalid safety margin: %w", err)
	}
	fallback, err := decimal.NewFromString(cfg.FallbackNativePrice)
	if err != nil {
		return nil, fmt.Errorf("invalid fallback native price: %w", err)
	}
	realization, err := decimal.NewFromString(cfg.SimulatedRealization)
	if err != nil {
		return nil, fmt.Errorf("invalid simulated realization: %w", err)
	}

	registry := chain.NewRegistry(chains, minBalance, m, logger)
	pricer := strategies.NewPricer(quote.NewAggregator(m, logger), gas.NewEstimator(m, logger), fallback, logger)
	loans := flashloan.NewManager(cfg.FlashLoan, logger)

	strats := []strategies.Strategy{
		arbitrage.NewFeeTier(pricer, thresholds[types.StrategyFeeTier], logger),
		arbitrage.NewTriangular(pricer, thresholds[types.StrategyTriangular], logger),
		arbitrage.NewCrossVenue(pricer, thresholds[types.StrategyCrossVenue], logger),
		arbitrage.NewFlashLoan(pricer, loans, thresholds[types.StrategyFlashLoan], logger),
		sandwich.NewDetector(pricer, opts.SandwichSignals, thresholds[types.StrategySandwich], logger),
		liquidation.NewHunter(pricer, opts.LiquidationSignals, thresholds[types.StrategyLiquidation], logger),
	}

	coordinator := executor.NewCoordinator(runState, m, executor.Options{
		MaxSlippageBps:       cfg.MaxSlippageBps,
		SafetyMargin:         safetyMargin,
		SimulatedRealization: realization,
	}, logger)

	sched := scheduler.New(
		registry,
		strats,
		evaluator.NewEvaluator(runState, cfg.HistoryPerTick, logger),
		coordinator,
		runState,
		m,
		scheduler.Options{
			Interval:     cfg.ScanInterval.Duration,
			RefreshEvery: cfg.BalanceRefreshEvery,
			AutoExecute:  cfg.AutoExecute,
		},
		logger,
	)

	return &Bot{
		cfg:         cfg,
		metrics:     m,
		state:       runState,
		registry:    registry,
		coordinator: coordinator,
		scheduler:   sched,
		logger:      logger,
	}, nil
}

// AttachStores connects the optional Postgres journal and Redis lock.
// Unreachable stores are logged and skipped.
func (b *Bot) AttachStores(ctx context.Context) {
	if dsn := b.cfg.Postgres.DSN; dsn != "" {
		journal, err := postgres.Open(ctx, dsn)
		if err != nil {
			b.logger.Warn("Trade journal disabled", zap.Error(err))
		} else {
			b.coordinator.WithJournal(journal)
			b.closers = append(b.closers, journal.Close)
			b.logger.Info("Trade journal enabled")
		}
	}

	if addr := b.cfg.Redis.Addr; addr != "" {
		rdb, err := redis.Dial(ctx, b.cfg.Redis)
		if err != nil {
			b.logger.Warn("Distributed execution lock disabled", zap.Error(err))
		} else {
			b.coordinator.WithLocker(redis.NewLocker(rdb, b.cfg.Redis.LockKey, b.cfg.Redis.LockTTL.Duration))
			b.closers = append(b.closers, func() { _ = rdb.Close() })
			b.logger.Info("Distributed execution lock enabled", zap.String("addr", addr))
		}
	}
}

// Start resets the run state, refreshes chain balances and begins ticking
func (b *Bot) Start(ctx context.Context, dryRun bool) error {
	if err := b.state.Start(dryRun); err != nil {
		return err
	}

	b.registry.Refresh(ctx)
	b.state.UpdateChains(b.registry.Statuses())

	live := b.registry.Live()
	if len(live) == 0 {
		b.logger.Warn("No chain is connected and funded; ticks will be skipped until one is")
	}
	b.logger.Info("Scanner started",
		zap.Bool("dry_run", dryRun),
		zap.Int("live_chains", len(live)),
		zap.Bool("auto_execute", b.cfg.AutoExecute),
	)
	return nil
}

// Stop halts ticking. An in-flight execution runs to completion.
func (b *Bot) Stop() bool {
	return b.state.Stop()
}

func (b *Bot) Running() bool {
	return b.state.Running()
}

func (b *Bot) Snapshot() state.Snapshot {
	return b.state.Snapshot()
}

func (b *Bot) SetStrategyEnabled(kind types.Strategy, enabled bool) error {
	return b.state.SetStrategyEnabled(kind, enabled)
}

// State exposes the run state
func (b *Bot) State() *state.RunState {
	return b.state
}

// Scheduler exposes the tick loop
func (b *Bot) Scheduler() *scheduler.Scheduler {
	return b.scheduler
}

// Metrics exposes the metric set
func (b *Bot) Metrics() *metrics.Metrics {
	return b.metrics
}

// Run serves the control surface and ticks until ctx is cancelled. With
// autoStart the run begins immediately in the given mode.
func (b *Bot) Run(ctx context.Context, autoStart, dryRun bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer b.close()

	ctrlCfg := control.Config{Listen: b.cfg.Control.Listen}
	if b.cfg.PrometheusEnabled {
		ctrlCfg.Gatherer = b.metrics.Registry()
		ctrlCfg.MetricsPath = b.cfg.PrometheusEndpoint

		mon := monitor.NewSystemMonitor(ctx, metricsNamespace, b.metrics.Registry(), 15*time.Second, b.logger)
		b.closers = append(b.closers, mon.Cleanup)
	}
	server := control.NewServer(ctrlCfg, b, b.logger)

	var serveErr error
	if ctrlCfg.Listen != "" {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := server.ListenAndServe(); err != nil {
				b.logger.Error("Control server failed", zap.Error(err))
				serveErr = err
				cancel()
			}
		}()
	}

	if autoStart {
		if err := b.Start(ctx, dryRun); err != nil {
			cancel()
			_ = server.Shutdown(context.Background())
			b.wg.Wait()
			return err
		}
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		_ = b.scheduler.Run(ctx)
	}()

	<-ctx.Done()
	b.logger.Info("Shutting down gracefully...")
	b.state.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		b.logger.Warn("Control server shutdown", zap.Error(err))
	}

	b.wg.Wait()
	return serveErr
}

func (b *Bot) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
