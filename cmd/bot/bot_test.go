package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils/testutils"
)

func newTestBot(t *testing.T, mutate ...func(*config.Config)) (*Bot, *testutils.FakeProvider) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Control.Listen = ""
	cfg.PrometheusEnabled = false
	for _, fn := range mutate {
		fn(cfg)
	}

	c, provider := testutils.NewFakeChain(t, "base")
	provider.Quotes = testutils.QuoteRates(testutils.GapRates())

	b, err := New(cfg, []*chain.Context{c}, Options{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return b, provider
}

func TestBotDryRunTick(t *testing.T) {
	b, provider := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, b.Start(ctx, true))
	b.Scheduler().Tick(ctx)

	snap := b.Snapshot()
	assert.True(t, snap.Running)
	assert.True(t, snap.DryRun)
	assert.Equal(t, uint64(1), snap.Stats.Ticks)
	assert.Equal(t, "base", snap.Stats.CurrentChain)
	assert.NotEmpty(t, snap.Opportunities)
	assert.Empty(t, snap.TradeLog)
	assert.Empty(t, provider.CallLog())

	require.Len(t, snap.Chains, 1)
	assert.True(t, snap.Chains[0].Connected)
}

func TestBotExecutesBestOpportunity(t *testing.T) {
	b, provider := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, b.Start(ctx, false))
	b.Scheduler().Tick(ctx)

	// the 10 WETH flash loan dominates and has no settlement path
	log := b.State().TradeLog()
	require.Len(t, log, 1)
	assert.Equal(t, types.StrategyFlashLoan, log[0].Strategy)
	assert.Equal(t, types.OutcomeSimulated, log[0].Outcome)
	assert.Empty(t, provider.CallLog())
	assert.Equal(t, uint64(1), b.State().Stats().TradesAttempted)
}

func TestBotStartTwice(t *testing.T) {
	b, _ := newTestBot(t)

	require.NoError(t, b.Start(context.Background(), true))
	assert.ErrorIs(t, b.Start(context.Background(), true), types.ErrAlreadyRunning)

	assert.True(t, b.Stop())
	assert.False(t, b.Running())
}

func TestBotToggleStrategy(t *testing.T) {
	b, _ := newTestBot(t)

	require.NoError(t, b.SetStrategyEnabled(types.StrategyTriangular, false))
	assert.False(t, b.State().StrategyEnabled(types.StrategyTriangular))
	assert.ErrorIs(t, b.SetStrategyEnabled(types.Strategy("frontrun"), true), types.ErrUnknownStrategy)
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategies = append(cfg.Strategies, config.StrategyConfig{Name: "frontrun", Enabled: true, MinProfitUsd: "1"})

	_, err := New(cfg, nil, Options{}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, types.ErrUnknownStrategy)
}

func TestRunStopsOnCancel(t *testing.T) {
	b, _ := newTestBot(t, func(cfg *config.Config) {
		cfg.ScanInterval = config.Duration{Duration: 10 * time.Millisecond}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, b.Run(ctx, true, true))
	assert.False(t, b.Running())
	assert.Positive(t, b.State().Stats().Ticks)
}
