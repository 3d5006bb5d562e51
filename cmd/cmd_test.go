package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/types"
)

func TestKeygenPrintsMatchingAddress(t *testing.T) {
	var out bytes.Buffer
	keygenCmd.SetOut(&out)
	require.NoError(t, keygenCmd.RunE(keygenCmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], "PRIVATE_KEY=0x"))

	key, err := crypto.HexToECDSA(strings.TrimPrefix(lines[1], "PRIVATE_KEY=0x"))
	require.NoError(t, err)
	assert.Equal(t, "# address "+crypto.PubkeyToAddress(key.PublicKey).Hex(), lines[0])
}

func TestPrintStatus(t *testing.T) {
	snap := state.Snapshot{
		Running: true,
		DryRun:  true,
		Stats: state.StatsView{
			Ticks:        3,
			WinRate:      decimal.NewFromInt(50),
			NetProfitUsd: decimal.RequireFromString("1.234"),
		},
		Chains:     []state.ChainView{{Key: "base", Connected: true, BalanceEth: "0.5"}},
		Strategies: []state.StrategyView{{Name: types.StrategyFeeTier, Enabled: true, Scans: 3}},
		Opportunities: []state.OpportunityView{{
			Strategy:     types.StrategyFeeTier,
			Chain:        "base",
			Route:        "WETH -(uniswap-v3:500)-> USDC",
			NetProfitUsd: decimal.RequireFromString("0.65"),
		}},
	}

	var out bytes.Buffer
	printStatus(&out, snap)

	text := out.String()
	assert.Contains(t, text, "running: true (dry-run)")
	assert.Contains(t, text, "ticks: 3")
	assert.Contains(t, text, "net profit: $1.23")
	assert.Contains(t, text, "balance=0.5")
	assert.Contains(t, text, "best: simple-fee-tier WETH -(uniswap-v3:500)-> USDC on base net $0.6500")
}
