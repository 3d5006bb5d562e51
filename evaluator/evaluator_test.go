package evaluator

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/types"
)

func opp(id, net string, profitable bool) *types.Opportunity {
	return &types.Opportunity{
		ID:           id,
		NetProfitUsd: decimal.RequireFromString(net),
		Profitable:   profitable,
	}
}

func TestSelectPicksHighestProfitable(t *testing.T) {
	opps := []*types.Opportunity{
		opp("a", "0.20", true),
		opp("b", "5.00", false),
		opp("c", "0.65", true),
		opp("d", "0.65", true),
		opp("e", "-1", false),
	}

	best := Select(opps)
	require.NotNil(t, best)
	assert.Equal(t, "c", best.ID, "first of equal candidates wins")

	// idempotent and pure
	assert.Same(t, best, Select(opps))
	assert.Equal(t, "a", opps[0].ID)
}

func TestSelectNone(t *testing.T) {
	assert.Nil(t, Select(nil))
	assert.Nil(t, Select([]*types.Opportunity{opp("a", "1", false)}))
}

func TestEvaluateRecordsRankedHistory(t *testing.T) {
	s, err := state.New(state.DefaultOptions(), nil, nil)
	require.NoError(t, err)
	e := NewEvaluator(s, 20, zaptest.NewLogger(t))

	var opps []*types.Opportunity
	for i := 0; i < 30; i++ {
		opps = append(opps, opp(strconv.Itoa(i), strconv.Itoa(i), i%3 == 0))
	}

	best := e.Evaluate(opps)
	require.NotNil(t, best)
	assert.Equal(t, "27", best.ID)

	latest := s.Latest()
	require.Len(t, latest, 30)
	assert.Equal(t, "29", latest[0].ID)
	assert.Equal(t, "0", latest[29].ID)

	history := s.History()
	require.Len(t, history, 20)
	assert.Equal(t, "29", history[0].ID)
	assert.Equal(t, "10", history[19].ID)

	e.Evaluate([]*types.Opportunity{opp("next", "0.1", true)})
	history = s.History()
	require.Len(t, history, 21)
	assert.Equal(t, "next", history[0].ID)
}
