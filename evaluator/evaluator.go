package evaluator

import (
	"sort"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/types"
)

// DefaultHistoryPerTick caps how many ranked opportunities one tick adds to
// the history
const DefaultHistoryPerTick = 20

// Recorder receives the ranked opportunities of one tick
type Recorder interface {
	SetLatest(opps []*types.Opportunity)
	PrependHistory(opps []*types.Opportunity)
}

// Evaluator ranks a tick's opportunities and picks the one to execute
type Evaluator struct {
	state   *state.RunState
	perTick int
	logger  *zap.Logger
}

// NewEvaluator creates an evaluator recording into s
func NewEvaluator(s *state.RunState, perTick int, logger *zap.Logger) *Evaluator {
	if perTick <= 0 {
		perTick = DefaultHistoryPerTick
	}
	return &Evaluator{
		state:   s,
		perTick: perTick,
		logger:  logger.With(zap.String("component", "evaluator")),
	}
}

// Rank orders opps by net USD profit, best first. Ties keep input order.
func Rank(opps []*types.Opportunity) []*types.Opportunity {
	ranked := append([]*types.Opportunity(nil), opps...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].NetProfitUsd.GreaterThan(ranked[j].NetProfitUsd)
	})
	return ranked
}

// Select returns the most profitable opportunity that clears its threshold,
// or nil. It has no side effects.
func Select(opps []*types.Opportunity) *types.Opportunity {
	var best *types.Opportunity
	for _, o := range opps {
		if !o.Profitable {
			continue
		}
		if best == nil || o.NetProfitUsd.GreaterThan(best.NetProfitUsd) {
			best = o
		}
	}
	return best
}

// Evaluate records the tick's opportunities and returns Select's choice
func (e *Evaluator) Evaluate(opps []*types.Opportunity) *types.Opportunity {
	return e.EvaluateInto(e.state, opps)
}

// EvaluateInto is Evaluate recording into rec instead of the run state
func (e *Evaluator) EvaluateInto(rec Recorder, opps []*types.Opportunity) *types.Opportunity {
	ranked := Rank(opps)
	rec.SetLatest(ranked)

	top := ranked
	if len(top) > e.perTick {
		top = top[:e.perTick]
	}
	rec.PrependHistory(top)

	best := Select(opps)
	if best != nil {
		e.logger.Info("Best opportunity",
			zap.String("id", best.ID),
			zap.String("strategy", string(best.Strategy)),
			zap.String("chain", best.Chain),
			zap.String("route", best.Route),
			zap.String("net_usd", best.NetProfitUsd.StringFixed(4)),
		)
	}
	return best
}
