// # internal/budget/adaptive.go
package budget

import (
	"log/slog"
	"math"

	"aura/internal/core/config"
	"aura/internal/rank"
	"aura/internal/shared/util"
)

// Adaptive picks a concrete strategy per request from the candidate count,
// the budget and the score spread. The decision thresholds are named
// configuration, not magic numbers, so deployments can tune them.
type Adaptive struct {
	cfg config.Budget
}

func (s *Adaptive) Name() string { return StrategyAdaptive }

func (s *Adaptive) Allocate(nodes []rank.RankedNode, budget int) *Result {
	inner := s.pick(nodes, budget)
	res := inner.Allocate(nodes, budget)
	slog.Debug("adaptive allocation",
		"picked", inner.Name(),
		"candidates", len(nodes),
		"budget", budget,
		"slots", len(res.Slots))
	res.Strategy = StrategyAdaptive + "/" + inner.Name()
	return res
}

// pick applies the decision ladder: greedy when the whole candidate set
// fits the budget anyway, knapsack when the problem is small enough to solve
// exactly and scores actually differ, proportional when the scores are too
// flat for order to matter, greedy otherwise.
func (s *Adaptive) pick(nodes []rank.RankedNode, budget int) Allocator {
	total := 0
	for _, n := range nodes {
		total += util.EstimateTokens(nodeContent(n))
	}
	spread := scoreSpread(nodes)
	smallEnough := len(nodes) <= s.cfg.MaxKnapsackNodes &&
		(s.cfg.MaxKnapsackBudget <= 0 || budget <= s.cfg.MaxKnapsackBudget || s.cfg.KnapsackScaleTarget > 0)

	switch {
	case total <= budget:
		return &Greedy{}
	case spread < s.cfg.MinScoreVariance:
		return &Proportional{}
	case smallEnough:
		return &Knapsack{cfg: s.cfg}
	default:
		return &Greedy{}
	}
}

// scoreSpread is the standard deviation of the candidate scores.
func scoreSpread(nodes []rank.RankedNode) float64 {
	if len(nodes) < 2 {
		return 0
	}
	mean := 0.0
	for _, n := range nodes {
		mean += n.Score
	}
	mean /= float64(len(nodes))

	sum := 0.0
	for _, n := range nodes {
		d := n.Score - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(nodes)))
}
