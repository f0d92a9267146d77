// # internal/budget/knapsack.go
package budget

import (
	"sort"

	"aura/internal/core/config"
	"aura/internal/rank"
	"aura/internal/shared/util"
)

// Knapsack solves 0/1 knapsack over the candidates, maximizing total score
// under the token budget. Above the configured budget ceiling the DP table
// would be too large, so token weights and capacity are divided down to the
// scale target first; the coarser granularity costs a little optimality at
// the margins but keeps the table bounded.
type Knapsack struct {
	cfg config.Budget
}

func (s *Knapsack) Name() string { return StrategyKnapsack }

func (s *Knapsack) Allocate(nodes []rank.RankedNode, budget int) *Result {
	res := &Result{Strategy: StrategyKnapsack, Budget: budget}
	if budget <= 0 || len(nodes) == 0 {
		res.Dropped = len(nodes)
		return res
	}

	weights := make([]int, len(nodes))
	for i, n := range nodes {
		weights[i] = util.EstimateTokens(nodeContent(n))
	}

	capacity := budget
	if s.cfg.MaxKnapsackBudget > 0 && budget > s.cfg.MaxKnapsackBudget {
		target := s.cfg.KnapsackScaleTarget
		if target <= 0 {
			target = s.cfg.MaxKnapsackBudget
		}
		factor := (budget + target - 1) / target
		capacity = budget / factor
		for i, w := range weights {
			// Round weights up so scaling never overcommits the real budget.
			weights[i] = (w + factor - 1) / factor
		}
	}

	chosen := solve(nodes, weights, capacity)
	if len(chosen) == 0 {
		slot := truncatedSlot(nodes[0], budget)
		if slot.Tokens > 0 {
			res.Slots = append(res.Slots, slot)
			res.TotalTokens = slot.Tokens
		}
		res.Dropped = len(nodes) - len(res.Slots)
		return res
	}

	for _, i := range chosen {
		slot := fullSlot(nodes[i])
		if slot.Tokens == 0 {
			continue
		}
		res.Slots = append(res.Slots, slot)
		res.TotalTokens += slot.Tokens
	}
	res.Dropped = len(nodes) - len(res.Slots)
	return res
}

// solve runs the DP and returns the chosen indices in ranked order.
func solve(nodes []rank.RankedNode, weights []int, capacity int) []int {
	n := len(nodes)
	// best[w] is the max score achievable at weight w; keep[i][w] records the
	// take/skip decision for reconstruction.
	best := make([]float64, capacity+1)
	keep := make([][]bool, n)

	for i := 0; i < n; i++ {
		keep[i] = make([]bool, capacity+1)
		w := weights[i]
		if w <= 0 || w > capacity {
			continue
		}
		for c := capacity; c >= w; c-- {
			if cand := best[c-w] + nodes[i].Score; cand > best[c] {
				best[c] = cand
				keep[i][c] = true
			}
		}
	}

	var chosen []int
	c := capacity
	for i := n - 1; i >= 0; i-- {
		if keep[i][c] {
			chosen = append(chosen, i)
			c -= weights[i]
		}
	}
	sort.Ints(chosen)
	return chosen
}
