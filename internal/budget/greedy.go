// # internal/budget/greedy.go
package budget

import (
	"aura/internal/rank"
	"aura/internal/shared/util"
)

// Greedy walks the ranked order and admits every node that still fits. When
// not even the top node fits whole, it is truncated to the budget so the
// slice is never empty while any budget remains.
type Greedy struct{}

func (s *Greedy) Name() string { return StrategyGreedy }

func (s *Greedy) Allocate(nodes []rank.RankedNode, budget int) *Result {
	res := &Result{Strategy: StrategyGreedy, Budget: budget}
	if budget <= 0 || len(nodes) == 0 {
		res.Dropped = len(nodes)
		return res
	}

	remaining := budget
	for _, n := range nodes {
		tokens := util.EstimateTokens(nodeContent(n))
		if tokens == 0 {
			continue
		}
		if tokens > remaining {
			continue
		}
		slot := fullSlot(n)
		res.Slots = append(res.Slots, slot)
		res.TotalTokens += slot.Tokens
		remaining -= slot.Tokens
	}

	if len(res.Slots) == 0 {
		slot := truncatedSlot(nodes[0], budget)
		if slot.Tokens > 0 {
			res.Slots = append(res.Slots, slot)
			res.TotalTokens = slot.Tokens
		}
	}
	res.Dropped = len(nodes) - len(res.Slots)
	return res
}
