// # internal/budget/proportional.go
package budget

import "aura/internal/rank"

// Proportional gives each node a budget share proportional to its score and
// truncates content to that share. Shares below the useful minimum are
// dropped and their budget is not redistributed, which keeps the allocation
// a single pass and deterministic.
type Proportional struct{}

func (s *Proportional) Name() string { return StrategyProportional }

func (s *Proportional) Allocate(nodes []rank.RankedNode, budget int) *Result {
	res := &Result{Strategy: StrategyProportional, Budget: budget}
	if budget <= 0 || len(nodes) == 0 {
		res.Dropped = len(nodes)
		return res
	}

	total := 0.0
	for _, n := range nodes {
		total += n.Score
	}
	evenShares := total <= 0 // all scores zero: split evenly

	for _, n := range nodes {
		var share int
		if evenShares {
			share = budget / len(nodes)
		} else {
			if n.Score <= 0 {
				continue
			}
			share = int(float64(budget) * n.Score / total)
		}
		if share < minUsefulTokens {
			continue
		}

		slot := fullSlot(n)
		if slot.Tokens > share {
			slot = truncatedSlot(n, share)
		}
		if slot.Tokens == 0 {
			continue
		}
		res.Slots = append(res.Slots, slot)
		res.TotalTokens += slot.Tokens
	}
	res.Dropped = len(nodes) - len(res.Slots)
	return res
}
