// # internal/budget/budget.go

// Package budget fits a ranked candidate set into a token budget. Strategies
// trade optimality against cost: greedy is linear, proportional spreads the
// budget, knapsack maximizes total score, adaptive picks between them.
package budget

import (
	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/rank"
	"aura/internal/shared/util"
)

const (
	StrategyGreedy       = "greedy"
	StrategyProportional = "proportional"
	StrategyKnapsack     = "knapsack"
	StrategyAdaptive     = "adaptive"
)

// minUsefulTokens is the smallest slice of a node worth emitting; anything
// shorter is noise rather than context.
const minUsefulTokens = 24

// Slot is one node admitted into the context slice, possibly truncated to
// its allotted token count.
type Slot struct {
	Node      rank.RankedNode
	Content   string
	Tokens    int
	Truncated bool
}

type Result struct {
	Strategy    string
	Slots       []Slot
	TotalTokens int
	Budget      int
	// Dropped counts ranked candidates that did not fit.
	Dropped int
}

// Allocator fits ranked nodes into a token budget. Implementations must be
// deterministic: same input order, same output.
type Allocator interface {
	Name() string
	Allocate(nodes []rank.RankedNode, budget int) *Result
}

// New returns the allocator for a strategy name.
func New(strategy string, cfg config.Budget) (Allocator, error) {
	switch strategy {
	case StrategyGreedy:
		return &Greedy{}, nil
	case StrategyProportional:
		return &Proportional{}, nil
	case StrategyKnapsack:
		return &Knapsack{cfg: cfg}, nil
	case StrategyAdaptive, "":
		return &Adaptive{cfg: cfg}, nil
	default:
		return nil, errors.Newf(errors.CodeValidationError, "unknown allocation strategy %q", strategy)
	}
}

// EffectiveBudget is the spendable token count after the reply reserve.
func EffectiveBudget(cfg config.Budget) int {
	return cfg.MaxTokens - cfg.ReserveTokens
}

func nodeContent(n rank.RankedNode) string {
	if n.Node.Content != "" {
		return n.Node.Content
	}
	return n.Node.Docstring
}

func fullSlot(n rank.RankedNode) Slot {
	content := nodeContent(n)
	return Slot{Node: n, Content: content, Tokens: util.EstimateTokens(content)}
}

func truncatedSlot(n rank.RankedNode, budget int) Slot {
	content := util.TruncateToTokens(nodeContent(n), budget)
	return Slot{
		Node:      n,
		Content:   content,
		Tokens:    util.EstimateTokens(content),
		Truncated: true,
	}
}
