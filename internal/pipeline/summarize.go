// # internal/pipeline/summarize.go
package pipeline

import (
	"strings"

	"aura/internal/budget"
	"aura/internal/graph"
	"aura/internal/shared/util"
)

// refineSlots enforces the per-node token ceiling and replaces hard
// truncations with better-shaped degradations. A slot needs work when the
// allocator truncated it or when it exceeds maxNodeTokens; the ladder is
// stripped content (no blanks, no comment lines), then signature plus
// docstring, then a hard cut to the allowance. Oversized slots are always
// shortened, never dropped.
func refineSlots(result *budget.Result, maxNodeTokens int) {
	for i := range result.Slots {
		slot := &result.Slots[i]
		allowance := slot.Tokens
		if maxNodeTokens > 0 && allowance > maxNodeTokens {
			allowance = maxNodeTokens
		}
		if !slot.Truncated && slot.Tokens <= allowance {
			continue
		}

		if full := slot.Node.Node.Content; full != "" {
			if stripped := stripNoise(full); stripped != "" {
				if t := util.EstimateTokens(stripped); t <= allowance {
					replaceSlot(result, slot, stripped, t)
					continue
				}
			}
			if sig := signatureAndDoc(slot.Node.Node); sig != "" {
				if t := util.EstimateTokens(sig); t <= allowance {
					replaceSlot(result, slot, sig, t)
					continue
				}
			}
		}
		if slot.Tokens > allowance {
			cut := util.TruncateToTokens(slot.Content, allowance)
			replaceSlot(result, slot, cut, util.EstimateTokens(cut))
		}
	}
}

func replaceSlot(result *budget.Result, slot *budget.Slot, content string, tokens int) {
	result.TotalTokens += tokens - slot.Tokens
	slot.Content = content
	slot.Tokens = tokens
	slot.Truncated = true
}

// stripNoise drops blank and comment-only lines.
func stripNoise(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// signatureAndDoc is the smallest useful rendering of a symbol: its
// declaration line and docstring.
func signatureAndDoc(n *graph.Node) string {
	first, _, _ := strings.Cut(n.Content, "\n")
	first = strings.TrimRight(first, " \t")
	if first == "" {
		return n.Docstring
	}
	if n.Docstring == "" {
		return first
	}
	return first + "\n" + n.Docstring
}
