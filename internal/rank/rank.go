// # internal/rank/rank.go

// Package rank scores graph nodes by how useful they are for a context
// slice. Five weighted signals combine into one score in [0, 1]; higher
// means the node should survive budget pressure longer.
package rank

import (
	"math"
	"sort"
	"strings"

	"aura/internal/graph"
	"aura/internal/shared/util"
)

// Weights controls how much each signal contributes. The defaults sum to 1;
// custom weights are used as given, the combined score is clamped either way.
type Weights struct {
	Semantic    float64
	Proximity   float64
	Criticality float64
	Frequency   float64
	Efficiency  float64
}

func DefaultWeights() Weights {
	return Weights{
		Semantic:    0.40,
		Proximity:   0.30,
		Criticality: 0.15,
		Frequency:   0.10,
		Efficiency:  0.05,
	}
}

// Signals holds the per-signal values before weighting, kept for stats and
// debugging output.
type Signals struct {
	Semantic    float64 `json:"semantic"`
	Proximity   float64 `json:"proximity"`
	Criticality float64 `json:"criticality"`
	Frequency   float64 `json:"frequency"`
	Efficiency  float64 `json:"efficiency"`
}

type RankedNode struct {
	Node    *graph.Node
	Weight  float64 // traversal weight from the expansion step
	Score   float64
	Signals Signals
	Tokens  int
}

type Ranker struct {
	weights Weights
}

func New(weights Weights) *Ranker {
	return &Ranker{weights: weights}
}

// Rank scores the expanded candidate set. semanticScores carries similarity
// from vector search keyed by node id and may be empty, in which case the
// semantic signal contributes zero for every node. distances holds hop counts
// from the focal nodes; nodes absent from it are treated as unreachable.
func (r *Ranker) Rank(g *graph.Graph, visits []graph.Visit, semanticScores map[string]float64, distances map[string]int) []RankedNode {
	files := fileCounts(g, visits)
	maxRecurrence := 0
	for _, c := range files {
		if c > maxRecurrence {
			maxRecurrence = c
		}
	}

	ranked := make([]RankedNode, 0, len(visits))
	for _, v := range visits {
		n, ok := g.GetNode(v.ID)
		if !ok {
			continue
		}
		sig := Signals{
			Semantic:    clamp01(semanticScores[v.ID]),
			Proximity:   proximity(distances, v.ID),
			Criticality: criticality(n),
			Frequency:   frequency(files[n.Path], maxRecurrence),
		}
		tokens := util.EstimateTokens(n.Content)
		sig.Efficiency = efficiency(tokens)

		score := r.weights.Semantic*sig.Semantic +
			r.weights.Proximity*sig.Proximity +
			r.weights.Criticality*sig.Criticality +
			r.weights.Frequency*sig.Frequency +
			r.weights.Efficiency*sig.Efficiency

		ranked = append(ranked, RankedNode{
			Node:    n,
			Weight:  v.Weight,
			Score:   clamp01(score),
			Signals: sig,
			Tokens:  tokens,
		})
	}

	// Stable sort: equal scores keep the input order of the visits.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// proximity decays with hop distance from the focal set: 1 at the focus,
// 1/2 one hop out, and so on. Unreachable nodes score zero.
func proximity(distances map[string]int, id string) float64 {
	d, ok := distances[id]
	if !ok {
		return 0
	}
	return 1 / float64(1+d)
}

// frequency is the log-scaled share of a file's recurrence among the
// candidates relative to the most-recurring file.
func frequency(count, maxCount int) float64 {
	if count <= 0 || maxCount <= 0 {
		return 0
	}
	return math.Log1p(float64(count)) / math.Log1p(float64(maxCount))
}

// efficiency prefers small nodes: a short function costs little budget for
// the signal it carries. The log keeps large files from flattening to zero.
func efficiency(tokens int) float64 {
	if tokens <= 0 {
		return 1
	}
	return 1 / (1 + math.Log1p(float64(tokens)/64))
}

var highValueNames = []string{
	"main", "init", "__init__", "setup", "handler", "handle",
	"server", "client", "core", "engine", "config", "run",
	"auth", "security",
}

var lowValueFragments = []string{
	"test", "mock", "fixture", "example", "generated",
}

// criticality estimates structural importance from name and path patterns.
// Entry points and wiring code score high, test scaffolding low.
func criticality(n *graph.Node) float64 {
	lowerName := strings.ToLower(baseName(n.Name))
	// File nodes are named by path; compare without the extension.
	if i := strings.LastIndex(lowerName, "."); i > 0 {
		lowerName = lowerName[:i]
	}
	lowerPath := strings.ToLower(n.Path)

	for _, frag := range lowValueFragments {
		if strings.Contains(lowerPath, frag) || strings.Contains(lowerName, frag) {
			return 0.1
		}
	}
	for _, hv := range highValueNames {
		if lowerName == hv {
			return 1
		}
	}
	if n.Type == graph.TypeClass {
		return 0.6
	}
	if n.Type == graph.TypeFile {
		return 0.5
	}
	return 0.3
}

func baseName(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

func fileCounts(g *graph.Graph, visits []graph.Visit) map[string]int {
	counts := make(map[string]int)
	for _, v := range visits {
		if n, ok := g.GetNode(v.ID); ok {
			counts[n.Path]++
		}
	}
	return counts
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
