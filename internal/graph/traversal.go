// # internal/graph/traversal.go
package graph

import (
	"sort"
)

// DefaultEdgeWeight applies to edge types without a configured factor.
const DefaultEdgeWeight = 0.5

// Visit is one node reached by weighted expansion.
type Visit struct {
	ID       string
	Weight   float64
	Distance int
}

// ExpandWeighted runs a breadth-first expansion from the entry nodes. Each
// traversed edge multiplies the running weight by its per-type factor, and a
// path stops once its cumulative weight drops below threshold; that bound,
// not a depth cutoff, limits traversal. Edges are followed in both
// directions: dependencies and dependents are both context.
//
// The visited set is mandatory; source dependency graphs routinely contain
// cycles and termination must not rely on the weight decay alone.
func (g *Graph) ExpandWeighted(entries []string, weights map[string]float64, threshold float64) []Visit {
	g.ensureIndexes()

	if threshold <= 0 {
		threshold = 0.01
	}

	// No configured weights disables expansion; the result is the entry
	// points alone, deduplicated.
	if len(weights) == 0 {
		seen := make(map[string]bool, len(entries))
		out := make([]Visit, 0, len(entries))
		for _, id := range entries {
			if _, ok := g.index[id]; !ok {
				continue
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, Visit{ID: id, Weight: 1.0, Distance: 0})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}

	type neighbor struct {
		id       string
		edgeType string
	}
	adjacency := make(map[string][]neighbor, len(g.Nodes))
	for _, e := range g.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], neighbor{e.Target, e.Type})
		adjacency[e.Target] = append(adjacency[e.Target], neighbor{e.Source, e.Type})
	}

	best := make(map[string]*Visit)
	queue := make([]Visit, 0, len(entries))
	for _, id := range entries {
		if _, ok := g.index[id]; !ok {
			continue
		}
		v := Visit{ID: id, Weight: 1.0, Distance: 0}
		if prev, seen := best[id]; seen && prev.Weight >= v.Weight {
			continue
		}
		best[id] = &Visit{ID: id, Weight: 1.0, Distance: 0}
		queue = append(queue, v)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, nb := range adjacency[cur.ID] {
			factor, ok := weights[nb.edgeType]
			if !ok {
				factor = DefaultEdgeWeight
			}
			w := cur.Weight * factor
			if w < threshold {
				continue
			}
			if prev, seen := best[nb.id]; seen && prev.Weight >= w {
				continue
			}
			v := &Visit{ID: nb.id, Weight: w, Distance: cur.Distance + 1}
			best[nb.id] = v
			queue = append(queue, *v)
		}
	}

	out := make([]Visit, 0, len(best))
	for _, v := range best {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Distances returns the minimum hop count from any focal node, bounded by
// maxDepth. Used by the ranking engine's graph-proximity score.
func (g *Graph) Distances(focal []string, maxDepth int) map[string]int {
	g.ensureIndexes()

	adjacency := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}

	dist := make(map[string]int)
	queue := make([]string, 0, len(focal))
	for _, id := range focal {
		if _, ok := g.index[id]; !ok {
			continue
		}
		if _, seen := dist[id]; seen {
			continue
		}
		dist[id] = 0
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := dist[cur]
		if maxDepth > 0 && d >= maxDepth {
			continue
		}
		for _, nb := range adjacency[cur] {
			if _, seen := dist[nb]; seen {
				continue
			}
			dist[nb] = d + 1
			queue = append(queue, nb)
		}
	}
	return dist
}
