// # internal/graph/graph.go
package graph

import (
	"sort"
	"strings"
	"time"

	"aura/internal/shared/observability"

	"github.com/google/uuid"
)

func New(repo Repository) *Graph {
	return &Graph{
		ID:          uuid.NewString(),
		Repository:  repo,
		Version:     1,
		GeneratedAt: time.Now().UTC(),
		index:       make(map[string]int),
		edgeSet:     make(map[string]int),
		byPath:      make(map[string][]int),
	}
}

// AddNode inserts a node, upserting on ID collision so re-analysis of the
// same file replaces prior content instead of duplicating it.
func (g *Graph) AddNode(n *Node) {
	g.ensureIndexes()
	if pos, ok := g.index[n.ID]; ok {
		g.Nodes[pos] = n
		return
	}
	g.index[n.ID] = len(g.Nodes)
	g.byPath[n.Path] = append(g.byPath[n.Path], len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
}

// AddEdge inserts an edge, merging identical duplicates idempotently.
// Endpoint existence is checked later by Finalize, not here: edges routinely
// arrive before their targets during analysis.
func (g *Graph) AddEdge(e *Edge) {
	g.ensureIndexes()
	key := e.Key()
	if _, ok := g.edgeSet[key]; ok {
		return
	}
	g.edgeSet[key] = len(g.Edges)
	g.Edges = append(g.Edges, e)
}

func (g *Graph) HasNode(id string) bool {
	g.ensureIndexes()
	_, ok := g.index[id]
	return ok
}

func (g *Graph) GetNode(id string) (*Node, bool) {
	g.ensureIndexes()
	pos, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.Nodes[pos], true
}

// NodesForPath returns every node belonging to one file, file node included.
func (g *Graph) NodesForPath(path string) []*Node {
	g.ensureIndexes()
	positions := g.byPath[path]
	out := make([]*Node, 0, len(positions))
	for _, pos := range positions {
		if g.Nodes[pos] != nil {
			out = append(out, g.Nodes[pos])
		}
	}
	return out
}

// NodeContainingLine resolves a file:line reference to the innermost symbol
// node whose line range contains the line, falling back to the file node.
func (g *Graph) NodeContainingLine(path string, line int) (*Node, bool) {
	var best *Node
	bestSpan := int(^uint(0) >> 1)
	var fileNode *Node
	for _, n := range g.NodesForPath(path) {
		if n.Type == TypeFile {
			fileNode = n
			continue
		}
		if n.Lines == nil {
			continue
		}
		if line >= n.Lines[0] && line <= n.Lines[1] {
			span := n.Lines[1] - n.Lines[0]
			if span < bestSpan {
				best = n
				bestSpan = span
			}
		}
	}
	if best != nil {
		return best, true
	}
	if fileNode != nil {
		return fileNode, true
	}
	return nil, false
}

// RemoveNodesForPath deletes every node for a file and all edges touching
// them. Used by the incremental updater before re-analysis.
func (g *Graph) RemoveNodesForPath(path string) int {
	g.ensureIndexes()
	removed := make(map[string]bool)
	kept := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n.Path == path {
			removed[n.ID] = true
			continue
		}
		kept = append(kept, n)
	}
	if len(removed) == 0 {
		return 0
	}
	g.Nodes = kept

	keptEdges := g.Edges[:0]
	for _, e := range g.Edges {
		if removed[e.Source] || removed[e.Target] {
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	g.Edges = keptEdges
	g.rebuildIndexes()
	return len(removed)
}

// RemoveOutgoingEdges drops every edge whose source is the given node.
// Incoming edges stay: the nodes depending on this one are unaffected.
func (g *Graph) RemoveOutgoingEdges(sourceID string) int {
	g.ensureIndexes()
	kept := g.Edges[:0]
	dropped := 0
	for _, e := range g.Edges {
		if e.Source == sourceID {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	g.Edges = kept
	if dropped > 0 {
		g.rebuildIndexes()
	}
	return dropped
}

// Finalize runs the integrity check and recomputes stats. Edges whose source
// or target is missing from the node set are dropped and counted, never
// silently kept. Node and edge order is made deterministic.
func (g *Graph) Finalize() {
	g.ensureIndexes()

	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })

	kept := make([]*Edge, 0, len(g.Edges))
	dropped := 0
	g.rebuildIndexes()
	for _, e := range g.Edges {
		if _, ok := g.index[e.Source]; !ok {
			dropped++
			continue
		}
		if _, ok := g.index[e.Target]; !ok {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Source != kept[j].Source {
			return kept[i].Source < kept[j].Source
		}
		if kept[i].Target != kept[j].Target {
			return kept[i].Target < kept[j].Target
		}
		if kept[i].Type != kept[j].Type {
			return kept[i].Type < kept[j].Type
		}
		return kept[i].Line < kept[j].Line
	})
	g.Edges = kept
	g.rebuildIndexes()

	stats := Stats{NodesByType: make(map[string]int)}
	for _, n := range g.Nodes {
		stats.NodesByType[n.Type]++
	}
	stats.TotalNodes = len(g.Nodes)
	stats.TotalEdges = len(g.Edges)
	stats.DanglingDropped = dropped
	g.Stats = stats

	observability.GraphNodes.Set(float64(stats.TotalNodes))
	observability.GraphEdges.Set(float64(stats.TotalEdges))
	if dropped > 0 {
		observability.DanglingEdgesDropped.Add(float64(dropped))
	}
}

// OutgoingEdges returns edges whose source is the given node id.
func (g *Graph) OutgoingEdges(id string) []*Edge {
	out := make([]*Edge, 0, 4)
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// SymbolID builds the canonical "path::name" id for a symbol.
func SymbolID(path, name string) string {
	return path + "::" + name
}

// SplitID separates a node id into path and symbol name; symbol is empty for
// file ids.
func SplitID(id string) (path, symbol string) {
	if i := strings.Index(id, "::"); i >= 0 {
		return id[:i], id[i+2:]
	}
	return id, ""
}

func (g *Graph) ensureIndexes() {
	if g.index == nil {
		g.rebuildIndexes()
	}
}

func (g *Graph) rebuildIndexes() {
	g.index = make(map[string]int, len(g.Nodes))
	g.byPath = make(map[string][]int, len(g.Nodes))
	for i, n := range g.Nodes {
		g.index[n.ID] = i
		g.byPath[n.Path] = append(g.byPath[n.Path], i)
	}
	g.edgeSet = make(map[string]int, len(g.Edges))
	for i, e := range g.Edges {
		g.edgeSet[e.Key()] = i
	}
}
