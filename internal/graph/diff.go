// # internal/graph/diff.go
package graph

import (
	"sort"
)

// EdgeRef identifies an edge in a diff result. Edges have no "changed"
// state: a (source, target, type) triple is either present or not.
type EdgeRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// DiffResult lists what changed between two point-in-time graphs.
type DiffResult struct {
	AddedNodes   []string  `json:"added_nodes"`
	RemovedNodes []string  `json:"removed_nodes"`
	ChangedNodes []string  `json:"changed_nodes"`
	AddedEdges   []EdgeRef `json:"added_edges"`
	RemovedEdges []EdgeRef `json:"removed_edges"`
}

// Empty reports whether the diff has no changes on any dimension.
func (d DiffResult) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.ChangedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Diff compares two snapshots. Nodes are matched by id; a node present in
// both with a different content hash is changed. Everything is map lookups,
// so graphs in the low tens of thousands of nodes diff in milliseconds.
func Diff(old, new *Graph) DiffResult {
	var result DiffResult

	oldHashes := make(map[string]string, len(old.Nodes))
	for _, n := range old.Nodes {
		oldHashes[n.ID] = ContentHash(n)
	}
	newIDs := make(map[string]bool, len(new.Nodes))
	for _, n := range new.Nodes {
		newIDs[n.ID] = true
		oldHash, existed := oldHashes[n.ID]
		if !existed {
			result.AddedNodes = append(result.AddedNodes, n.ID)
			continue
		}
		if oldHash != ContentHash(n) {
			result.ChangedNodes = append(result.ChangedNodes, n.ID)
		}
	}
	for _, n := range old.Nodes {
		if !newIDs[n.ID] {
			result.RemovedNodes = append(result.RemovedNodes, n.ID)
		}
	}

	oldEdges := make(map[string]EdgeRef, len(old.Edges))
	for _, e := range old.Edges {
		oldEdges[e.TripleKey()] = EdgeRef{Source: e.Source, Target: e.Target, Type: e.Type}
	}
	newEdges := make(map[string]EdgeRef, len(new.Edges))
	for _, e := range new.Edges {
		key := e.TripleKey()
		if _, dup := newEdges[key]; dup {
			continue
		}
		newEdges[key] = EdgeRef{Source: e.Source, Target: e.Target, Type: e.Type}
		if _, existed := oldEdges[key]; !existed {
			result.AddedEdges = append(result.AddedEdges, newEdges[key])
		}
	}
	for key, ref := range oldEdges {
		if _, still := newEdges[key]; !still {
			result.RemovedEdges = append(result.RemovedEdges, ref)
		}
	}

	sort.Strings(result.AddedNodes)
	sort.Strings(result.RemovedNodes)
	sort.Strings(result.ChangedNodes)
	sortEdgeRefs(result.AddedEdges)
	sortEdgeRefs(result.RemovedEdges)
	return result
}

func sortEdgeRefs(refs []EdgeRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Source != refs[j].Source {
			return refs[i].Source < refs[j].Source
		}
		if refs[i].Target != refs[j].Target {
			return refs[i].Target < refs[j].Target
		}
		return refs[i].Type < refs[j].Type
	})
}
