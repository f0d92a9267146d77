// # internal/graph/types.go
package graph

import (
	"strconv"
	"time"
)

// Node types form an open set. These are the values the shipped analyzers
// emit; consumers must tolerate values outside this list.
const (
	TypeFile     = "file"
	TypeClass    = "class"
	TypeFunction = "function"
	TypeMethod   = "method"
)

// Edge types form an open set. Core values below; caller-defined custom
// types pass through serialization and validation untouched.
const (
	EdgeImports  = "IMPORTS"
	EdgeCalls    = "CALLS"
	EdgeExtends  = "EXTENDS"
	EdgeContains = "CONTAINS"
)

// Node is one entity in the dependency graph. ID is the repository-relative
// path for files and "path::name" for symbols.
type Node struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Lines     *[2]int     `json:"lines,omitempty"`
	Docstring string      `json:"docstring,omitempty"`
	Content   string      `json:"content,omitempty"`
	Authors   *Authorship `json:"authorship,omitempty"`

	// Extra holds vendor/extension keys ("x-" prefixed) so unknown
	// serialized data round-trips.
	Extra map[string]any `json:"-"`
}

// Authorship summarizes who wrote a node's file.
type Authorship struct {
	Primary      string         `json:"primary,omitempty"`
	Contributors []string       `json:"contributors,omitempty"`
	LineCounts   map[string]int `json:"line_counts,omitempty"`
}

// Edge is a directed relation between two nodes. Multiple edges between the
// same pair with different types are permitted; identical duplicates merge.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Line   int    `json:"line,omitempty"`

	Extra map[string]any `json:"-"`
}

// Key identifies an edge for idempotent merging.
func (e *Edge) Key() string {
	return e.Source + "\x00" + e.Target + "\x00" + e.Type + "\x00" + strconv.Itoa(e.Line)
}

// TripleKey identifies an edge for diffing, where line moves are not a change.
func (e *Edge) TripleKey() string {
	return e.Source + "\x00" + e.Target + "\x00" + e.Type
}

// Repository describes the analyzed source tree.
type Repository struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

// Stats aggregates graph-level counts. DanglingDropped counts edges removed
// by the integrity check; they are never silently kept.
type Stats struct {
	NodesByType     map[string]int `json:"nodes_by_type"`
	TotalNodes      int            `json:"total_nodes"`
	TotalEdges      int            `json:"total_edges"`
	DanglingDropped int            `json:"dangling_dropped"`
}

// Graph is a set of nodes (unique IDs) plus a set of edges, with aggregate
// stats and provenance. Mutate only through its methods.
type Graph struct {
	ID          string     `json:"id"`
	Repository  Repository `json:"repository"`
	Version     int        `json:"version"`
	GeneratedAt time.Time  `json:"generated_at"`
	SHA         string     `json:"sha,omitempty"`

	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
	Stats Stats   `json:"stats"`

	index   map[string]int    // node id -> position in Nodes
	edgeSet map[string]int    // edge key -> position in Edges
	byPath  map[string][]int  // file path -> node positions
}
