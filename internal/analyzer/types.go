// # internal/analyzer/types.go
package analyzer

import (
	"aura/internal/graph"
)

// Extractor parses one source language into a FileResult. Implementations
// must be stateless: the tree walk threads an explicit scope path instead of
// mutating extractor fields, so one instance is safe across files and
// goroutines.
type Extractor interface {
	Language() string
	Extensions() []string
	Extract(source []byte, relPath string) (*FileResult, error)
}

// FileResult is everything one file contributes to the graph. References
// (imports, base classes, calls) stay unresolved here; resolution needs the
// full file set and runs after all files are parsed.
type FileResult struct {
	FileNode *graph.Node
	Symbols  []*graph.Node
	Contains []ContainRef
	Imports  []ImportRef
	Extends  []ExtendRef
	Calls    []CallRef
}

// ContainRef is a CONTAINS relation inside one file (file -> symbol,
// class -> method). Both endpoints are node ids, so no resolution is needed.
type ContainRef struct {
	Parent string
	Child  string
}

// ImportRef is an unresolved import statement.
type ImportRef struct {
	// Module is the dotted (Python) or slash-separated (Go) module name,
	// without leading relative dots.
	Module string
	// Dots counts leading dots of a Python relative import; 0 for absolute.
	Dots int
	Line int
}

// ExtendRef is an unresolved base-class reference.
type ExtendRef struct {
	ClassID string
	Base    string
	Line    int
}

// CallRef is an unresolved call site inside a function or method.
type CallRef struct {
	CallerID string
	Name     string
	Line     int
}

// FileError records a per-file degradation. The file still contributes a
// bare file node to the graph.
type FileError struct {
	Path   string
	Reason string
}

// Result pairs the built graph with the non-fatal errors collected while
// building it.
type Result struct {
	Graph  *graph.Graph
	Errors []FileError
}
