// # internal/analyzer/engine.go
package analyzer

import (
	"strings"

	"aura/internal/core/errors"
	"aura/internal/graph"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var errParse = errors.New(errors.CodeInternal, "parse failed")

// scopeEntry is one level of the enclosing-scope path threaded through the
// extractor walks. The path is immutable: descending copies it, so sibling
// subtrees never observe each other's state.
type scopeEntry struct {
	name string
	kind string // "class" or "function"
}

func appendScope(scope []scopeEntry, name, kind string) []scopeEntry {
	child := make([]scopeEntry, len(scope), len(scope)+1)
	copy(child, scope)
	return append(child, scopeEntry{name: name, kind: kind})
}

func qualifiedName(scope []scopeEntry, name string) string {
	if len(scope) == 0 {
		return name
	}
	parts := make([]string, 0, len(scope)+1)
	for _, s := range scope {
		parts = append(parts, s.name)
	}
	parts = append(parts, name)
	return strings.Join(parts, "::")
}

func scopeName(scope []scopeEntry) string {
	parts := make([]string, 0, len(scope))
	for _, s := range scope {
		parts = append(parts, s.name)
	}
	return strings.Join(parts, "::")
}

// containerID returns the id of the node containing a symbol at this scope:
// the file for top-level symbols, the enclosing class/function otherwise.
func containerID(path string, scope []scopeEntry) string {
	if len(scope) == 0 {
		return path
	}
	return graph.SymbolID(path, scopeName(scope))
}

// allClasses reports whether every enclosing scope level is a class, which
// is what makes a def a method worth emitting (Class::method naming).
func allClasses(scope []scopeEntry) bool {
	for _, s := range scope {
		if s.kind != "class" {
			return false
		}
	}
	return true
}

func text(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

func lineRange(node *sitter.Node) [2]int {
	return [2]int{int(node.StartPosition().Row) + 1, int(node.EndPosition().Row) + 1}
}
