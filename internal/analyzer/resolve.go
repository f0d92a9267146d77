// # internal/analyzer/resolve.go
package analyzer

import (
	"path"
	"sort"
	"strings"

	"aura/internal/graph"
)

// resolveReferences turns the unresolved import, extends and call references
// collected per file into graph edges. References into code outside the
// repository resolve to nothing and are dropped silently; stdlib and
// third-party imports are not the graph's concern.
func resolveReferences(g *graph.Graph, results []*FileResult, paths []string) {
	idx := newResolveIndex(paths)

	for _, res := range results {
		if res == nil {
			continue
		}
		filePath := res.FileNode.Path
		fileDir := path.Dir(filePath)
		if fileDir == "." {
			fileDir = ""
		}

		// imported local-name -> repository file it resolves to
		imports := make(map[string]string)

		for _, imp := range res.Imports {
			if strings.HasSuffix(filePath, ".go") {
				for _, target := range idx.goImportFiles(imp.Module) {
					if target == filePath {
						continue
					}
					g.AddEdge(&graph.Edge{Source: filePath, Target: target, Type: graph.EdgeImports, Line: imp.Line})
				}
				continue
			}

			target := idx.pythonModuleFile(fileDir, imp.Module, imp.Dots)
			if target == "" || target == filePath {
				continue
			}
			g.AddEdge(&graph.Edge{Source: filePath, Target: target, Type: graph.EdgeImports, Line: imp.Line})
			if name := lastSegment(imp.Module); name != "" {
				imports[name] = target
			}
		}

		for _, ext := range res.Extends {
			target := idx.resolveClass(g, filePath, imports, ext.Base)
			if target == "" || target == ext.ClassID {
				continue
			}
			g.AddEdge(&graph.Edge{Source: ext.ClassID, Target: target, Type: graph.EdgeExtends, Line: ext.Line})
		}

		for _, call := range res.Calls {
			if !g.HasNode(call.CallerID) {
				continue
			}
			target := resolveCall(g, filePath, imports, call.Name)
			if target == "" || target == call.CallerID {
				continue
			}
			g.AddEdge(&graph.Edge{Source: call.CallerID, Target: target, Type: graph.EdgeCalls, Line: call.Line})
		}
	}
}

type resolveIndex struct {
	files map[string]bool
	// dirs maps each repository-relative directory to its .go files, for
	// matching Go import paths by suffix.
	dirs map[string][]string
}

func newResolveIndex(paths []string) *resolveIndex {
	idx := &resolveIndex{
		files: make(map[string]bool, len(paths)),
		dirs:  make(map[string][]string),
	}
	for _, p := range paths {
		idx.files[p] = true
		if strings.HasSuffix(p, ".go") {
			dir := path.Dir(p)
			if dir == "." {
				dir = ""
			}
			idx.dirs[dir] = append(idx.dirs[dir], p)
		}
	}
	return idx
}

// pythonModuleFile maps a dotted module name to a repository file. Absolute
// imports are tried relative to the importing file's directory first, then
// from the repository root; relative imports resolve against the file's
// directory only, one level up per extra dot.
func (idx *resolveIndex) pythonModuleFile(fileDir, module string, dots int) string {
	modPath := strings.ReplaceAll(module, ".", "/")

	if dots == 0 {
		for _, base := range []string{fileDir, ""} {
			if target := idx.pythonCandidate(base, modPath); target != "" {
				return target
			}
		}
		return ""
	}

	base := fileDir
	for i := 1; i < dots; i++ {
		if base == "" {
			return ""
		}
		base = path.Dir(base)
		if base == "." {
			base = ""
		}
	}
	return idx.pythonCandidate(base, modPath)
}

func (idx *resolveIndex) pythonCandidate(base, modPath string) string {
	join := func(elem string) string {
		if base == "" {
			return elem
		}
		if elem == "" {
			return base
		}
		return base + "/" + elem
	}
	if modPath != "" {
		if p := join(modPath) + ".py"; idx.files[p] {
			return p
		}
	}
	// `from . import x` has an empty module path and targets the package
	// initializer itself.
	init := strings.TrimPrefix(join(modPath)+"/__init__.py", "/")
	if idx.files[init] {
		return init
	}
	return ""
}

// goImportFiles matches an import path against repository directories by
// suffix and returns that package's files. The longest matching directory
// wins so nested packages with shared suffixes resolve correctly.
func (idx *resolveIndex) goImportFiles(importPath string) []string {
	var best string
	found := false
	for dir := range idx.dirs {
		if dir != importPath && !strings.HasSuffix(importPath, "/"+dir) {
			continue
		}
		if !found || len(dir) > len(best) {
			best, found = dir, true
		}
	}
	if !found {
		return nil
	}
	files := append([]string(nil), idx.dirs[best]...)
	sort.Strings(files)
	return files
}

// resolveClass finds the node a base-class reference points at: a qualified
// name through an import, a class in the same file, or failing those a class
// whose name is unique across the whole graph.
func (idx *resolveIndex) resolveClass(g *graph.Graph, filePath string, imports map[string]string, base string) string {
	if head, tail, ok := strings.Cut(base, "."); ok {
		if target, found := imports[head]; found {
			id := graph.SymbolID(target, tail)
			if g.HasNode(id) {
				return id
			}
		}
		base = tail[strings.LastIndex(tail, ".")+1:]
	}

	if id := graph.SymbolID(filePath, base); g.HasNode(id) {
		return id
	}

	var match string
	for _, n := range g.Nodes {
		if n.Type != graph.TypeClass || n.Name != base {
			continue
		}
		if match != "" {
			return "" // ambiguous across files
		}
		match = n.ID
	}
	return match
}

// resolveCall finds the callee node for a call site: same-file symbols for
// bare names, imported-module symbols for qualified ones. Method calls
// through values (self.x, receiver.x) resolve to nothing.
func resolveCall(g *graph.Graph, filePath string, imports map[string]string, name string) string {
	if head, tail, ok := strings.Cut(name, "."); ok {
		if strings.Contains(tail, ".") {
			return ""
		}
		if target, found := imports[head]; found {
			id := graph.SymbolID(target, tail)
			if g.HasNode(id) {
				return id
			}
		}
		return ""
	}

	if id := graph.SymbolID(filePath, name); g.HasNode(id) {
		return id
	}
	for _, target := range sortedValues(imports) {
		id := graph.SymbolID(target, name)
		if g.HasNode(id) {
			return id
		}
	}
	return ""
}

func sortedValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func lastSegment(module string) string {
	if i := strings.LastIndex(module, "."); i >= 0 {
		return module[i+1:]
	}
	if i := strings.LastIndex(module, "/"); i >= 0 {
		return module[i+1:]
	}
	return module
}
