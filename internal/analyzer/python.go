// # internal/analyzer/python.go
package analyzer

import (
	"strings"

	"aura/internal/graph"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

type PythonExtractor struct {
	lang *sitter.Language
}

func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{lang: sitter.NewLanguage(tree_sitter_python.Language())}
}

func (e *PythonExtractor) Language() string { return "python" }

func (e *PythonExtractor) Extensions() []string { return []string{".py"} }

func (e *PythonExtractor) Extract(source []byte, relPath string) (*FileResult, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.lang)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errParse
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &FileResult{
		FileNode: &graph.Node{
			ID:        relPath,
			Type:      graph.TypeFile,
			Name:      relPath,
			Path:      relPath,
			Docstring: e.moduleDocstring(root, source),
		},
	}
	e.walk(root, source, relPath, nil, res)
	return res, nil
}

// walk threads the enclosing scope as an explicit immutable path. Appending
// creates a fresh slice for each recursion level, so no state leaks between
// siblings or across files.
func (e *PythonExtractor) walk(node *sitter.Node, source []byte, relPath string, scope []scopeEntry, res *FileResult) {
	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, res)
	case "import_from_statement":
		e.extractFromImport(node, source, res)
	case "class_definition":
		e.extractClass(node, source, relPath, scope, res)
		return
	case "function_definition":
		e.extractFunction(node, source, relPath, scope, res)
		return
	case "call":
		e.extractCall(node, source, relPath, scope, res)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, relPath, scope, res)
	}
}

func (e *PythonExtractor) extractImport(node *sitter.Node, source []byte, res *FileResult) {
	line := int(node.StartPosition().Row) + 1
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "identifier":
			res.Imports = append(res.Imports, ImportRef{Module: text(child, source), Line: line})
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				res.Imports = append(res.Imports, ImportRef{Module: text(name, source), Line: line})
			}
		}
	}
}

func (e *PythonExtractor) extractFromImport(node *sitter.Node, source []byte, res *FileResult) {
	line := int(node.StartPosition().Row) + 1
	module := node.ChildByFieldName("module_name")
	if module == nil {
		return
	}

	switch module.Kind() {
	case "relative_import":
		raw := text(module, source)
		dots := 0
		for dots < len(raw) && raw[dots] == '.' {
			dots++
		}
		res.Imports = append(res.Imports, ImportRef{
			Module: strings.TrimLeft(raw, "."),
			Dots:   dots,
			Line:   line,
		})
	default:
		res.Imports = append(res.Imports, ImportRef{Module: text(module, source), Line: line})
	}
}

func (e *PythonExtractor) extractClass(node *sitter.Node, source []byte, relPath string, scope []scopeEntry, res *FileResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, source)
	qualified := qualifiedName(scope, name)
	id := graph.SymbolID(relPath, qualified)

	lines := lineRange(node)
	res.Symbols = append(res.Symbols, &graph.Node{
		ID:        id,
		Type:      graph.TypeClass,
		Name:      qualified,
		Path:      relPath,
		Lines:     &lines,
		Docstring: e.bodyDocstring(node.ChildByFieldName("body"), source),
	})
	res.Contains = append(res.Contains, ContainRef{Parent: containerID(relPath, scope), Child: id})

	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := uint(0); i < supers.ChildCount(); i++ {
			arg := supers.Child(i)
			if arg.Kind() == "identifier" || arg.Kind() == "attribute" {
				res.Extends = append(res.Extends, ExtendRef{
					ClassID: id,
					Base:    text(arg, source),
					Line:    int(arg.StartPosition().Row) + 1,
				})
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		childScope := appendScope(scope, name, "class")
		for i := uint(0); i < body.ChildCount(); i++ {
			e.walk(body.Child(i), source, relPath, childScope, res)
		}
	}
}

func (e *PythonExtractor) extractFunction(node *sitter.Node, source []byte, relPath string, scope []scopeEntry, res *FileResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, source)

	// Functions nested inside other functions are walked for call sites but
	// not emitted as symbols; only module-level functions and class methods
	// get nodes.
	emit := allClasses(scope)
	qualified := qualifiedName(scope, name)
	id := graph.SymbolID(relPath, qualified)

	if emit {
		typ := graph.TypeFunction
		if len(scope) > 0 {
			typ = graph.TypeMethod
		}
		lines := lineRange(node)
		res.Symbols = append(res.Symbols, &graph.Node{
			ID:        id,
			Type:      typ,
			Name:      qualified,
			Path:      relPath,
			Lines:     &lines,
			Docstring: e.bodyDocstring(node.ChildByFieldName("body"), source),
		})
		res.Contains = append(res.Contains, ContainRef{Parent: containerID(relPath, scope), Child: id})
	}

	if body := node.ChildByFieldName("body"); body != nil {
		childScope := appendScope(scope, name, "function")
		for i := uint(0); i < body.ChildCount(); i++ {
			e.walk(body.Child(i), source, relPath, childScope, res)
		}
	}
}

func (e *PythonExtractor) extractCall(node *sitter.Node, source []byte, relPath string, scope []scopeEntry, res *FileResult) {
	if len(scope) == 0 {
		return
	}
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	if fn.Kind() != "identifier" && fn.Kind() != "attribute" {
		return
	}
	res.Calls = append(res.Calls, CallRef{
		CallerID: graph.SymbolID(relPath, scopeName(scope)),
		Name:     text(fn, source),
		Line:     int(fn.StartPosition().Row) + 1,
	})
}

func (e *PythonExtractor) moduleDocstring(root *sitter.Node, source []byte) string {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child.Kind() == "comment" {
			continue
		}
		if child.Kind() == "expression_statement" {
			if s := child.Child(0); s != nil && s.Kind() == "string" {
				return cleanDocstring(text(s, source))
			}
		}
		return ""
	}
	return ""
}

func (e *PythonExtractor) bodyDocstring(body *sitter.Node, source []byte) string {
	if body == nil {
		return ""
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child.Kind() == "comment" {
			continue
		}
		if child.Kind() == "expression_statement" {
			if s := child.Child(0); s != nil && s.Kind() == "string" {
				return cleanDocstring(text(s, source))
			}
		}
		return ""
	}
	return ""
}

func cleanDocstring(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, quote) && strings.HasSuffix(raw, quote) && len(raw) >= 2*len(quote) {
			return strings.TrimSpace(raw[len(quote) : len(raw)-len(quote)])
		}
	}
	return raw
}

