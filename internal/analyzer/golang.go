// # internal/analyzer/golang.go
package analyzer

import (
	"strings"

	"aura/internal/graph"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

type GoExtractor struct {
	lang *sitter.Language
}

func NewGoExtractor() *GoExtractor {
	return &GoExtractor{lang: sitter.NewLanguage(tree_sitter_go.Language())}
}

func (e *GoExtractor) Language() string { return "go" }

func (e *GoExtractor) Extensions() []string { return []string{".go"} }

func (e *GoExtractor) Extract(source []byte, relPath string) (*FileResult, error) {
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
			Docstring: e.packageDoc(root, source),
		},
	}
	e.walk(root, source, relPath, nil, res)
	return res, nil
}

func (e *GoExtractor) walk(node *sitter.Node, source []byte, relPath string, scope []scopeEntry, res *FileResult) {
	switch node.Kind() {
	case "import_declaration":
		e.extractImports(node, source, res)
	case "type_declaration":
		e.extractTypes(node, source, relPath, res)
	case "function_declaration":
		e.extractFunction(node, source, relPath, res)
		return
	case "method_declaration":
		e.extractMethod(node, source, relPath, res)
		return
	case "call_expression":
		e.extractCall(node, source, relPath, scope, res)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, relPath, scope, res)
	}
}

func (e *GoExtractor) extractImports(node *sitter.Node, source []byte, res *FileResult) {
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Kind() == "import_spec" {
			if path := n.ChildByFieldName("path"); path != nil {
				res.Imports = append(res.Imports, ImportRef{
					Module: strings.Trim(text(path, source), `"`),
					Line:   int(path.StartPosition().Row) + 1,
				})
			}
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(node)
}

func (e *GoExtractor) extractTypes(node *sitter.Node, source []byte, relPath string, res *FileResult) {
	doc := e.leadingComment(node, source)
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec.Kind() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		if nameNode == nil || typeNode == nil {
			continue
		}
		kind := typeNode.Kind()
		if kind != "struct_type" && kind != "interface_type" {
			continue
		}

		name := text(nameNode, source)
		id := graph.SymbolID(relPath, name)
		lines := lineRange(node)
		res.Symbols = append(res.Symbols, &graph.Node{
			ID:        id,
			Type:      graph.TypeClass,
			Name:      name,
			Path:      relPath,
			Lines:     &lines,
			Docstring: doc,
		})
		res.Contains = append(res.Contains, ContainRef{Parent: relPath, Child: id})

		// Embedded fields and embedded interfaces act as the extension
		// relation in Go.
		for _, base := range e.embeddedTypes(typeNode, source) {
			res.Extends = append(res.Extends, ExtendRef{
				ClassID: id,
				Base:    base,
				Line:    lines[0],
			})
		}
	}
}

func (e *GoExtractor) embeddedTypes(typeNode *sitter.Node, source []byte) []string {
	var out []string
	switch typeNode.Kind() {
	case "struct_type":
		var visit func(n *sitter.Node)
		visit = func(n *sitter.Node) {
			if n.Kind() == "field_declaration" {
				// An embedded field has a type but no name child.
				if n.ChildByFieldName("name") == nil {
					if t := n.ChildByFieldName("type"); t != nil {
						out = append(out, strings.TrimPrefix(text(t, source), "*"))
					}
				}
				return
			}
			for i := uint(0); i < n.ChildCount(); i++ {
				visit(n.Child(i))
			}
		}
		visit(typeNode)
	case "interface_type":
		for i := uint(0); i < typeNode.ChildCount(); i++ {
			child := typeNode.Child(i)
			if child.Kind() == "type_identifier" || child.Kind() == "qualified_type" {
				out = append(out, text(child, source))
			}
		}
	}
	return out
}

func (e *GoExtractor) extractFunction(node *sitter.Node, source []byte, relPath string, res *FileResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := text(nameNode, source)
	id := graph.SymbolID(relPath, name)
	lines := lineRange(node)
	res.Symbols = append(res.Symbols, &graph.Node{
		ID:        id,
		Type:      graph.TypeFunction,
		Name:      name,
		Path:      relPath,
		Lines:     &lines,
		Docstring: e.leadingComment(node, source),
	})
	res.Contains = append(res.Contains, ContainRef{Parent: relPath, Child: id})

	if body := node.ChildByFieldName("body"); body != nil {
		e.walkBody(body, source, relPath, []scopeEntry{{name: name, kind: "function"}}, res)
	}
}

func (e *GoExtractor) extractMethod(node *sitter.Node, source []byte, relPath string, res *FileResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	receiver := e.receiverType(node, source)
	name := text(nameNode, source)
	qualified := name
	if receiver != "" {
		qualified = receiver + "::" + name
	}
	id := graph.SymbolID(relPath, qualified)
	lines := lineRange(node)
	res.Symbols = append(res.Symbols, &graph.Node{
		ID:        id,
		Type:      graph.TypeMethod,
		Name:      qualified,
		Path:      relPath,
		Lines:     &lines,
		Docstring: e.leadingComment(node, source),
	})

	parent := relPath
	if receiver != "" {
		parent = graph.SymbolID(relPath, receiver)
	}
	res.Contains = append(res.Contains, ContainRef{Parent: parent, Child: id})

	if body := node.ChildByFieldName("body"); body != nil {
		e.walkBody(body, source, relPath, []scopeEntry{{name: qualified, kind: "function"}}, res)
	}
}

func (e *GoExtractor) walkBody(body *sitter.Node, source []byte, relPath string, scope []scopeEntry, res *FileResult) {
	for i := uint(0); i < body.ChildCount(); i++ {
		e.walk(body.Child(i), source, relPath, scope, res)
	}
}

func (e *GoExtractor) extractCall(node *sitter.Node, source []byte, relPath string, scope []scopeEntry, res *FileResult) {
	if len(scope) == 0 {
		return
	}
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	if fn.Kind() != "identifier" && fn.Kind() != "selector_expression" {
		return
	}
	res.Calls = append(res.Calls, CallRef{
		CallerID: graph.SymbolID(relPath, scopeName(scope)),
		Name:     text(fn, source),
		Line:     int(fn.StartPosition().Row) + 1,
	})
}

func (e *GoExtractor) receiverType(node *sitter.Node, source []byte) string {
	receiver := node.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	var found string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if found != "" {
			return
		}
		if n.Kind() == "type_identifier" {
			found = text(n, source)
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(receiver)
	return found
}

// leadingComment collects the contiguous comment block immediately above a
// declaration, Go doc-comment style.
func (e *GoExtractor) leadingComment(node *sitter.Node, source []byte) string {
	var parts []string
	expectedRow := int(node.StartPosition().Row) - 1
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Kind() != "comment" {
			break
		}
		if int(prev.EndPosition().Row) < expectedRow {
			break
		}
		line := strings.TrimSpace(strings.TrimPrefix(text(prev, source), "//"))
		parts = append([]string{line}, parts...)
		expectedRow = int(prev.StartPosition().Row) - 1
	}
	return strings.Join(parts, "\n")
}

func (e *GoExtractor) packageDoc(root *sitter.Node, source []byte) string {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child.Kind() == "package_clause" {
			return e.leadingComment(child, source)
		}
	}
	return ""
}
