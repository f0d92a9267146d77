// # internal/pipeline/loader.go
package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"aura/internal/graph"
)

// loadContent fills missing node content from the working tree, one read per
// file. Content is only needed for candidates that survived expansion, so
// loading lazily here keeps full-graph loads cheap. Nodes whose file cannot
// be read keep whatever the store had.
func loadContent(g *graph.Graph, root string, visits []graph.Visit) {
	if root == "" {
		return
	}
	fileCache := make(map[string][]string)

	for _, v := range visits {
		n, ok := g.GetNode(v.ID)
		if !ok || n.Content != "" || n.Path == "" {
			continue
		}

		lines, ok := fileCache[n.Path]
		if !ok {
			raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(n.Path)))
			if err != nil {
				fileCache[n.Path] = nil
				continue
			}
			lines = strings.Split(string(raw), "\n")
			fileCache[n.Path] = lines
		}
		if lines == nil {
			continue
		}

		if n.Lines == nil {
			n.Content = strings.Join(lines, "\n")
			continue
		}
		start, end := n.Lines[0], n.Lines[1]
		if start < 1 {
			start = 1
		}
		if end > len(lines) {
			end = len(lines)
		}
		if start > end {
			continue
		}
		n.Content = strings.Join(lines[start-1:end], "\n")
	}
}
