// # internal/pipeline/entry.go
package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"aura/internal/core/errors"
	"aura/internal/graph"

	"github.com/gobwas/glob"
)

// ResolveEntryPoints maps the request's entry specs to node ids. Each spec
// may be an exact node id, a file path, file:line, or a glob over ids and
// paths. A spec matching nothing fails the whole request: a typo should not
// silently produce a slice around the wrong focus.
func ResolveEntryPoints(g *graph.Graph, specs []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		if g.HasNode(spec) {
			add(spec)
			continue
		}

		if path, line, ok := splitFileLine(spec); ok && g.HasNode(path) {
			n, found := g.NodeContainingLine(path, line)
			if !found {
				return nil, errors.Newf(errors.CodeNotFound, "no node at %s:%d", path, line)
			}
			add(n.ID)
			continue
		}

		if strings.ContainsAny(spec, "*?[") {
			matcher, err := glob.Compile(spec)
			if err != nil {
				return nil, errors.Newf(errors.CodeValidationError, "invalid entry pattern %q", spec)
			}
			matched := false
			for _, n := range g.Nodes {
				if matcher.Match(n.ID) || matcher.Match(n.Path) {
					add(n.ID)
					matched = true
				}
			}
			if !matched {
				return nil, errors.Newf(errors.CodeNotFound, "entry pattern %q matched nothing", spec)
			}
			continue
		}

		return nil, errors.Newf(errors.CodeNotFound, "entry point %q not found in graph", spec)
	}

	if len(out) == 0 {
		return nil, errors.New(errors.CodeValidationError, "no usable entry points")
	}
	sort.Strings(out)
	return out, nil
}

// splitFileLine parses "path:line"; the line must be the last colon-separated
// segment and numeric, so Windows-style paths and :: symbol ids stay intact.
func splitFileLine(spec string) (string, int, bool) {
	i := strings.LastIndex(spec, ":")
	if i <= 0 || i == len(spec)-1 {
		return "", 0, false
	}
	if spec[i-1] == ':' { // part of a "::" symbol id
		return "", 0, false
	}
	line, err := strconv.Atoi(spec[i+1:])
	if err != nil || line < 1 {
		return "", 0, false
	}
	return spec[:i], line, true
}
