// # internal/analyzer/authorship.go
package analyzer

import (
	"bufio"
	"bytes"
	"log/slog"
	"os/exec"
	"sort"
	"strings"

	"aura/internal/graph"
)

// attachAuthorship annotates file nodes with git blame line counts. Any git
// failure (not a repository, shallow clone, untracked file) leaves the node
// without authorship; the graph is complete either way.
func attachAuthorship(g *graph.Graph, root string) {
	blamed := make(map[string][]string)
	for _, n := range g.Nodes {
		if n.Type != graph.TypeFile {
			continue
		}
		lines, ok := blamed[n.Path]
		if !ok {
			lines = blameFile(root, n.Path)
			blamed[n.Path] = lines
		}
		if auth := summarizeAuthors(lines, nil); auth != nil {
			n.Authors = auth
		}
	}
	for _, n := range g.Nodes {
		if n.Type == graph.TypeFile || n.Lines == nil {
			continue
		}
		if auth := summarizeAuthors(blamed[n.Path], n.Lines); auth != nil {
			n.Authors = auth
		}
	}
}

// blameFile returns the author per line, index 0 holding line 1.
func blameFile(root, relPath string) []string {
	out, err := runGit(root, "blame", "--line-porcelain", "--", relPath)
	if err != nil {
		slog.Debug("blame skipped", "path", relPath, "error", err)
		return nil
	}

	var authors []string
	var current string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "author ") {
			current = strings.TrimPrefix(line, "author ")
			continue
		}
		if strings.HasPrefix(line, "\t") {
			authors = append(authors, current)
		}
	}
	return authors
}

func summarizeAuthors(lines []string, span *[2]int) *graph.Authorship {
	if len(lines) == 0 {
		return nil
	}
	start, end := 1, len(lines)
	if span != nil {
		start, end = span[0], span[1]
		if start < 1 {
			start = 1
		}
		if end > len(lines) {
			end = len(lines)
		}
		if start > end {
			return nil
		}
	}

	counts := make(map[string]int)
	for _, a := range lines[start-1 : end] {
		if a != "" {
			counts[a]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	return &graph.Authorship{
		Primary:      names[0],
		Contributors: names,
		LineCounts:   counts,
	}
}

// runGit executes git in the repository root and returns stdout.
func runGit(root string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &gitError{args: args, msg: msg}
	}
	return stdout.Bytes(), nil
}

type gitError struct {
	args []string
	msg  string
}

func (e *gitError) Error() string {
	return "git " + strings.Join(e.args, " ") + ": " + e.msg
}
