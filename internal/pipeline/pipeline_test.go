// # internal/pipeline/pipeline_test.go
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aura/internal/budget"
	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/data/store"
	"aura/internal/embed"
	"aura/internal/graph"
	"aura/internal/rank"
	"aura/internal/shared/util"
)

func testStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "graph.db"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedGraph(t *testing.T, s *store.SQLStore) *graph.Graph {
	t.Helper()
	g := graph.New(graph.Repository{Name: "repo", Path: "/tmp/repo"})
	mainLines := [2]int{3, 6}
	helperLines := [2]int{1, 3}
	g.AddNode(&graph.Node{ID: "app.py", Type: graph.TypeFile, Name: "app.py", Path: "app.py",
		Content: "import util\n\ndef main():\n    util.work()\n"})
	g.AddNode(&graph.Node{ID: "app.py::main", Type: graph.TypeFunction, Name: "main", Path: "app.py",
		Lines: &mainLines, Content: "def main():\n    util.work()\n", Docstring: "entry point"})
	g.AddNode(&graph.Node{ID: "util.py", Type: graph.TypeFile, Name: "util.py", Path: "util.py",
		Content: "def work():\n    return compute()\n"})
	g.AddNode(&graph.Node{ID: "util.py::work", Type: graph.TypeFunction, Name: "work", Path: "util.py",
		Lines: &helperLines, Content: "def work():\n    return compute()\n"})
	g.AddEdge(&graph.Edge{Source: "app.py", Target: "app.py::main", Type: graph.EdgeContains})
	g.AddEdge(&graph.Edge{Source: "util.py", Target: "util.py::work", Type: graph.EdgeContains})
	g.AddEdge(&graph.Edge{Source: "app.py", Target: "util.py", Type: graph.EdgeImports, Line: 1})
	g.AddEdge(&graph.Edge{Source: "app.py::main", Target: "util.py::work", Type: graph.EdgeCalls, Line: 4})
	g.Finalize()

	if err := s.SaveGraph(context.Background(), g); err != nil {
		t.Fatal(err)
	}
	return g
}

func testPipeline(t *testing.T, searcher embed.Searcher) *Pipeline {
	t.Helper()
	s := testStore(t)
	seedGraph(t, s)
	cfg := config.Default()
	cfg.Repository.Name = "repo"
	return New(*cfg, s, searcher)
}

func TestBuildContextFromSymbolEntry(t *testing.T) {
	p := testPipeline(t, nil)
	slice, err := p.BuildContext(context.Background(), Request{
		Repository:  "repo",
		EntryPoints: []string{"app.py::main"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(slice.Items) == 0 {
		t.Fatal("empty slice")
	}
	if slice.Stats.TotalTokens > slice.Stats.Budget {
		t.Errorf("tokens %d exceed budget %d", slice.Stats.TotalTokens, slice.Stats.Budget)
	}
	ids := make(map[string]bool)
	for _, item := range slice.Items {
		ids[item.ID] = true
	}
	if !ids["app.py::main"] {
		t.Error("entry point missing from slice")
	}
	if !ids["util.py::work"] {
		t.Error("called dependency missing from slice")
	}
}

func TestEntryPointForms(t *testing.T) {
	s := testStore(t)
	g := seedGraph(t, s)

	cases := []struct {
		spec string
		want string
	}{
		{"app.py", "app.py"},
		{"app.py::main", "app.py::main"},
		{"app.py:4", "app.py::main"},
		{"util.*", "util.py"},
	}
	for _, tc := range cases {
		entries, err := ResolveEntryPoints(g, []string{tc.spec})
		if err != nil {
			t.Errorf("%s: %v", tc.spec, err)
			continue
		}
		found := false
		for _, id := range entries {
			if id == tc.want {
				found = true
			}
		}
		if !found {
			t.Errorf("%s resolved to %v, want %s included", tc.spec, entries, tc.want)
		}
	}
}

func TestUnresolvableEntryPointFails(t *testing.T) {
	s := testStore(t)
	g := seedGraph(t, s)

	if _, err := ResolveEntryPoints(g, []string{"ghost.py"}); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("missing file err = %v, want NOT_FOUND", err)
	}
	if _, err := ResolveEntryPoints(g, []string{"nomatch-*"}); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("empty glob err = %v, want NOT_FOUND", err)
	}
}

type failingSearcher struct{}

func (failingSearcher) Search(ctx context.Context, query string, limit int) ([]embed.Match, error) {
	return nil, errors.New(errors.CodeUnavailable, "vector backend down")
}

func TestSemanticFailureDegradesGracefully(t *testing.T) {
	p := testPipeline(t, failingSearcher{})
	slice, err := p.BuildContext(context.Background(), Request{
		Repository:  "repo",
		EntryPoints: []string{"app.py::main"},
		Query:       "token accounting",
	})
	if err != nil {
		t.Fatal(err)
	}
	if slice.Stats.SemanticUsed {
		t.Error("stats claim semantic ranking despite backend failure")
	}
	if len(slice.Items) == 0 {
		t.Error("degraded pipeline produced empty slice")
	}
}

type fixedSearcher map[string]float64

func (f fixedSearcher) Search(ctx context.Context, query string, limit int) ([]embed.Match, error) {
	var out []embed.Match
	for id, score := range f {
		out = append(out, embed.Match{NodeID: id, Score: score})
	}
	return out, nil
}

func TestSemanticScoresInfluenceOrder(t *testing.T) {
	p := testPipeline(t, fixedSearcher{"util.py::work": 0.99})
	slice, err := p.BuildContext(context.Background(), Request{
		Repository:  "repo",
		EntryPoints: []string{"app.py"},
		Query:       "where is the work done",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !slice.Stats.SemanticUsed {
		t.Fatal("semantic ranking not used")
	}
	for i, item := range slice.Items {
		if item.ID == "util.py::work" && i > 1 {
			t.Errorf("semantically boosted node at position %d", i)
		}
	}
}

func TestBudgetOverrideShrinksSlice(t *testing.T) {
	p := testPipeline(t, nil)
	full, err := p.BuildContext(context.Background(), Request{
		Repository:  "repo",
		EntryPoints: []string{"app.py::main"},
	})
	if err != nil {
		t.Fatal(err)
	}

	small, err := p.BuildContext(context.Background(), Request{
		Repository:  "repo",
		EntryPoints: []string{"app.py::main"},
		MaxTokens:   p.cfg.Budget.ReserveTokens + 30,
	})
	if err != nil {
		t.Fatal(err)
	}
	if small.Stats.TotalTokens > 30 {
		t.Errorf("override budget exceeded: %d tokens", small.Stats.TotalTokens)
	}
	if small.Stats.TotalTokens >= full.Stats.TotalTokens && full.Stats.TotalTokens > 30 {
		t.Error("small budget did not shrink the slice")
	}
}

func TestRefineSlotsEnforcesPerNodeCeiling(t *testing.T) {
	// The first node has a short signature the ladder can fall back to; the
	// second defeats every rung and must be hard cut.
	summarizable := &graph.Node{ID: "big.py::blob", Type: graph.TypeFunction, Name: "blob", Path: "big.py",
		Content: "def blob():\n" + strings.Repeat("    call_something(x)\n", 400)}
	stubborn := &graph.Node{ID: "big.py::wall", Type: graph.TypeFunction, Name: "wall", Path: "big.py",
		Content: "def wall(" + strings.Repeat("arg, ", 400) + "):\n" + strings.Repeat("    work(arg)\n", 400)}

	result := &budget.Result{}
	for _, n := range []*graph.Node{summarizable, stubborn} {
		tokens := util.EstimateTokens(n.Content)
		result.Slots = append(result.Slots, budget.Slot{
			Node:    rank.RankedNode{Node: n, Score: 0.9},
			Content: n.Content,
			Tokens:  tokens,
		})
		result.TotalTokens += tokens
	}

	refineSlots(result, 300)

	total := 0
	for _, slot := range result.Slots {
		if !slot.Truncated {
			t.Errorf("%s not marked truncated", slot.Node.Node.ID)
		}
		if slot.Tokens > 300 {
			t.Errorf("%s still %d tokens over the 300 ceiling", slot.Node.Node.ID, slot.Tokens)
		}
		total += slot.Tokens
	}
	if result.TotalTokens != total {
		t.Errorf("total %d does not match slot sum %d", result.TotalTokens, total)
	}
	if result.Slots[0].Content != "def blob():" {
		t.Errorf("summarizable slot content = %q, want the signature", result.Slots[0].Content)
	}
}

func TestFormatters(t *testing.T) {
	p := testPipeline(t, nil)
	slice, err := p.BuildContext(context.Background(), Request{
		Repository:  "repo",
		EntryPoints: []string{"app.py::main"},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range FormatNames() {
		f, err := NewFormatter(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		var buf bytes.Buffer
		if err := f.Write(&buf, slice); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if buf.Len() == 0 {
			t.Errorf("%s produced no output", name)
		}
	}

	jf, _ := NewFormatter(FormatJSON)
	var buf bytes.Buffer
	if err := jf.Write(&buf, slice); err != nil {
		t.Fatal(err)
	}
	var decoded Slice
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	if decoded.Repository != "repo" {
		t.Errorf("decoded repository = %q", decoded.Repository)
	}

	mf, _ := NewFormatter(FormatMarkdown)
	buf.Reset()
	if err := mf.Write(&buf, slice); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "```python") {
		t.Error("markdown output missing language fence")
	}

	if _, err := NewFormatter("yaml"); !errors.IsCode(err, errors.CodeNotSupported) {
		t.Errorf("unknown format err = %v, want NOT_SUPPORTED", err)
	}
}
