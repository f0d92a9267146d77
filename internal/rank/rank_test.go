// # internal/rank/rank_test.go
package rank

import (
	"math"
	"testing"

	"aura/internal/graph"
)

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(graph.Repository{Name: "test", Path: "/tmp/test"})
	g.AddNode(&graph.Node{ID: "app.py", Type: graph.TypeFile, Name: "app.py", Path: "app.py", Content: "import util\n\nutil.work()\n"})
	g.AddNode(&graph.Node{ID: "app.py::main", Type: graph.TypeFunction, Name: "main", Path: "app.py", Content: "def main():\n    work()\n"})
	g.AddNode(&graph.Node{ID: "util.py::work", Type: graph.TypeFunction, Name: "work", Path: "util.py", Content: "def work():\n    pass\n"})
	g.AddNode(&graph.Node{ID: "tests/test_app.py", Type: graph.TypeFile, Name: "tests/test_app.py", Path: "tests/test_app.py", Content: "def test_main():\n    pass\n"})
	g.AddEdge(&graph.Edge{Source: "app.py::main", Target: "util.py::work", Type: graph.EdgeCalls})
	g.Finalize()
	return g
}

func visitsFor(g *graph.Graph) []graph.Visit {
	visits := make([]graph.Visit, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		visits = append(visits, graph.Visit{ID: n.ID, Weight: 1})
	}
	return visits
}

func TestScoresStayInUnitInterval(t *testing.T) {
	g := buildGraph(t)
	r := New(DefaultWeights())
	semantic := map[string]float64{"app.py::main": 2.5, "util.py::work": -0.3}
	distances := map[string]int{"app.py::main": 0, "util.py::work": 1}

	for _, rn := range r.Rank(g, visitsFor(g), semantic, distances) {
		if rn.Score < 0 || rn.Score > 1 {
			t.Errorf("%s score %f outside [0,1]", rn.Node.ID, rn.Score)
		}
	}
}

func TestRankingIsStableAndDeterministic(t *testing.T) {
	g := buildGraph(t)
	r := New(DefaultWeights())
	distances := map[string]int{"app.py::main": 0}

	first := r.Rank(g, visitsFor(g), nil, distances)
	for i := 0; i < 5; i++ {
		again := r.Rank(g, visitsFor(g), nil, distances)
		for j := range first {
			if first[j].Node.ID != again[j].Node.ID {
				t.Fatalf("run %d: position %d is %s, was %s", i, j, again[j].Node.ID, first[j].Node.ID)
			}
		}
	}
}

func TestEqualScoresKeepInputOrder(t *testing.T) {
	g := graph.New(graph.Repository{Name: "test", Path: "/tmp/test"})
	// Identical except for the id, so every signal ties.
	ids := []string{"m.py::zeta", "m.py::alpha", "m.py::mid"}
	for _, id := range ids {
		g.AddNode(&graph.Node{ID: id, Type: graph.TypeFunction, Name: "fn", Path: "m.py", Content: "def fn():\n    pass\n"})
	}
	g.Finalize()

	visits := make([]graph.Visit, 0, len(ids))
	for _, id := range ids {
		visits = append(visits, graph.Visit{ID: id, Weight: 1})
	}
	ranked := New(DefaultWeights()).Rank(g, visits, nil, nil)

	for i, id := range ids {
		if ranked[i].Node.ID != id {
			t.Fatalf("position %d = %s, want %s (input order)", i, ranked[i].Node.ID, id)
		}
	}
}

func TestMissingSemanticScoresDegradeToZero(t *testing.T) {
	g := buildGraph(t)
	r := New(DefaultWeights())
	ranked := r.Rank(g, visitsFor(g), nil, map[string]int{"app.py::main": 0})

	for _, rn := range ranked {
		if rn.Signals.Semantic != 0 {
			t.Errorf("%s semantic signal = %f, want 0", rn.Node.ID, rn.Signals.Semantic)
		}
	}
}

func TestProximityDecaysWithDistance(t *testing.T) {
	distances := map[string]int{"a": 0, "b": 1, "c": 3}
	if got := proximity(distances, "a"); got != 1 {
		t.Errorf("distance 0 proximity = %f, want 1", got)
	}
	if got := proximity(distances, "b"); got != 0.5 {
		t.Errorf("distance 1 proximity = %f, want 0.5", got)
	}
	if got := proximity(distances, "c"); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("distance 3 proximity = %f, want 0.25", got)
	}
	if got := proximity(distances, "unreachable"); got != 0 {
		t.Errorf("unreachable proximity = %f, want 0", got)
	}
}

func TestTestScaffoldingRanksBelowEntryPoints(t *testing.T) {
	g := buildGraph(t)
	r := New(DefaultWeights())
	distances := map[string]int{
		"app.py::main":      0,
		"tests/test_app.py": 0,
	}
	ranked := r.Rank(g, visitsFor(g), nil, distances)

	pos := make(map[string]int)
	for i, rn := range ranked {
		pos[rn.Node.ID] = i
	}
	if pos["tests/test_app.py"] < pos["app.py::main"] {
		t.Error("test file ranked above entry point at equal distance")
	}
}

func TestSecuritySensitiveNamesScoreCritical(t *testing.T) {
	cases := []*graph.Node{
		{ID: "auth.py", Type: graph.TypeFile, Name: "auth.py", Path: "auth.py"},
		{ID: "security.py", Type: graph.TypeFile, Name: "security.py", Path: "security.py"},
		{ID: "svc.py::auth", Type: graph.TypeFunction, Name: "auth", Path: "svc.py"},
	}
	for _, n := range cases {
		if got := criticality(n); got != 1 {
			t.Errorf("criticality(%s) = %f, want 1", n.ID, got)
		}
	}
}

func TestFrequencyCountsFileRecurrenceAmongCandidates(t *testing.T) {
	g := graph.New(graph.Repository{Name: "test", Path: "/tmp/test"})
	g.AddNode(&graph.Node{ID: "hub.py", Type: graph.TypeFile, Name: "hub.py", Path: "hub.py", Content: "x = 1\n"})
	g.AddNode(&graph.Node{ID: "hub.py::a", Type: graph.TypeFunction, Name: "a", Path: "hub.py", Content: "def a():\n    pass\n"})
	g.AddNode(&graph.Node{ID: "hub.py::b", Type: graph.TypeFunction, Name: "b", Path: "hub.py", Content: "def b():\n    pass\n"})
	g.AddNode(&graph.Node{ID: "lone.py::only", Type: graph.TypeFunction, Name: "only", Path: "lone.py", Content: "def only():\n    pass\n"})
	g.Finalize()

	visits := []graph.Visit{
		{ID: "hub.py", Weight: 1},
		{ID: "hub.py::a", Weight: 1},
		{ID: "hub.py::b", Weight: 1},
		{ID: "lone.py::only", Weight: 1},
	}
	ranked := New(DefaultWeights()).Rank(g, visits, nil, nil)

	freq := make(map[string]float64)
	for _, rn := range ranked {
		freq[rn.Node.ID] = rn.Signals.Frequency
	}
	if freq["hub.py::a"] != 1 {
		t.Errorf("most-recurring file frequency = %f, want 1", freq["hub.py::a"])
	}
	if freq["lone.py::only"] >= freq["hub.py::a"] {
		t.Errorf("lone candidate frequency %f not below hub %f",
			freq["lone.py::only"], freq["hub.py::a"])
	}
}

func TestFrequencyIsLogScaled(t *testing.T) {
	if got := frequency(0, 10); got != 0 {
		t.Errorf("zero count frequency = %f, want 0", got)
	}
	if got := frequency(10, 10); math.Abs(got-1) > 1e-9 {
		t.Errorf("max count frequency = %f, want 1", got)
	}
	mid := frequency(5, 10)
	if mid <= 0.5 {
		t.Errorf("log scaling should lift mid counts above linear, got %f", mid)
	}
}

func TestSmallerNodesAreMoreTokenEfficient(t *testing.T) {
	small := efficiency(50)
	large := efficiency(5000)
	if small <= large {
		t.Errorf("efficiency(50)=%f should exceed efficiency(5000)=%f", small, large)
	}
	if got := efficiency(0); got != 1 {
		t.Errorf("empty node efficiency = %f, want 1", got)
	}
}
