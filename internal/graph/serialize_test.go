package graph

import (
	"encoding/json"
	"testing"
)

func TestNodeVendorKeysRoundTrip(t *testing.T) {
	raw := []byte(`{"id":"a.py","type":"file","name":"a.py","path":"a.py","x-vendor-tag":{"team":"platform"},"x-score":3.5}`)

	var n Node
	if err := json.Unmarshal(raw, &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Extra["x-score"] != 3.5 {
		t.Errorf("x-score not captured: %v", n.Extra)
	}

	out, err := json.Marshal(&n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatal(err)
	}
	if round["x-score"] != 3.5 {
		t.Errorf("x-score did not round-trip: %v", round)
	}
	if tag, ok := round["x-vendor-tag"].(map[string]any); !ok || tag["team"] != "platform" {
		t.Errorf("x-vendor-tag did not round-trip: %v", round["x-vendor-tag"])
	}
}

func TestOpenEdgeTypeAccepted(t *testing.T) {
	raw := []byte(`{"source":"a.py","target":"b.py","type":"CUSTOM_DEPENDS","line":7}`)
	var e Edge
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("custom edge type must not fail validation: %v", err)
	}
	if e.Type != "CUSTOM_DEPENDS" {
		t.Errorf("type lost: %s", e.Type)
	}
}

func TestEdgeMissingEndpointRejected(t *testing.T) {
	raw := []byte(`{"source":"a.py","type":"IMPORTS"}`)
	var e Edge
	if err := json.Unmarshal(raw, &e); err == nil {
		t.Error("edge without target should fail decoding")
	}
}

func TestGraphRoundTrip(t *testing.T) {
	g := New(testRepo())
	g.SHA = "abc123def456"
	g.AddNode(fileNode("a.py"))
	g.AddNode(symbolNode("a.py", "main", TypeFunction, 1, 10))
	g.AddEdge(&Edge{Source: "a.py", Target: "a.py::main", Type: EdgeContains})
	g.Finalize()

	data, err := EncodeGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeGraph(data)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.SHA != g.SHA || decoded.ID != g.ID {
		t.Errorf("identity fields lost: %+v", decoded)
	}
	if len(decoded.Nodes) != len(g.Nodes) || len(decoded.Edges) != len(g.Edges) {
		t.Errorf("node/edge sets differ after round-trip")
	}
	if !decoded.HasNode("a.py::main") {
		t.Error("indexes not rebuilt after decoding")
	}
}

func TestDiffIdentity(t *testing.T) {
	g := New(testRepo())
	g.AddNode(fileNode("a.py"))
	g.AddNode(symbolNode("a.py", "run", TypeFunction, 2, 8))
	g.AddEdge(&Edge{Source: "a.py", Target: "a.py::run", Type: EdgeContains})
	g.Finalize()

	d := Diff(g, g)
	if !d.Empty() {
		t.Errorf("diff(snapshot, snapshot) must be empty, got %+v", d)
	}
}

func TestDiffDetectsChanges(t *testing.T) {
	old := New(testRepo())
	old.AddNode(fileNode("a.py"))
	old.AddNode(fileNode("b.py"))
	old.AddEdge(&Edge{Source: "a.py", Target: "b.py", Type: EdgeImports})
	old.Finalize()

	updated := New(testRepo())
	changed := fileNode("a.py")
	changed.Docstring = "now documented"
	updated.AddNode(changed)
	updated.AddNode(fileNode("c.py"))
	updated.AddEdge(&Edge{Source: "a.py", Target: "c.py", Type: EdgeImports})
	updated.Finalize()

	d := Diff(old, updated)

	if len(d.AddedNodes) != 1 || d.AddedNodes[0] != "c.py" {
		t.Errorf("added nodes: %v", d.AddedNodes)
	}
	if len(d.RemovedNodes) != 1 || d.RemovedNodes[0] != "b.py" {
		t.Errorf("removed nodes: %v", d.RemovedNodes)
	}
	if len(d.ChangedNodes) != 1 || d.ChangedNodes[0] != "a.py" {
		t.Errorf("changed nodes: %v", d.ChangedNodes)
	}
	if len(d.AddedEdges) != 1 || d.AddedEdges[0].Target != "c.py" {
		t.Errorf("added edges: %v", d.AddedEdges)
	}
	if len(d.RemovedEdges) != 1 || d.RemovedEdges[0].Target != "b.py" {
		t.Errorf("removed edges: %v", d.RemovedEdges)
	}
}

func TestContentHashStable(t *testing.T) {
	n1 := symbolNode("a.py", "run", TypeFunction, 2, 8)
	n1.Docstring = "docs"
	n2 := symbolNode("a.py", "run", TypeFunction, 2, 8)
	n2.Docstring = "docs"

	if ContentHash(n1) != ContentHash(n2) {
		t.Error("equal nodes must hash equal")
	}

	n2.Content = "def run(): pass"
	if ContentHash(n1) == ContentHash(n2) {
		t.Error("content change must change the hash")
	}

	// ID is excluded from the hash on purpose.
	n3 := symbolNode("a.py", "run", TypeFunction, 2, 8)
	n3.Docstring = "docs"
	n3.ID = "renamed-id"
	if ContentHash(n1) != ContentHash(n3) {
		t.Error("hash must not depend on the id")
	}
}
