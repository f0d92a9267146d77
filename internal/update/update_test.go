// # internal/update/update_test.go
package update

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aura/internal/analyzer"
	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/data/store"
	"aura/internal/graph"
)

func TestParseNameStatus(t *testing.T) {
	out := []byte("A\tnew.py\nM\tchanged.py\nD\tgone.py\nR087\told/name.py\tnew/name.py\nbogus\n")
	changes := parseNameStatus(out)

	want := []FileChange{
		{Path: "new.py", Type: ChangeAdded},
		{Path: "changed.py", Type: ChangeModified},
		{Path: "gone.py", Type: ChangeDeleted},
		{Path: "new/name.py", OldPath: "old/name.py", Type: ChangeRenamed},
	}
	if len(changes) != len(want) {
		t.Fatalf("parsed %d changes, want %d", len(changes), len(want))
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, changes[i], want[i])
		}
	}
}

func TestParseUnifiedHunks(t *testing.T) {
	out := []byte(`diff --git a/a.py b/a.py
@@ -3,2 +3,3 @@ def main():
-old
-old2
+new
+new2
+new3
@@ -10 +12,0 @@
-dropped
`)
	diff := parseUnifiedHunks(out)

	wantRemoved := []int{3, 4, 10}
	wantAdded := []int{3, 4, 5}
	if len(diff.Removed) != len(wantRemoved) || len(diff.Added) != len(wantAdded) {
		t.Fatalf("parsed removed=%v added=%v", diff.Removed, diff.Added)
	}
	for i, n := range wantRemoved {
		if diff.Removed[i] != n {
			t.Errorf("removed[%d] = %d, want %d", i, diff.Removed[i], n)
		}
	}
	for i, n := range wantAdded {
		if diff.Added[i] != n {
			t.Errorf("added[%d] = %d, want %d", i, diff.Added[i], n)
		}
	}
}

type fixture struct {
	root    string
	store   *store.SQLStore
	an      *analyzer.Analyzer
	updater *Updater
	repo    graph.Repository
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		writeFile(t, root, rel, content)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "graph.db"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	an, err := analyzer.New(config.Analyzer{Workers: 2, MaxFileBytes: 1 << 20},
		[]analyzer.Extractor{analyzer.NewPythonExtractor()})
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		root:    root,
		store:   st,
		an:      an,
		updater: NewUpdater(st, an, time.Minute),
		repo:    graph.Repository{Name: "repo", Path: root},
	}

	res, err := an.Analyze(context.Background(), f.repo)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SaveGraph(context.Background(), res.Graph); err != nil {
		t.Fatal(err)
	}
	return f
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestModifiedFileUpdatesOnlyItsNodes(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.py": "import b\n\ndef main():\n    b.helper()\n",
		"b.py": "def helper():\n    return 1\n",
	})
	ctx := context.Background()

	writeFile(t, f.root, "b.py", "def helper():\n    return 1\n\ndef extra():\n    return 2\n")
	res, err := f.updater.Apply(ctx, f.repo, []FileChange{{Path: "b.py", Type: ChangeModified}}, "sha-2")
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesProcessed != 1 {
		t.Errorf("files processed = %d, want 1", res.FilesProcessed)
	}

	g, err := f.store.LoadGraph(ctx, "repo")
	if err != nil {
		t.Fatal(err)
	}
	if !g.HasNode("b.py::extra") {
		t.Error("new symbol missing after update")
	}
	if !g.HasNode("a.py::main") {
		t.Error("untouched file lost nodes")
	}
	if g.SHA != "sha-2" {
		t.Errorf("sha = %q, want sha-2", g.SHA)
	}
	// Cross-file edges into the modified file survive.
	found := false
	for _, e := range g.Edges {
		if e.Source == "a.py" && e.Target == "b.py" && e.Type == graph.EdgeImports {
			found = true
		}
	}
	if !found {
		t.Error("import edge into modified file lost")
	}
}

func TestDeletedFileDropsNodesAndRecordsRefs(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.py": "import b\n",
		"b.py": "def helper():\n    return 1\n",
	})
	ctx := context.Background()

	if err := os.Remove(filepath.Join(f.root, "b.py")); err != nil {
		t.Fatal(err)
	}
	res, err := f.updater.Apply(ctx, f.repo, []FileChange{{Path: "b.py", Type: ChangeDeleted}}, "sha-2")
	if err != nil {
		t.Fatal(err)
	}
	if res.NodesRemoved == 0 {
		t.Error("expected removed nodes")
	}

	g, err := f.store.LoadGraph(ctx, "repo")
	if err != nil {
		t.Fatal(err)
	}
	if g.HasNode("b.py") || g.HasNode("b.py::helper") {
		t.Error("deleted file still in graph")
	}
	for _, e := range g.Edges {
		if e.Target == "b.py" {
			t.Error("edge into deleted file survived")
		}
	}
}

func TestRenamedFileMovesSymbols(t *testing.T) {
	f := newFixture(t, map[string]string{
		"old.py": "def thing():\n    return 1\n",
	})
	ctx := context.Background()

	content, err := os.ReadFile(filepath.Join(f.root, "old.py"))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, f.root, "new.py", string(content))
	if err := os.Remove(filepath.Join(f.root, "old.py")); err != nil {
		t.Fatal(err)
	}

	_, err = f.updater.Apply(ctx, f.repo,
		[]FileChange{{OldPath: "old.py", Path: "new.py", Type: ChangeRenamed}}, "sha-2")
	if err != nil {
		t.Fatal(err)
	}

	g, err := f.store.LoadGraph(ctx, "repo")
	if err != nil {
		t.Fatal(err)
	}
	if g.HasNode("old.py") || g.HasNode("old.py::thing") {
		t.Error("old path still in graph")
	}
	if !g.HasNode("new.py") || !g.HasNode("new.py::thing") {
		t.Error("renamed file not re-analyzed under new path")
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.py": "import b\n",
		"b.py": "def helper():\n    return 1\n",
	})
	ctx := context.Background()

	writeFile(t, f.root, "b.py", "def helper():\n    return 2\n")
	batch := []FileChange{{Path: "b.py", Type: ChangeModified}}

	if _, err := f.updater.Apply(ctx, f.repo, batch, "sha-2"); err != nil {
		t.Fatal(err)
	}
	first, err := f.store.LoadGraph(ctx, "repo")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.updater.Apply(ctx, f.repo, batch, "sha-2"); err != nil {
		t.Fatal(err)
	}
	second, err := f.store.LoadGraph(ctx, "repo")
	if err != nil {
		t.Fatal(err)
	}

	diff := graph.Diff(first, second)
	if !diff.Empty() {
		t.Errorf("re-applying the same batch changed the graph: %+v", diff)
	}
}

func TestLockedRepositorySkips(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.py": "x = 1\n",
	})
	ctx := context.Background()

	ok, err := f.store.AcquireLock(ctx, "repo", "other-updater", time.Minute)
	if err != nil || !ok {
		t.Fatalf("pre-lock: ok=%v err=%v", ok, err)
	}

	writeFile(t, f.root, "a.py", "x = 2\n")
	_, err = f.updater.Apply(ctx, f.repo, []FileChange{{Path: "a.py", Type: ChangeModified}}, "sha-2")
	if !errors.IsCode(err, errors.CodeLocked) {
		t.Errorf("err = %v, want LOCKED", err)
	}

	// The stored graph is untouched.
	g, err := f.store.LoadGraph(ctx, "repo")
	if err != nil {
		t.Fatal(err)
	}
	if g.SHA == "sha-2" {
		t.Error("locked update advanced the stored revision")
	}
}

func TestEmptyBatchIsNoOp(t *testing.T) {
	f := newFixture(t, map[string]string{"a.py": "x = 1\n"})
	res, err := f.updater.Apply(context.Background(), f.repo, nil, "sha-2")
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesProcessed != 0 {
		t.Errorf("files processed = %d, want 0", res.FilesProcessed)
	}
}
