// # internal/watcher/watcher_test.go
package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"aura/internal/update"
)

func startWatcher(t *testing.T, root string) chan []update.FileChange {
	t.Helper()
	batches := make(chan []update.FileChange, 4)
	w, err := New(root, 100*time.Millisecond, []string{"excluded"}, []string{"*.tmp"}, func(b []update.FileChange) {
		batches <- b
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	return batches
}

func waitFor(t *testing.T, batches chan []update.FileChange, path string) update.FileChange {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, c := range batch {
				if c.Path == path {
					return c
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change to %s", path)
		}
	}
}

func TestCreateAndDeleteAreClassified(t *testing.T) {
	root := t.TempDir()
	batches := startWatcher(t, root)

	file := filepath.Join(root, "a.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c := waitFor(t, batches, "a.py")
	if c.Type != update.ChangeAdded && c.Type != update.ChangeModified {
		t.Errorf("create classified as %s", c.Type)
	}

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	c = waitFor(t, batches, "a.py")
	if c.Type != update.ChangeDeleted {
		t.Errorf("delete classified as %s", c.Type)
	}
}

func TestRapidWritesCollapseIntoOneChange(t *testing.T) {
	root := t.TempDir()
	batches := startWatcher(t, root)

	file := filepath.Join(root, "b.py")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(file, []byte("y = 2\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	batch := <-batches
	seen := 0
	for _, c := range batch {
		if c.Path == "b.py" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("b.py appeared %d times in one batch", seen)
	}
}

func TestExcludedFilesProduceNoChanges(t *testing.T) {
	root := t.TempDir()
	batches := startWatcher(t, root)

	os.WriteFile(filepath.Join(root, "scratch.tmp"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(root, "a_test.py"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(root, "keep.py"), []byte("x"), 0644)

	batch := <-batches
	for _, c := range batch {
		if c.Path == "scratch.tmp" || c.Path == "a_test.py" {
			t.Errorf("excluded file %s produced a change", c.Path)
		}
	}
}

func TestNewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	batches := startWatcher(t, root)

	subdir := filepath.Join(root, "pkg")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(subdir, "nested.py"), []byte("z = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, batches, "pkg/nested.py")
}
