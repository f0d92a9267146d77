// # internal/update/updater.go
package update

import (
	"context"
	"log/slog"
	"time"

	"aura/internal/analyzer"
	"aura/internal/core/errors"
	"aura/internal/data/store"
	"aura/internal/graph"
	"aura/internal/shared/observability"

	"github.com/google/uuid"
)

// Updater folds a change batch into the stored graph. Each batch runs under
// the repository's TTL lock and lands in a single transaction; applying the
// same batch twice leaves the store unchanged.
type Updater struct {
	store    store.Store
	analyzer *analyzer.Analyzer
	lockTTL  time.Duration
}

func NewUpdater(st store.Store, an *analyzer.Analyzer, lockTTL time.Duration) *Updater {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Updater{store: st, analyzer: an, lockTTL: lockTTL}
}

type Result struct {
	SHA            string
	FilesProcessed int
	NodesRemoved   int
	NodesAdded     int
	EdgesWritten   int
	Errors         []analyzer.FileError
}

type externalRef struct {
	source, target, edgeType string
}

// Apply processes one change batch. A repository already locked by another
// updater returns LOCKED without touching anything; callers treat that as
// "try again later", not a failure.
func (u *Updater) Apply(ctx context.Context, repo graph.Repository, changes []FileChange, sha string) (*Result, error) {
	if len(changes) == 0 {
		return &Result{SHA: sha}, nil
	}

	holder := uuid.NewString()
	acquired, err := u.store.AcquireLock(ctx, repo.Name, holder, u.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		observability.UpdateBatches.WithLabelValues("locked").Inc()
		return nil, errors.Newf(errors.CodeLocked, "repository %q is locked by another update", repo.Name)
	}
	defer func() {
		if err := u.store.ReleaseLock(context.WithoutCancel(ctx), repo.Name, holder); err != nil {
			slog.Warn("release update lock failed", "repository", repo.Name, "error", err)
		}
	}()

	mem, err := u.store.LoadGraph(ctx, repo.Name)
	if err != nil {
		return nil, err
	}

	res := &Result{SHA: sha}
	removedPaths := make([]string, 0)
	changedPaths := make(map[string]bool)
	var refs []externalRef
	var changedResults []*analyzer.FileResult

	for _, ch := range changes {
		switch ch.Type {
		case ChangeDeleted:
			refs = append(refs, incomingRefs(mem, ch.Path)...)
			mem.RemoveNodesForPath(ch.Path)
			removedPaths = append(removedPaths, ch.Path)
		case ChangeRenamed:
			refs = append(refs, incomingRefs(mem, ch.OldPath)...)
			mem.RemoveNodesForPath(ch.OldPath)
			removedPaths = append(removedPaths, ch.OldPath)
			refs = append(refs, u.reanalyze(repo.Path, ch.Path, mem, res, &changedResults, changedPaths)...)
		case ChangeAdded, ChangeModified:
			refs = append(refs, u.reanalyze(repo.Path, ch.Path, mem, res, &changedResults, changedPaths)...)
		}
	}

	analyzer.Resolve(mem, changedResults, filePaths(mem))
	mem.Finalize()

	err = u.store.Transaction(ctx, repo.Name, func(tx store.Tx) error {
		for _, p := range removedPaths {
			n, err := tx.DeleteNodesForPath(p)
			if err != nil {
				return err
			}
			res.NodesRemoved += n
		}
		for p := range changedPaths {
			if _, err := tx.DeleteNodesForPath(p); err != nil {
				return err
			}
		}

		for _, n := range mem.Nodes {
			if !changedPaths[n.Path] {
				continue
			}
			if err := tx.UpsertNode(n); err != nil {
				return err
			}
			res.NodesAdded++
		}
		for _, e := range mem.Edges {
			if !touchesChanged(mem, e, changedPaths) {
				continue
			}
			if err := tx.CreateEdge(e); err != nil {
				return err
			}
			res.EdgesWritten++
		}

		// Edges that pointed into deleted files are remembered so a file
		// that comes back can be rewired by the next full analysis.
		for _, r := range refs {
			exists, err := tx.NodeExists(r.target)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if err := tx.CreateExternalRef(r.source, r.target, r.edgeType); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sha != "" {
		if err := u.store.SetGraphSHA(ctx, repo.Name, sha); err != nil {
			return nil, err
		}
	}

	observability.UpdateBatches.WithLabelValues("applied").Inc()
	slog.Info("incremental update applied",
		"repository", repo.Name,
		"changes", len(changes),
		"nodes_removed", res.NodesRemoved,
		"nodes_added", res.NodesAdded,
		"edges_written", res.EdgesWritten,
		"degraded", len(res.Errors),
		"sha", sha)
	return res, nil
}

// reanalyze parses one changed file into the in-memory graph. Parse failures
// degrade to a bare file node exactly as in full analysis. Incoming edges
// from other files are kept when their target symbol survives; the rest are
// returned as external refs.
func (u *Updater) reanalyze(root, path string, mem *graph.Graph, res *Result, results *[]*analyzer.FileResult, changedPaths map[string]bool) []externalRef {
	if !u.analyzer.Supports(path) {
		return nil
	}
	incoming := incomingEdges(mem, path)

	fileRes, ferr := u.analyzer.AnalyzeFile(root, path)
	if ferr != nil {
		res.Errors = append(res.Errors, *ferr)
	}
	mem.RemoveNodesForPath(path)
	analyzer.Apply(mem, fileRes)
	*results = append(*results, fileRes)
	changedPaths[path] = true
	res.FilesProcessed++

	var lost []externalRef
	for _, e := range incoming {
		if mem.HasNode(e.Target) {
			mem.AddEdge(e)
			continue
		}
		lost = append(lost, externalRef{source: e.Source, target: e.Target, edgeType: e.Type})
	}
	return lost
}

// incomingEdges lists edges arriving at a path's nodes from other files.
func incomingEdges(g *graph.Graph, path string) []*graph.Edge {
	own := make(map[string]bool)
	for _, n := range g.NodesForPath(path) {
		own[n.ID] = true
	}
	var edges []*graph.Edge
	for _, e := range g.Edges {
		if !own[e.Target] || own[e.Source] {
			continue
		}
		copied := *e
		edges = append(edges, &copied)
	}
	return edges
}

// incomingRefs is incomingEdges reduced to external-ref tuples, for files
// that are going away entirely.
func incomingRefs(g *graph.Graph, path string) []externalRef {
	var refs []externalRef
	for _, e := range incomingEdges(g, path) {
		refs = append(refs, externalRef{source: e.Source, target: e.Target, edgeType: e.Type})
	}
	return refs
}

// touchesChanged reports whether either endpoint lives in a changed file.
func touchesChanged(g *graph.Graph, e *graph.Edge, changedPaths map[string]bool) bool {
	if src, ok := g.GetNode(e.Source); ok && changedPaths[src.Path] {
		return true
	}
	if tgt, ok := g.GetNode(e.Target); ok && changedPaths[tgt.Path] {
		return true
	}
	return false
}

func filePaths(g *graph.Graph) []string {
	var paths []string
	for _, n := range g.Nodes {
		if n.Type == graph.TypeFile {
			paths = append(paths, n.Path)
		}
	}
	return paths
}
