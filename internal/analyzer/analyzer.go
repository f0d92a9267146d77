// # internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/graph"
	"aura/internal/shared/observability"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

// Analyzer turns a repository tree into a dependency graph. Extractors are
// injected through the registry; the analyzer itself is language-agnostic.
type Analyzer struct {
	cfg        config.Analyzer
	extractors map[string]Extractor // extension -> extractor
	dirGlobs   []glob.Glob
	fileGlobs  []glob.Glob
	authorship bool
}

func New(cfg config.Analyzer, extractors []Extractor) (*Analyzer, error) {
	a := &Analyzer{
		cfg:        cfg,
		extractors: make(map[string]Extractor),
		authorship: cfg.Authorship,
	}
	for _, ex := range extractors {
		for _, ext := range ex.Extensions() {
			a.extractors[strings.ToLower(ext)] = ex
		}
	}
	for _, p := range cfg.ExcludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Newf(errors.CodeValidationError, "invalid exclude dir pattern %q", p)
		}
		a.dirGlobs = append(a.dirGlobs, g)
	}
	for _, p := range cfg.ExcludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Newf(errors.CodeValidationError, "invalid exclude file pattern %q", p)
		}
		a.fileGlobs = append(a.fileGlobs, g)
	}
	return a, nil
}

// Analyze builds a fresh graph for the repository. Per-file read and parse
// failures degrade to a bare file node and are collected, never fatal.
func (a *Analyzer) Analyze(ctx context.Context, repo graph.Repository) (*Result, error) {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("full").Observe(time.Since(start).Seconds())
	}()

	paths, err := a.DiscoverFiles(repo.Path)
	if err != nil {
		return nil, err
	}

	results := make([]*FileResult, len(paths))
	fileErrs := make([]FileError, 0)
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.cfg.Workers)
	for i, relPath := range paths {
		i, relPath := i, relPath
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, ferr := a.analyzeFile(repo.Path, relPath)
			results[i] = res
			if ferr != nil {
				mu.Lock()
				fileErrs = append(fileErrs, *ferr)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "analysis aborted")
	}

	g := graph.New(repo)
	for _, res := range results {
		if res == nil {
			continue
		}
		addFileResult(g, res)
	}
	resolveReferences(g, results, paths)
	g.Finalize()

	if a.authorship {
		attachAuthorship(g, repo.Path)
	}

	slog.Info("analysis complete",
		"repository", repo.Name,
		"files", len(paths),
		"nodes", g.Stats.TotalNodes,
		"edges", g.Stats.TotalEdges,
		"degraded", len(fileErrs),
		"dangling_dropped", g.Stats.DanglingDropped)

	return &Result{Graph: g, Errors: fileErrs}, nil
}

// AnalyzeFile parses a single file into its result set; used by the
// incremental updater for partial re-analysis.
func (a *Analyzer) AnalyzeFile(root, relPath string) (*FileResult, *FileError) {
	return a.analyzeFile(root, relPath)
}

// Supports reports whether any registered extractor handles the path.
func (a *Analyzer) Supports(relPath string) bool {
	_, ok := a.extractors[strings.ToLower(filepath.Ext(relPath))]
	return ok
}

// DiscoverFiles lists supported source files under root, repository-relative
// and sorted, honoring the exclude globs.
func (a *Analyzer) DiscoverFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			for _, g := range a.dirGlobs {
				if g.Match(d.Name()) || g.Match(rel) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !a.Supports(rel) {
			return nil
		}
		for _, g := range a.fileGlobs {
			if g.Match(d.Name()) || g.Match(rel) {
				return nil
			}
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "scan repository")
	}
	sort.Strings(paths)
	return paths, nil
}

func (a *Analyzer) analyzeFile(root, relPath string) (*FileResult, *FileError) {
	degraded := func(reason string) (*FileResult, *FileError) {
		slog.Warn("file degraded to bare node", "path", relPath, "reason", reason)
		return &FileResult{
			FileNode: &graph.Node{ID: relPath, Type: graph.TypeFile, Name: relPath, Path: relPath},
		}, &FileError{Path: relPath, Reason: reason}
	}

	abs := filepath.Join(root, filepath.FromSlash(relPath))
	info, err := os.Stat(abs)
	if err != nil {
		return degraded("stat: " + err.Error())
	}
	if info.Size() > a.cfg.MaxFileBytes {
		return degraded("file exceeds size limit")
	}
	source, err := os.ReadFile(abs)
	if err != nil {
		return degraded("read: " + err.Error())
	}

	ex := a.extractors[strings.ToLower(filepath.Ext(relPath))]
	if ex == nil {
		return degraded("no extractor")
	}

	parseStart := time.Now()
	res, err := ex.Extract(source, relPath)
	observability.ParsingDuration.WithLabelValues(ex.Language()).Observe(time.Since(parseStart).Seconds())
	if err != nil {
		return degraded("parse: " + err.Error())
	}
	return res, nil
}

// Apply inserts one file's nodes and intra-file CONTAINS edges into an
// existing graph; the incremental updater uses it after re-parsing a file.
func Apply(g *graph.Graph, res *FileResult) {
	addFileResult(g, res)
}

// Resolve adds cross-file edges for the given file results against the full
// repository file set.
func Resolve(g *graph.Graph, results []*FileResult, paths []string) {
	resolveReferences(g, results, paths)
}

// addFileResult inserts one file's nodes and intra-file CONTAINS edges.
func addFileResult(g *graph.Graph, res *FileResult) {
	g.AddNode(res.FileNode)
	for _, s := range res.Symbols {
		g.AddNode(s)
	}
	for _, c := range res.Contains {
		g.AddEdge(&graph.Edge{Source: c.Parent, Target: c.Child, Type: graph.EdgeContains})
	}
}
