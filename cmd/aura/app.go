// # cmd/aura/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"aura/internal/analyzer"
	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/data/store"
	"aura/internal/embed"
	"aura/internal/graph"
	"aura/internal/pipeline"
	"aura/internal/registry"
	"aura/internal/shared/observability"
	"aura/internal/update"
	"aura/internal/watcher"
)

type App struct {
	cfg      *config.Config
	registry *registry.Registry
	store    *store.SQLStore
	analyzer *analyzer.Analyzer
	pipeline *pipeline.Pipeline
	index    *embed.WeaviateIndex
	detector *update.Detector
}

func NewApp(cfg *config.Config) (*App, error) {
	root, err := filepath.Abs(cfg.Repository.Root)
	if err != nil {
		return nil, err
	}
	cfg.Repository.Root = root
	if cfg.Repository.Name == "" {
		cfg.Repository.Name = filepath.Base(root)
	}

	reg := registry.NewDefault()
	extractors := reg.Extractors(cfg.Analyzer.Languages)
	if len(extractors) == 0 {
		return nil, errors.Newf(errors.CodeValidationError, "no extractors for languages %v", cfg.Analyzer.Languages)
	}
	an, err := analyzer.New(cfg.Analyzer, extractors)
	if err != nil {
		return nil, err
	}

	storePath := cfg.Store.Path
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(root, storePath)
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0755); err != nil {
		return nil, err
	}
	st, err := store.Open(storePath, cfg.Store.BusyTimeout)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		registry: reg,
		store:    st,
		analyzer: an,
		detector: update.NewDetector(root, 50),
	}

	// The vector backend is optional: without it slices are built from
	// graph signals alone.
	searcher := app.connectVectorIndex()
	app.pipeline = pipeline.New(*cfg, st, searcher)
	return app, nil
}

func (a *App) connectVectorIndex() embed.Searcher {
	if a.cfg.Embedding.SearchURL == "" {
		return nil
	}
	embedder, err := embed.NewOpenAIEmbedder(a.cfg.Embedding)
	if err != nil {
		slog.Warn("embedding backend unavailable, semantic ranking disabled", "error", err)
		return nil
	}
	idx, err := embed.NewWeaviateIndex(a.cfg.Embedding, embedder)
	if err != nil {
		slog.Warn("vector index unavailable, semantic ranking disabled", "error", err)
		return nil
	}
	a.index = idx
	return idx
}

func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func (a *App) repo() graph.Repository {
	return graph.Repository{
		Name:  a.cfg.Repository.Name,
		Path:  a.cfg.Repository.Root,
		Owner: a.cfg.Repository.Owner,
	}
}

func (a *App) Run(command string, args []string) error {
	ctx := context.Background()
	switch command {
	case "analyze":
		return a.cmdAnalyze(ctx)
	case "slice":
		return a.cmdSlice(ctx, args)
	case "update":
		return a.cmdUpdate(ctx)
	case "watch":
		return a.cmdWatch(ctx)
	case "snapshot":
		return a.cmdSnapshot(ctx, args)
	case "serve":
		return a.cmdServe(ctx)
	default:
		return errors.Newf(errors.CodeValidationError, "unknown command %q", command)
	}
}

func (a *App) cmdAnalyze(ctx context.Context) error {
	res, err := a.analyzer.Analyze(ctx, a.repo())
	if err != nil {
		return err
	}
	if sha, err := a.detector.HeadSHA(); err == nil {
		res.Graph.SHA = sha
	}
	if err := a.store.SaveGraph(ctx, res.Graph); err != nil {
		return err
	}
	for _, fe := range res.Errors {
		slog.Warn("degraded file", "path", fe.Path, "reason", fe.Reason)
	}

	if *index {
		if a.index == nil {
			return errors.New(errors.CodeValidationError, "indexing requested but no vector backend configured")
		}
		indexed, err := a.index.IndexNodes(ctx, res.Graph.Nodes)
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d nodes\n", indexed)
	}

	fmt.Printf("analyzed %s: %d nodes, %d edges (%d files degraded)\n",
		a.cfg.Repository.Name, res.Graph.Stats.TotalNodes, res.Graph.Stats.TotalEdges, len(res.Errors))
	return nil
}

func (a *App) cmdSlice(ctx context.Context, entries []string) error {
	if len(entries) == 0 {
		return errors.New(errors.CodeValidationError, "slice requires at least one entry point")
	}
	slice, err := a.pipeline.BuildContext(ctx, pipeline.Request{
		Repository:  a.cfg.Repository.Name,
		EntryPoints: entries,
		Query:       *query,
		Strategy:    *strategy,
		MaxTokens:   *maxTokens,
	})
	if err != nil {
		return err
	}
	f, err := a.registry.Formatter(*format)
	if err != nil {
		return err
	}
	return f.Write(os.Stdout, slice)
}

func (a *App) cmdUpdate(ctx context.Context) error {
	base := *since
	if base == "" {
		g, err := a.store.LoadGraph(ctx, a.cfg.Repository.Name)
		if err != nil {
			return errors.Wrap(err, errors.CodeNotFound, "no stored graph; run analyze first")
		}
		base = g.SHA
	}
	if base == "" {
		return errors.New(errors.CodeValidationError, "stored graph has no revision; pass -since")
	}

	changes, err := a.detector.ChangesSince(base)
	if err != nil {
		return err
	}
	changes = a.supportedChanges(changes)
	head, err := a.detector.HeadSHA()
	if err != nil {
		return err
	}

	res, err := a.applyUpdate(ctx, changes, head)
	if err != nil {
		return err
	}
	fmt.Printf("updated %s to %.12s: %d files, +%d/-%d nodes, %d edges\n",
		a.cfg.Repository.Name, res.SHA, res.FilesProcessed, res.NodesAdded, res.NodesRemoved, res.EdgesWritten)
	return nil
}

func (a *App) applyUpdate(ctx context.Context, changes []update.FileChange, sha string) (*update.Result, error) {
	u := update.NewUpdater(a.store, a.analyzer, a.cfg.Store.LockTTL)
	res, err := u.Apply(ctx, a.repo(), changes, sha)
	if err != nil {
		return nil, err
	}
	for _, fe := range res.Errors {
		slog.Warn("degraded file", "path", fe.Path, "reason", fe.Reason)
	}
	return res, nil
}

// supportedChanges drops files no extractor handles. Deletes pass through
// on extension alone so removed source files still clear their nodes.
func (a *App) supportedChanges(changes []update.FileChange) []update.FileChange {
	kept := changes[:0]
	for _, c := range changes {
		if a.analyzer.Supports(c.Path) {
			kept = append(kept, c)
		}
	}
	return kept
}

func (a *App) cmdWatch(ctx context.Context) error {
	server := observability.NewServer(a.cfg.Observability.Addr, nil)
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop(ctx)

	w, err := watcher.New(
		a.cfg.Repository.Root,
		a.cfg.Watch.Debounce,
		a.cfg.Analyzer.ExcludeDirs,
		a.cfg.Analyzer.ExcludeFiles,
		func(batch []update.FileChange) {
			batch = a.supportedChanges(batch)
			if len(batch) == 0 {
				return
			}
			sha, _ := a.detector.HeadSHA()
			if _, err := a.applyUpdate(context.Background(), batch, sha); err != nil {
				slog.Error("incremental update failed", "error", err)
			}
		},
	)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		return err
	}

	slog.Info("watching repository", "root", a.cfg.Repository.Root, "debounce", a.cfg.Watch.Debounce)
	waitForSignal()
	return nil
}

func (a *App) cmdSnapshot(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(errors.CodeValidationError, "snapshot requires save, list or diff")
	}
	repo := a.cfg.Repository.Name

	switch args[0] {
	case "save":
		if len(args) < 2 {
			return errors.New(errors.CodeValidationError, "snapshot save requires a label")
		}
		g, err := a.store.LoadGraph(ctx, repo)
		if err != nil {
			return err
		}
		if err := a.store.SaveSnapshot(ctx, repo, args[1], g); err != nil {
			return err
		}
		fmt.Printf("saved snapshot %q at %.12s\n", args[1], g.SHA)
		return nil

	case "list":
		infos, err := a.store.ListSnapshots(ctx, repo)
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Printf("%-20s %.12s %s\n", info.Label, info.SHA, info.TakenAt.Format("2006-01-02 15:04:05"))
		}
		return nil

	case "diff":
		if len(args) < 2 {
			return errors.New(errors.CodeValidationError, "snapshot diff requires a label")
		}
		old, err := a.store.LoadSnapshot(ctx, repo, args[1])
		if err != nil {
			return err
		}
		current, err := a.store.LoadGraph(ctx, repo)
		if err != nil {
			return err
		}
		printDiff(graph.Diff(old, current))
		return nil

	default:
		return errors.Newf(errors.CodeValidationError, "unknown snapshot action %q", args[0])
	}
}

func printDiff(d graph.DiffResult) {
	if d.Empty() {
		fmt.Println("no changes")
		return
	}
	for _, id := range d.AddedNodes {
		fmt.Printf("+ %s\n", id)
	}
	for _, id := range d.RemovedNodes {
		fmt.Printf("- %s\n", id)
	}
	for _, id := range d.ChangedNodes {
		fmt.Printf("~ %s\n", id)
	}
	for _, e := range d.AddedEdges {
		fmt.Printf("+ %s -%s-> %s\n", e.Source, e.Type, e.Target)
	}
	for _, e := range d.RemovedEdges {
		fmt.Printf("- %s -%s-> %s\n", e.Source, e.Type, e.Target)
	}
}

func (a *App) cmdServe(ctx context.Context) error {
	server := observability.NewServer(a.cfg.Observability.Addr, nil)
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop(ctx)
	waitForSignal()
	return nil
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
