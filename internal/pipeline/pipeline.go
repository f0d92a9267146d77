// # internal/pipeline/pipeline.go

// Package pipeline assembles token-bounded context slices: resolve entry
// points, expand the dependency graph around them, rank the candidates and
// fit the best ones into the budget.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"aura/internal/budget"
	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/data/store"
	"aura/internal/embed"
	"aura/internal/rank"
	"aura/internal/shared/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("aura/pipeline")

// maxDistanceDepth bounds the hop-count BFS used for the proximity signal.
const maxDistanceDepth = 16

type Pipeline struct {
	cfg      config.Config
	store    store.Store
	searcher embed.Searcher // nil disables semantic ranking
	ranker   *rank.Ranker
}

func New(cfg config.Config, st store.Store, searcher embed.Searcher) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		searcher: searcher,
		ranker:   rank.New(rank.DefaultWeights()),
	}
}

// Request describes one context-slice build.
type Request struct {
	Repository string
	// EntryPoints accept a node id, a file path, file:line, or a glob over
	// ids and paths.
	EntryPoints []string
	// Query drives semantic ranking; empty means graph-only ranking.
	Query string
	// Strategy overrides the allocator; empty means adaptive.
	Strategy string
	// MaxTokens overrides the configured budget when positive.
	MaxTokens int
}

// Item is one node admitted to the slice.
type Item struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Path      string  `json:"path"`
	Lines     *[2]int `json:"lines,omitempty"`
	Score     float64 `json:"score"`
	Tokens    int     `json:"tokens"`
	Truncated bool    `json:"truncated,omitempty"`
	Content   string  `json:"content"`
}

type Stats struct {
	Candidates   int           `json:"candidates"`
	Included     int           `json:"included"`
	Dropped      int           `json:"dropped"`
	TotalTokens  int           `json:"total_tokens"`
	Budget       int           `json:"budget"`
	Strategy     string        `json:"strategy"`
	SemanticUsed bool          `json:"semantic_used"`
	Latency      time.Duration `json:"latency"`
}

type Slice struct {
	Repository  string   `json:"repository"`
	EntryPoints []string `json:"entry_points"`
	Items       []Item   `json:"items"`
	Stats       Stats    `json:"stats"`
}

// BuildContext runs the full pipeline. Semantic search failures degrade to
// graph-only ranking; everything else is fatal.
func (p *Pipeline) BuildContext(ctx context.Context, req Request) (*Slice, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "BuildContext", trace.WithAttributes(
		attribute.String("repository", req.Repository),
		attribute.Int("entry_points", len(req.EntryPoints)),
	))
	defer span.End()
	defer func() {
		observability.PipelineDuration.WithLabelValues("build").Observe(time.Since(start).Seconds())
	}()

	if len(req.EntryPoints) == 0 {
		return nil, errors.New(errors.CodeValidationError, "at least one entry point is required")
	}

	g, err := p.store.LoadGraph(ctx, req.Repository)
	if err != nil {
		return nil, err
	}

	entries, err := ResolveEntryPoints(g, req.EntryPoints)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("resolved_entries", len(entries)))

	visits := g.ExpandWeighted(entries, p.cfg.Expansion.EdgeWeights, p.cfg.Expansion.WeightThreshold)
	if ceiling := p.cfg.Budget.NodeCeiling; ceiling > 0 && len(visits) > ceiling {
		visits = visits[:ceiling]
	}

	semanticScores, semanticUsed := p.semanticScores(ctx, req.Query)
	distances := g.Distances(entries, maxDistanceDepth)

	loadContent(g, p.repoRoot(req.Repository), visits)
	ranked := p.ranker.Rank(g, visits, semanticScores, distances)

	maxTokens := p.cfg.Budget
	if req.MaxTokens > 0 {
		maxTokens.MaxTokens = req.MaxTokens
	}
	allocator, err := budget.New(req.Strategy, p.cfg.Budget)
	if err != nil {
		return nil, err
	}
	effective := budget.EffectiveBudget(maxTokens)
	result := allocator.Allocate(ranked, effective)
	refineSlots(result, p.cfg.Budget.MaxNodeTokens)

	slice := &Slice{
		Repository:  req.Repository,
		EntryPoints: entries,
		Items:       make([]Item, 0, len(result.Slots)),
		Stats: Stats{
			Candidates:   len(ranked),
			Included:     len(result.Slots),
			Dropped:      result.Dropped,
			TotalTokens:  result.TotalTokens,
			Budget:       effective,
			Strategy:     result.Strategy,
			SemanticUsed: semanticUsed,
			Latency:      time.Since(start),
		},
	}
	for _, slot := range result.Slots {
		slice.Items = append(slice.Items, Item{
			ID:        slot.Node.Node.ID,
			Type:      slot.Node.Node.Type,
			Path:      slot.Node.Node.Path,
			Lines:     slot.Node.Node.Lines,
			Score:     slot.Node.Score,
			Tokens:    slot.Tokens,
			Truncated: slot.Truncated,
			Content:   slot.Content,
		})
	}

	slog.Info("context slice built",
		"repository", req.Repository,
		"entries", len(entries),
		"candidates", len(ranked),
		"included", len(slice.Items),
		"tokens", slice.Stats.TotalTokens,
		"budget", effective,
		"strategy", result.Strategy,
		"semantic", semanticUsed,
		"latency", slice.Stats.Latency)
	return slice, nil
}

// semanticScores runs the vector search when one is configured. A failing
// search logs and returns nothing; ranking proceeds without the signal.
func (p *Pipeline) semanticScores(ctx context.Context, query string) (map[string]float64, bool) {
	if p.searcher == nil || query == "" {
		return nil, false
	}
	ctx, span := tracer.Start(ctx, "SemanticSearch")
	defer span.End()

	matches, err := p.searcher.Search(ctx, query, p.cfg.Embedding.SearchLimit)
	if err != nil {
		slog.Warn("semantic search unavailable, ranking without it", "error", err)
		return nil, false
	}
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		scores[m.NodeID] = m.Score
	}
	return scores, true
}

func (p *Pipeline) repoRoot(repository string) string {
	if p.cfg.Repository.Name == repository {
		return p.cfg.Repository.Root
	}
	return ""
}
