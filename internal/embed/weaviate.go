// # internal/embed/weaviate.go
package embed

import (
	"context"
	"crypto/sha256"
	"net/url"
	"sort"

	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/graph"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateIndex stores node embeddings in a Weaviate collection and answers
// near-vector queries against it. Object ids derive from the node id, so
// re-indexing a node overwrites its previous vector.
type WeaviateIndex struct {
	client     *weaviate.Client
	embedder   Embedder
	collection string
	threshold  float64
	limit      int
}

func NewWeaviateIndex(cfg config.Embedding, embedder Embedder) (*WeaviateIndex, error) {
	parsed, err := url.Parse(cfg.SearchURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Newf(errors.CodeValidationError, "invalid search URL %q", cfg.SearchURL)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsed.Host,
		Scheme: parsed.Scheme,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "create vector client")
	}

	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = 50
	}
	return &WeaviateIndex{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		threshold:  cfg.ScoreThreshold,
		limit:      limit,
	}, nil
}

// IndexNodes embeds and upserts the given nodes in one batch. Nodes without
// content contribute their docstring; nodes with neither are skipped.
func (w *WeaviateIndex) IndexNodes(ctx context.Context, nodes []*graph.Node) (int, error) {
	texts := make([]string, 0, len(nodes))
	kept := make([]*graph.Node, 0, len(nodes))
	for _, n := range nodes {
		text := n.Content
		if text == "" {
			text = n.Docstring
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
		kept = append(kept, n)
	}
	if len(kept) == 0 {
		return 0, nil
	}

	vectors, err := w.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(kept) {
		return 0, errors.Newf(errors.CodeInternal,
			"vector count mismatch: %d nodes, %d vectors", len(kept), len(vectors))
	}

	objects := make([]*models.Object, len(kept))
	for i, n := range kept {
		objects[i] = &models.Object{
			Class:  w.collection,
			ID:     strfmt.UUID(objectID(n.ID)),
			Vector: vectors[i],
			Properties: map[string]interface{}{
				"nodeId":   n.ID,
				"nodeType": n.Type,
				"path":     n.Path,
			},
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeUnavailable, "batch index failed")
	}

	stored := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			stored++
		}
	}
	return stored, nil
}

// Search embeds the query and returns nearby nodes above the certainty
// threshold, best first.
func (w *WeaviateIndex) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	vectors, err := w.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errors.New(errors.CodeInternal, "query embedding missing")
	}

	if limit <= 0 || limit > w.limit {
		limit = w.limit
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vectors[0])
	if w.threshold > 0 {
		nearVector = nearVector.WithCertainty(float32(w.threshold))
	}

	fields := []graphql.Field{
		{Name: "nodeId"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(w.collection).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "vector search failed")
	}
	if len(result.Errors) > 0 {
		return nil, errors.Newf(errors.CodeUnavailable, "vector search error: %s", result.Errors[0].Message)
	}

	return parseMatches(result.Data, w.collection), nil
}

// parseMatches walks the GraphQL response shape Get -> <collection> -> hits.
func parseMatches(data map[string]models.JSONObject, collection string) []Match {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	hits, ok := get[collection].([]interface{})
	if !ok {
		return nil
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		obj, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		nodeID, _ := obj["nodeId"].(string)
		if nodeID == "" {
			continue
		}
		score := 0.0
		if add, ok := obj["_additional"].(map[string]interface{}); ok {
			if c, ok := add["certainty"].(float64); ok {
				score = c
			}
		}
		matches = append(matches, Match{NodeID: nodeID, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].NodeID < matches[j].NodeID
	})
	return matches
}

// objectID derives a stable UUID from a node id.
func objectID(nodeID string) string {
	hash := sha256.Sum256([]byte(nodeID))
	id, _ := uuid.FromBytes(hash[:16])
	return id.String()
}
