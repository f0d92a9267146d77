// # internal/data/store/graphstore.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"aura/internal/core/errors"
	"aura/internal/graph"

	"github.com/gobwas/glob"
)

// SaveGraph replaces the stored graph for the repository in one transaction.
func (s *SQLStore) SaveGraph(ctx context.Context, g *graph.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo := g.Repository.Name
	if repo == "" {
		return errors.New(errors.CodeValidationError, "graph has no repository name")
	}

	return s.withRetry("save graph", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, stmt := range []string{
			`DELETE FROM nodes WHERE repository = ?`,
			`DELETE FROM edges WHERE repository = ?`,
			`DELETE FROM external_refs WHERE repository = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, repo); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO graphs (repository, graph_id, version, sha, generated_at_utc, dangling_dropped)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(repository) DO UPDATE SET
  graph_id=excluded.graph_id,
  version=excluded.version,
  sha=excluded.sha,
  generated_at_utc=excluded.generated_at_utc,
  dangling_dropped=excluded.dangling_dropped
`, repo, g.ID, g.Version, g.SHA, g.GeneratedAt.UTC().Format(time.RFC3339Nano), g.Stats.DanglingDropped); err != nil {
			return err
		}

		for _, n := range g.Nodes {
			if err := insertNode(ctx, tx, repo, n); err != nil {
				return err
			}
		}
		for _, e := range g.Edges {
			if err := insertEdge(ctx, tx, repo, e); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadGraph rebuilds the stored graph. A repository that was never saved
// returns NOT_FOUND.
func (s *SQLStore) LoadGraph(ctx context.Context, repository string) (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadGraphLocked(ctx, repository)
}

func (s *SQLStore) loadGraphLocked(ctx context.Context, repository string) (*graph.Graph, error) {
	var (
		g           = graph.New(graph.Repository{Name: repository})
		generatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT graph_id, version, sha, generated_at_utc FROM graphs WHERE repository = ?`,
		repository,
	).Scan(&g.ID, &g.Version, &g.SHA, &generatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.CodeNotFound, "no stored graph for repository %q", repository)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load graph header")
	}
	if ts, err := time.Parse(time.RFC3339Nano, generatedAt); err == nil {
		g.GeneratedAt = ts
	}

	nodes, err := s.queryNodes(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE repository = ? ORDER BY id`, repository)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		g.AddNode(n)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, type, line, extra_json FROM edges WHERE repository = ? ORDER BY source, target, type, line`,
		repository)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load edges")
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		g.AddEdge(e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "iterate edges")
	}

	g.Finalize()
	return g, nil
}

func (s *SQLStore) GetAllNodes(ctx context.Context, repository string) ([]*graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryNodes(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE repository = ? ORDER BY id`, repository)
}

// FindNodes matches node ids and paths against a glob pattern.
func (s *SQLStore) FindNodes(ctx context.Context, repository, pattern string) ([]*graph.Node, error) {
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Newf(errors.CodeValidationError, "invalid pattern %q", pattern)
	}

	all, err := s.GetAllNodes(ctx, repository)
	if err != nil {
		return nil, err
	}
	var out []*graph.Node
	for _, n := range all {
		if matcher.Match(n.ID) || matcher.Match(n.Path) {
			out = append(out, n)
		}
	}
	return out, nil
}

// QueryDependencies returns nodes reachable from nodeID within depth hops,
// nearest first.
func (s *SQLStore) QueryDependencies(ctx context.Context, repository, nodeID string, depth int) ([]graph.Visit, error) {
	g, err := s.LoadGraph(ctx, repository)
	if err != nil {
		return nil, err
	}
	if !g.HasNode(nodeID) {
		return nil, errors.Newf(errors.CodeNotFound, "node %q not in graph", nodeID)
	}

	distances := g.Distances([]string{nodeID}, depth)
	visits := make([]graph.Visit, 0, len(distances))
	for id, d := range distances {
		visits = append(visits, graph.Visit{ID: id, Weight: 1 / float64(1+d), Distance: d})
	}
	sortVisits(visits)
	return visits, nil
}

// QueryDependenciesWeighted runs the weighted expansion against the stored
// graph.
func (s *SQLStore) QueryDependenciesWeighted(ctx context.Context, repository string, entries []string, weights map[string]float64, threshold float64) ([]graph.Visit, error) {
	g, err := s.LoadGraph(ctx, repository)
	if err != nil {
		return nil, err
	}
	return g.ExpandWeighted(entries, weights, threshold), nil
}

// SetGraphSHA advances the stored revision marker after an incremental
// update batch lands.
func (s *SQLStore) SetGraphSHA(ctx context.Context, repository, sha string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("set graph sha", func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE graphs SET sha = ?, generated_at_utc = ? WHERE repository = ?`,
			sha, time.Now().UTC().Format(time.RFC3339Nano), repository)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Newf(errors.CodeNotFound, "no stored graph for repository %q", repository)
		}
		return nil
	})
}

const nodeColumns = `id, type, name, path, start_line, end_line, docstring, content, authorship_json, extra_json`

func (s *SQLStore) queryNodes(ctx context.Context, query string, args ...any) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "query nodes")
	}
	defer rows.Close()

	var out []*graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "iterate nodes")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*graph.Node, error) {
	var (
		n              graph.Node
		startLine      sql.NullInt64
		endLine        sql.NullInt64
		authorshipJSON string
		extraJSON      string
	)
	if err := row.Scan(&n.ID, &n.Type, &n.Name, &n.Path, &startLine, &endLine,
		&n.Docstring, &n.Content, &authorshipJSON, &extraJSON); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "scan node row")
	}
	if startLine.Valid && endLine.Valid {
		n.Lines = &[2]int{int(startLine.Int64), int(endLine.Int64)}
	}
	if authorshipJSON != "" {
		var auth graph.Authorship
		if err := json.Unmarshal([]byte(authorshipJSON), &auth); err == nil {
			n.Authors = &auth
		}
	}
	if extraJSON != "" {
		_ = json.Unmarshal([]byte(extraJSON), &n.Extra)
	}
	return &n, nil
}

func scanEdge(row rowScanner) (*graph.Edge, error) {
	var (
		e         graph.Edge
		extraJSON string
	)
	if err := row.Scan(&e.Source, &e.Target, &e.Type, &e.Line, &extraJSON); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "scan edge row")
	}
	if extraJSON != "" {
		_ = json.Unmarshal([]byte(extraJSON), &e.Extra)
	}
	return &e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertNode(ctx context.Context, ex execer, repo string, n *graph.Node) error {
	var startLine, endLine any
	if n.Lines != nil {
		startLine, endLine = n.Lines[0], n.Lines[1]
	}
	authorshipJSON := ""
	if n.Authors != nil {
		if b, err := json.Marshal(n.Authors); err == nil {
			authorshipJSON = string(b)
		}
	}
	extraJSON := ""
	if len(n.Extra) > 0 {
		if b, err := json.Marshal(n.Extra); err == nil {
			extraJSON = string(b)
		}
	}
	_, err := ex.ExecContext(ctx, `
INSERT INTO nodes (repository, id, type, name, path, start_line, end_line, docstring, content, authorship_json, extra_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(repository, id) DO UPDATE SET
  type=excluded.type,
  name=excluded.name,
  path=excluded.path,
  start_line=excluded.start_line,
  end_line=excluded.end_line,
  docstring=excluded.docstring,
  content=excluded.content,
  authorship_json=excluded.authorship_json,
  extra_json=excluded.extra_json
`, repo, n.ID, n.Type, n.Name, n.Path, startLine, endLine, n.Docstring, n.Content, authorshipJSON, extraJSON)
	return err
}

func insertEdge(ctx context.Context, ex execer, repo string, e *graph.Edge) error {
	extraJSON := ""
	if len(e.Extra) > 0 {
		if b, err := json.Marshal(e.Extra); err == nil {
			extraJSON = string(b)
		}
	}
	_, err := ex.ExecContext(ctx, `
INSERT INTO edges (repository, source, target, type, line, extra_json)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(repository, source, target, type, line) DO UPDATE SET extra_json=excluded.extra_json
`, repo, e.Source, e.Target, e.Type, e.Line, extraJSON)
	return err
}

// sortVisits orders nearest first, then lexicographic for determinism.
func sortVisits(visits []graph.Visit) {
	sort.Slice(visits, func(i, j int) bool {
		if visits[i].Distance != visits[j].Distance {
			return visits[i].Distance < visits[j].Distance
		}
		return visits[i].ID < visits[j].ID
	})
}
