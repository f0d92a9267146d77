// # internal/data/store/tx.go
package store

import (
	"context"
	"database/sql"

	"aura/internal/core/errors"
	"aura/internal/graph"
)

// Transaction runs fn against a single sqlite transaction scoped to one
// repository. Any error from fn rolls everything back; incremental updates
// rely on this to stay all-or-nothing.
func (s *SQLStore) Transaction(ctx context.Context, repository string, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("transaction", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		wrapped := &sqlTx{ctx: ctx, tx: tx, repo: repository}
		if err := fn(wrapped); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

type sqlTx struct {
	ctx  context.Context
	tx   *sql.Tx
	repo string
}

func (t *sqlTx) UpsertNode(n *graph.Node) error {
	return insertNode(t.ctx, t.tx, t.repo, n)
}

func (t *sqlTx) CreateEdge(e *graph.Edge) error {
	return insertEdge(t.ctx, t.tx, t.repo, e)
}

func (t *sqlTx) NodeExists(id string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT 1 FROM nodes WHERE repository = ? AND id = ?`, t.repo, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.CodeInternal, "node exists")
	}
	return true, nil
}

// DeleteNodesForPath removes a file's nodes together with every edge
// touching them.
func (t *sqlTx) DeleteNodesForPath(path string) (int, error) {
	if _, err := t.tx.ExecContext(t.ctx, `
DELETE FROM edges WHERE repository = ?1 AND (
  source IN (SELECT id FROM nodes WHERE repository = ?1 AND path = ?2) OR
  target IN (SELECT id FROM nodes WHERE repository = ?1 AND path = ?2)
)`, t.repo, path); err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "delete edges for path")
	}

	res, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM nodes WHERE repository = ? AND path = ?`, t.repo, path)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "delete nodes for path")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (t *sqlTx) DeleteEdgesForNode(id string) error {
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM edges WHERE repository = ? AND (source = ? OR target = ?)`,
		t.repo, id, id)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "delete edges for node")
	}
	return nil
}

func (t *sqlTx) DeleteOutgoingEdges(id string) error {
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM edges WHERE repository = ? AND source = ?`, t.repo, id)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "delete outgoing edges")
	}
	return nil
}

// CreateExternalRef records an edge whose target fell out of the graph, so
// a later update that restores the target can resurrect the edge.
func (t *sqlTx) CreateExternalRef(source, target, edgeType string) error {
	_, err := t.tx.ExecContext(t.ctx, `
INSERT INTO external_refs (repository, source, target, type)
VALUES (?, ?, ?, ?)
ON CONFLICT(repository, source, target, type) DO NOTHING
`, t.repo, source, target, edgeType)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create external ref")
	}
	return nil
}
