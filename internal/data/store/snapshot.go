// # internal/data/store/snapshot.go
package store

import (
	"context"
	"database/sql"
	"time"

	"aura/internal/core/errors"
	"aura/internal/graph"
)

// SaveSnapshot stores a labeled full-graph copy for later diffing. Saving
// the same label again overwrites it.
func (s *SQLStore) SaveSnapshot(ctx context.Context, repository, label string, g *graph.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if label == "" {
		return errors.New(errors.CodeValidationError, "snapshot label must not be empty")
	}
	encoded, err := graph.EncodeGraph(g)
	if err != nil {
		return err
	}

	return s.withRetry("save snapshot", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO snapshots (repository, label, taken_at_utc, sha, graph_json)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(repository, label) DO UPDATE SET
  taken_at_utc=excluded.taken_at_utc,
  sha=excluded.sha,
  graph_json=excluded.graph_json
`, repository, label, time.Now().UTC().Format(time.RFC3339Nano), g.SHA, encoded)
		return err
	})
}

func (s *SQLStore) LoadSnapshot(ctx context.Context, repository, label string) (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var encoded []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT graph_json FROM snapshots WHERE repository = ? AND label = ?`,
		repository, label).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.CodeNotFound, "snapshot %q not found for repository %q", label, repository)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load snapshot")
	}
	return graph.DecodeGraph(encoded)
}

func (s *SQLStore) ListSnapshots(ctx context.Context, repository string) ([]SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT label, sha, taken_at_utc FROM snapshots WHERE repository = ? ORDER BY taken_at_utc DESC, label`,
		repository)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list snapshots")
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info  SnapshotInfo
			taken string
		)
		if err := rows.Scan(&info.Label, &info.SHA, &taken); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan snapshot row")
		}
		if ts, err := time.Parse(time.RFC3339Nano, taken); err == nil {
			info.TakenAt = ts
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "iterate snapshots")
	}
	return out, nil
}
