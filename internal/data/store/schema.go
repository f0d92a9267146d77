// # internal/data/store/schema.go
package store

import (
	"database/sql"
	"fmt"
)

const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS graphs (
  repository TEXT PRIMARY KEY,
  graph_id TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT '',
  sha TEXT NOT NULL DEFAULT '',
  generated_at_utc TEXT NOT NULL,
  dangling_dropped INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS nodes (
  repository TEXT NOT NULL,
  id TEXT NOT NULL,
  type TEXT NOT NULL,
  name TEXT NOT NULL,
  path TEXT NOT NULL DEFAULT '',
  start_line INTEGER,
  end_line INTEGER,
  docstring TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  authorship_json TEXT NOT NULL DEFAULT '',
  extra_json TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (repository, id)
);
CREATE INDEX IF NOT EXISTS idx_nodes_path ON nodes(repository, path);
CREATE TABLE IF NOT EXISTS edges (
  repository TEXT NOT NULL,
  source TEXT NOT NULL,
  target TEXT NOT NULL,
  type TEXT NOT NULL,
  line INTEGER NOT NULL DEFAULT 0,
  extra_json TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (repository, source, target, type, line)
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(repository, source);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(repository, target);
CREATE TABLE IF NOT EXISTS snapshots (
  repository TEXT NOT NULL,
  label TEXT NOT NULL,
  taken_at_utc TEXT NOT NULL,
  sha TEXT NOT NULL DEFAULT '',
  graph_json BLOB NOT NULL,
  PRIMARY KEY (repository, label)
);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS locks (
  repository TEXT PRIMARY KEY,
  holder TEXT NOT NULL,
  acquired_at_utc TEXT NOT NULL,
  expires_at_utc TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS external_refs (
  repository TEXT NOT NULL,
  source TEXT NOT NULL,
  target TEXT NOT NULL,
  type TEXT NOT NULL,
  PRIMARY KEY (repository, source, target, type)
);
`,
	},
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
