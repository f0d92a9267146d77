// # internal/data/store/store.go

// Package store persists dependency graphs in sqlite. One database holds any
// number of repositories; all rows are keyed by repository name so updates
// to one never touch another.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"aura/internal/core/errors"
	"aura/internal/graph"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store is the persistence surface the pipeline and updater depend on.
type Store interface {
	SaveGraph(ctx context.Context, g *graph.Graph) error
	LoadGraph(ctx context.Context, repository string) (*graph.Graph, error)
	GetAllNodes(ctx context.Context, repository string) ([]*graph.Node, error)
	FindNodes(ctx context.Context, repository, pattern string) ([]*graph.Node, error)
	QueryDependencies(ctx context.Context, repository, nodeID string, depth int) ([]graph.Visit, error)
	QueryDependenciesWeighted(ctx context.Context, repository string, entries []string, weights map[string]float64, threshold float64) ([]graph.Visit, error)
	Transaction(ctx context.Context, repository string, fn func(Tx) error) error
	SetGraphSHA(ctx context.Context, repository, sha string) error
	SaveSnapshot(ctx context.Context, repository, label string, g *graph.Graph) error
	LoadSnapshot(ctx context.Context, repository, label string) (*graph.Graph, error)
	ListSnapshots(ctx context.Context, repository string) ([]SnapshotInfo, error)
	AcquireLock(ctx context.Context, repository, holder string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, repository, holder string) error
	Close() error
}

// Tx is the mutation surface inside one graph transaction.
type Tx interface {
	UpsertNode(n *graph.Node) error
	CreateEdge(e *graph.Edge) error
	NodeExists(id string) (bool, error)
	DeleteNodesForPath(path string) (int, error)
	DeleteEdgesForNode(id string) error
	DeleteOutgoingEdges(id string) error
	CreateExternalRef(source, target, edgeType string) error
}

type SnapshotInfo struct {
	Label   string
	SHA     string
	TakenAt time.Time
}

type SQLStore struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates or opens the sqlite database and applies pending migrations.
func Open(path string, busyTimeout time.Duration) (*SQLStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeValidationError, "store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "create store directory")
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}
	// busy_timeout + WAL reduce lock conflicts when watch mode and queries
	// hit the database at the same time.
	dsn := "file:" + cleanPath +
		"?_pragma=busy_timeout(" + strconv.Itoa(int(busyTimeout.Milliseconds())) + ")" +
		"&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "open sqlite store")
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeUnavailable, "ping sqlite store")
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "initialize sqlite schema")
	}

	return &SQLStore{path: cleanPath, db: db}, nil
}

func (s *SQLStore) Path() string { return s.path }

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return errors.Wrap(lastErr, errors.CodeInternal, op)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
