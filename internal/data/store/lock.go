// # internal/data/store/lock.go
package store

import (
	"context"
	"time"

	"aura/internal/core/errors"
)

// AcquireLock takes the per-repository update lock. It returns false without
// error when another live holder has it; expired locks are stolen. The TTL
// bounds how long a crashed updater can block the repository.
func (s *SQLStore) AcquireLock(ctx context.Context, repository, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		return false, errors.New(errors.CodeValidationError, "lock TTL must be positive")
	}
	now := time.Now().UTC()
	expires := now.Add(ttl).Format(time.RFC3339Nano)

	var acquired bool
	err := s.withRetry("acquire lock", func() error {
		res, err := s.db.ExecContext(ctx, `
INSERT INTO locks (repository, holder, acquired_at_utc, expires_at_utc)
VALUES (?1, ?2, ?3, ?4)
ON CONFLICT(repository) DO UPDATE SET
  holder=excluded.holder,
  acquired_at_utc=excluded.acquired_at_utc,
  expires_at_utc=excluded.expires_at_utc
WHERE locks.expires_at_utc < ?3 OR locks.holder = ?2
`, repository, holder, now.Format(time.RFC3339Nano), expires)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		acquired = n > 0
		return nil
	})
	return acquired, err
}

// ReleaseLock drops the lock if this holder still owns it. Releasing a lock
// someone else stole is a no-op, not an error.
func (s *SQLStore) ReleaseLock(ctx context.Context, repository, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("release lock", func() error {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM locks WHERE repository = ? AND holder = ?`, repository, holder)
		return err
	})
}
