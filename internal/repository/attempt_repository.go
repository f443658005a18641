package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// attemptRetention bounds ledger growth; attempts older than this are pruned
// on every write. Lockout windows are minutes, so 24 hours is always enough.
const attemptRetention = 24 * time.Hour

// AttemptRepository defines the interface for the login attempt ledger
type AttemptRepository interface {
	// Record appends an attempt and prunes entries older than 24 hours in
	// the same transaction.
	Record(ctx context.Context, sourceAddress string, succeeded bool) error
	// CountFailedSince counts failed attempts from sourceAddress strictly
	// after the given instant. Pure read.
	CountFailedSince(ctx context.Context, sourceAddress string, since time.Time) (int, error)
}

// attemptRepository implements AttemptRepository using PostgreSQL
type attemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository instance
func NewAttemptRepository(pool *pgxpool.Pool) AttemptRepository {
	return &attemptRepository{pool: pool}
}

// Record appends a login attempt and prunes the ledger
func (r *attemptRepository) Record(ctx context.Context, sourceAddress string, succeeded bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin attempt record: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO login_attempts (source_address, succeeded, attempted_at) VALUES ($1, $2, $3)`,
		sourceAddress, succeeded, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM login_attempts WHERE attempted_at < $1`,
		time.Now().UTC().Add(-attemptRetention),
	)
	if err != nil {
		return fmt.Errorf("prune login attempts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit attempt record: %w", err)
	}
	return nil
}

// CountFailedSince counts failed attempts within the trailing window.
// The boundary comparison is strict, matching a sliding window.
func (r *attemptRepository) CountFailedSince(ctx context.Context, sourceAddress string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE source_address = $1 AND succeeded = false AND attempted_at > $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, sourceAddress, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed attempts: %w", err)
	}
	return count, nil
}
