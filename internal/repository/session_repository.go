package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session repository errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository defines the interface for admin session data access
type SessionRepository interface {
	Create(ctx context.Context, session *AdminSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*AdminSession, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

// sessionRepository implements SessionRepository using PostgreSQL
type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

// Create inserts a new session. The token_hash unique constraint guarantees
// token uniqueness across the store.
func (r *sessionRepository) Create(ctx context.Context, session *AdminSession) error {
	query := `
		INSERT INTO admin_sessions (token_hash, source_address, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		session.TokenHash,
		session.SourceAddress,
		session.CreatedAt,
		session.ExpiresAt,
	).Scan(&session.ID)
	if err != nil {
		return fmt.Errorf("create admin session: %w", err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash
func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*AdminSession, error) {
	query := `
		SELECT id, token_hash, source_address, created_at, expires_at
		FROM admin_sessions
		WHERE token_hash = $1
	`

	session := &AdminSession{}
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID,
		&session.TokenHash,
		&session.SourceAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get admin session: %w", err)
	}
	return session, nil
}

// DeleteByTokenHash removes a session by its token hash
func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM admin_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteAll empties the session store
func (r *sessionRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM admin_sessions`)
	if err != nil {
		return 0, fmt.Errorf("delete all admin sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes every session whose expiry has passed
func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM admin_sessions WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired admin sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// CountActive counts sessions that have not yet expired
func (r *sessionRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM admin_sessions WHERE expires_at > $1`, time.Now().UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active admin sessions: %w", err)
	}
	return count, nil
}
