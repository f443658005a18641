package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialDefaults holds the record seeded into the store on first access
type CredentialDefaults struct {
	CodeHash               string
	SessionTimeoutMinutes  int
	MaxLoginAttempts       int
	LockoutDurationMinutes int
}

// CredentialRepository defines the interface for admin credentials access.
// Exactly one credentials record exists at any time; Get seeds the defaults
// when nothing has been persisted yet, so first-run is not an error.
type CredentialRepository interface {
	Get(ctx context.Context) (*AdminCredentials, error)
	Save(ctx context.Context, creds *AdminCredentials) error
	// Rotate replaces the code hash and removes every session in one
	// transaction, so observers never see the new code alongside old sessions.
	Rotate(ctx context.Context, newCodeHash string) error
}

// credentialRepository implements CredentialRepository using PostgreSQL
type credentialRepository struct {
	pool     *pgxpool.Pool
	defaults CredentialDefaults
}

// NewCredentialRepository creates a new CredentialRepository instance
func NewCredentialRepository(pool *pgxpool.Pool, defaults CredentialDefaults) CredentialRepository {
	return &credentialRepository{pool: pool, defaults: defaults}
}

// Get returns the current credentials, seeding the default record on first run
func (r *credentialRepository) Get(ctx context.Context) (*AdminCredentials, error) {
	creds, err := r.selectCredentials(ctx)
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load admin credentials: %w", err)
	}

	// First run: seed defaults. ON CONFLICT keeps a concurrent seeder harmless.
	insert := `
		INSERT INTO admin_credentials (id, code_hash, last_updated, session_timeout_minutes, max_login_attempts, lockout_duration_minutes)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, insert,
		r.defaults.CodeHash,
		time.Now().UTC(),
		r.defaults.SessionTimeoutMinutes,
		r.defaults.MaxLoginAttempts,
		r.defaults.LockoutDurationMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("seed admin credentials: %w", err)
	}

	creds, err = r.selectCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("load admin credentials: %w", err)
	}
	return creds, nil
}

// Save overwrites the credentials record, stamping last_updated
func (r *credentialRepository) Save(ctx context.Context, creds *AdminCredentials) error {
	query := `
		UPDATE admin_credentials
		SET code_hash = $1,
		    last_updated = $2,
		    session_timeout_minutes = $3,
		    max_login_attempts = $4,
		    lockout_duration_minutes = $5
		WHERE id = 1
	`

	creds.LastUpdated = time.Now().UTC()
	_, err := r.pool.Exec(ctx, query,
		creds.CodeHash,
		creds.LastUpdated,
		creds.SessionTimeoutMinutes,
		creds.MaxLoginAttempts,
		creds.LockoutDurationMinutes,
	)
	if err != nil {
		return fmt.Errorf("save admin credentials: %w", err)
	}
	return nil
}

// Rotate updates the code hash and revokes all sessions atomically
func (r *credentialRepository) Rotate(ctx context.Context, newCodeHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE admin_credentials SET code_hash = $1, last_updated = $2 WHERE id = 1`,
		newCodeHash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("rotate admin code: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM admin_sessions`)
	if err != nil {
		return fmt.Errorf("revoke sessions on rotation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotation: %w", err)
	}
	return nil
}

func (r *credentialRepository) selectCredentials(ctx context.Context) (*AdminCredentials, error) {
	query := `
		SELECT code_hash, last_updated, session_timeout_minutes, max_login_attempts, lockout_duration_minutes
		FROM admin_credentials
		WHERE id = 1
	`

	creds := &AdminCredentials{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&creds.CodeHash,
		&creds.LastUpdated,
		&creds.SessionTimeoutMinutes,
		&creds.MaxLoginAttempts,
		&creds.LockoutDurationMinutes,
	)
	if err != nil {
		return nil, err
	}
	return creds, nil
}
