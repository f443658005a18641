package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Site config repository errors
var (
	ErrSiteConfigNotFound = errors.New("site configuration not found")
)

// SiteConfigRepository defines the interface for the site configuration
// document. The document is a single JSON blob; callers read and write it
// whole, and the UPSERT keeps concurrent writers from losing the row.
type SiteConfigRepository interface {
	Get(ctx context.Context) ([]byte, time.Time, error)
	Save(ctx context.Context, document []byte, lastModified time.Time) error
}

// siteConfigRepository implements SiteConfigRepository using PostgreSQL JSONB
type siteConfigRepository struct {
	db *sqlx.DB
}

// NewSiteConfigRepository creates a new SiteConfigRepository instance
func NewSiteConfigRepository(db *sqlx.DB) SiteConfigRepository {
	return &siteConfigRepository{db: db}
}

// Get returns the current site configuration document
func (r *siteConfigRepository) Get(ctx context.Context) ([]byte, time.Time, error) {
	var row struct {
		Document     []byte    `db:"document"`
		LastModified time.Time `db:"last_modified"`
	}

	query := `SELECT document, last_modified FROM site_config WHERE id = 1`
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, ErrSiteConfigNotFound
		}
		return nil, time.Time{}, fmt.Errorf("load site config: %w", err)
	}
	return row.Document, row.LastModified, nil
}

// Save overwrites the site configuration document
func (r *siteConfigRepository) Save(ctx context.Context, document []byte, lastModified time.Time) error {
	query := `
		INSERT INTO site_config (id, document, last_modified)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, last_modified = EXCLUDED.last_modified
	`

	if _, err := r.db.ExecContext(ctx, query, document, lastModified); err != nil {
		return fmt.Errorf("save site config: %w", err)
	}
	return nil
}
