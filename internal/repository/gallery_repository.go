package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Gallery repository errors
var (
	ErrGalleryAssetNotFound = errors.New("gallery asset not found")
)

// GalleryRepository defines the interface for gallery asset metadata
type GalleryRepository interface {
	Create(ctx context.Context, asset *GalleryAsset) error
	GetByID(ctx context.Context, id uuid.UUID) (*GalleryAsset, error)
	List(ctx context.Context) ([]GalleryAsset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// galleryRepository implements GalleryRepository using PostgreSQL
type galleryRepository struct {
	db *sqlx.DB
}

// NewGalleryRepository creates a new GalleryRepository instance
func NewGalleryRepository(db *sqlx.DB) GalleryRepository {
	return &galleryRepository{db: db}
}

// Create inserts a new gallery asset record
func (r *galleryRepository) Create(ctx context.Context, asset *GalleryAsset) error {
	query := `
		INSERT INTO gallery_assets (storage_key, url, filename, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		asset.StorageKey,
		asset.URL,
		asset.Filename,
		asset.ContentType,
		asset.SizeBytes,
	).Scan(&asset.ID, &asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("create gallery asset: %w", err)
	}
	return nil
}

// GetByID retrieves a gallery asset by its ID
func (r *galleryRepository) GetByID(ctx context.Context, id uuid.UUID) (*GalleryAsset, error) {
	asset := &GalleryAsset{}
	query := `
		SELECT id, storage_key, url, filename, content_type, size_bytes, created_at
		FROM gallery_assets
		WHERE id = $1
	`

	if err := r.db.GetContext(ctx, asset, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGalleryAssetNotFound
		}
		return nil, fmt.Errorf("get gallery asset: %w", err)
	}
	return asset, nil
}

// List returns all gallery assets, newest first
func (r *galleryRepository) List(ctx context.Context) ([]GalleryAsset, error) {
	var assets []GalleryAsset
	query := `
		SELECT id, storage_key, url, filename, content_type, size_bytes, created_at
		FROM gallery_assets
		ORDER BY created_at DESC
	`

	if err := r.db.SelectContext(ctx, &assets, query); err != nil {
		return nil, fmt.Errorf("list gallery assets: %w", err)
	}
	return assets, nil
}

// Delete removes a gallery asset record
func (r *galleryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gallery_assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete gallery asset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete gallery asset: %w", err)
	}
	if rows == 0 {
		return ErrGalleryAssetNotFound
	}
	return nil
}
