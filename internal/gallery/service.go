// Package gallery manages the practice photo gallery: image files live in
// S3-compatible object storage, their metadata in PostgreSQL.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/kinesite/backend/internal/config"
	"github.com/kinesite/backend/internal/repository"
)

// Service errors
var (
	ErrAssetNotFound      = errors.New("gallery asset not found")
	ErrUnsupportedType    = errors.New("unsupported image type")
	ErrStorageUnavailable = errors.New("object storage unavailable")
)

// allowedContentTypes lists the image types accepted for upload
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Service handles gallery asset uploads, listing, and deletion
type Service struct {
	client             *s3.Client
	presignClient      *s3.PresignClient
	repo               repository.GalleryRepository
	bucket             string
	publicBaseURL      string
	presignedURLExpiry time.Duration
	logger             *slog.Logger
}

// NewService creates a gallery service backed by S3/MinIO
func NewService(cfg *config.StorageConfig, repo repository.GalleryRepository, logger *slog.Logger) (*Service, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Endpoint may or may not already carry a protocol
	endpointURL := cfg.Endpoint
	if !strings.HasPrefix(endpointURL, "http://") && !strings.HasPrefix(endpointURL, "https://") {
		protocol := "http"
		if cfg.UseSSL {
			protocol = "https"
		}
		endpointURL = protocol + "://" + endpointURL
	}

	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		BaseEndpoint: aws.String(endpointURL),
		UsePathStyle: true, // Required for MinIO
	})

	presignedURLExpiry := cfg.PresignedURLExpiry
	if presignedURLExpiry == 0 {
		presignedURLExpiry = 15 * time.Minute
	}

	return &Service{
		client:             client,
		presignClient:      s3.NewPresignClient(client),
		repo:               repo,
		bucket:             cfg.Bucket,
		publicBaseURL:      strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignedURLExpiry: presignedURLExpiry,
		logger:             logger,
	}, nil
}

// Upload stores an image in object storage and records its metadata.
// The storage key is generated server-side; the client filename is kept
// only as display metadata.
func (s *Service) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*repository.GalleryAsset, error) {
	ext, ok := allowedContentTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, ErrUnsupportedType
	}

	key := "gallery/" + uuid.New().String() + ext

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		s.logger.Error("gallery upload failed", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	asset := &repository.GalleryAsset{
		StorageKey:  key,
		URL:         s.publicURL(ctx, key),
		Filename:    path.Base(filename),
		ContentType: contentType,
		SizeBytes:   size,
	}

	if err := s.repo.Create(ctx, asset); err != nil {
		// Metadata insert failed; remove the orphaned object
		if _, delErr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); delErr != nil {
			s.logger.Error("orphaned gallery object left behind", "key", key, "error", delErr)
		}
		return nil, err
	}

	s.logger.Info("gallery asset uploaded", "id", asset.ID, "key", key, "size", size)
	return asset, nil
}

// List returns all gallery assets, newest first
func (s *Service) List(ctx context.Context) ([]repository.GalleryAsset, error) {
	return s.repo.List(ctx)
}

// Delete removes an asset from storage and its metadata row
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGalleryAssetNotFound) {
			return ErrAssetNotFound
		}
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(asset.StorageKey),
	}); err != nil {
		s.logger.Error("gallery object delete failed", "key", asset.StorageKey, "error", err)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrGalleryAssetNotFound) {
			return ErrAssetNotFound
		}
		return err
	}

	s.logger.Info("gallery asset deleted", "id", id, "key", asset.StorageKey)
	return nil
}

// publicURL builds the URL the site will serve the image from. When no
// public base URL is configured, falls back to a pre-signed URL.
func (s *Service) publicURL(ctx context.Context, key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}

	presigned, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignedURLExpiry))
	if err != nil {
		s.logger.Warn("presign failed, storing bare key", "key", key, "error", err)
		return key
	}
	return presigned.URL
}
