package sitecfg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kinesite/backend/internal/cache"
	"github.com/kinesite/backend/internal/metrics"
	"github.com/kinesite/backend/internal/repository"
)

// Service errors
var (
	ErrNotFound         = errors.New("site configuration not found")
	ErrValidationFailed = errors.New("invalid configuration data")
)

// cacheKey is the Redis key holding the serialized document
const cacheKey = "sitecfg:document"

// Service manages the site configuration document. Reads go through the
// cache when one is configured; the database row stays authoritative and
// the cache entry is replaced on every save.
type Service struct {
	repo      repository.SiteConfigRepository
	cache     *cache.Cache
	sanitizer *Sanitizer
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService creates a new site configuration service
func NewService(repo repository.SiteConfigRepository, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		cache:     c,
		sanitizer: NewSanitizer(),
		validate:  validator.New(),
		logger:    logger,
	}
}

// Get returns the raw configuration document
func (s *Service) Get(ctx context.Context) ([]byte, error) {
	if data, err := s.cache.Get(ctx, cacheKey); err == nil {
		metrics.SiteConfigCacheHits.WithLabelValues("hit").Inc()
		return data, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		// Cache trouble is not fatal; fall through to the database
		s.logger.Warn("site config cache read failed", "error", err)
	}
	metrics.SiteConfigCacheHits.WithLabelValues("miss").Inc()

	document, _, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrSiteConfigNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, document); err != nil {
		s.logger.Warn("site config cache write failed", "error", err)
	}

	return document, nil
}

// Save validates, sanitizes, stamps, and stores a new configuration
// document. Returns the stamped lastModified time.
func (s *Service) Save(ctx context.Context, raw []byte) (time.Time, error) {
	var cfg SiteConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed JSON", ErrValidationFailed)
	}

	if err := s.validate.Struct(&cfg); err != nil {
		return time.Time{}, fmt.Errorf("%w: missing or invalid fields", ErrValidationFailed)
	}

	for _, img := range cfg.Gallery.Images {
		if !validImageURL(img.URL) {
			return time.Time{}, fmt.Errorf("%w: invalid image URL: %s", ErrValidationFailed, img.URL)
		}
	}

	s.sanitizer.SanitizeConfig(&cfg)

	now := time.Now().UTC()
	cfg.LastModified = now.Format(time.RFC3339)

	document, err := json.Marshal(&cfg)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode site config: %w", err)
	}

	if err := s.repo.Save(ctx, document, now); err != nil {
		return time.Time{}, err
	}

	// Replace rather than invalidate so the next public read stays warm
	if err := s.cache.Set(ctx, cacheKey, document); err != nil {
		s.logger.Warn("site config cache refresh failed", "error", err)
	}

	metrics.SiteConfigSaves.Inc()
	s.logger.Info("site configuration saved", "last_modified", cfg.LastModified)

	return now, nil
}

// validImageURL accepts absolute http(s) URLs and site-relative paths
func validImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u.Host != ""
	}
	return u.Scheme == "" && len(raw) > 0 && raw[0] == '/'
}
