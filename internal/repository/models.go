package repository

import (
	"time"

	"github.com/google/uuid"
)

// AdminCredentials is the single active admin credentials record.
// The access code is stored as a bcrypt hash, never in plaintext.
type AdminCredentials struct {
	CodeHash               string    `db:"code_hash"`
	LastUpdated            time.Time `db:"last_updated"`
	SessionTimeoutMinutes  int       `db:"session_timeout_minutes"`
	MaxLoginAttempts       int       `db:"max_login_attempts"`
	LockoutDurationMinutes int       `db:"lockout_duration_minutes"`
}

// SessionTimeout returns the configured session lifetime as a duration
func (c *AdminCredentials) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

// LockoutDuration returns the configured lockout window as a duration
func (c *AdminCredentials) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutDurationMinutes) * time.Minute
}

// LoginAttempt is an immutable record of one authentication try
type LoginAttempt struct {
	ID            uuid.UUID `db:"id"`
	SourceAddress string    `db:"source_address"`
	Succeeded     bool      `db:"succeeded"`
	AttemptedAt   time.Time `db:"attempted_at"`
}

// AdminSession is a live authenticated admin session.
// Only the SHA-256 hash of the issued token is stored.
type AdminSession struct {
	ID            uuid.UUID `db:"id"`
	TokenHash     string    `db:"token_hash"`
	SourceAddress string    `db:"source_address"`
	CreatedAt     time.Time `db:"created_at"`
	ExpiresAt     time.Time `db:"expires_at"`
}

// GalleryAsset is an uploaded gallery image stored in S3
type GalleryAsset struct {
	ID          uuid.UUID `db:"id" json:"id"`
	StorageKey  string    `db:"storage_key" json:"storage_key"`
	URL         string    `db:"url" json:"url"`
	Filename    string    `db:"filename" json:"filename"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
