package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kinesite/backend/internal/metrics"
	"github.com/kinesite/backend/internal/repository"
)

// Auth service errors
var (
	ErrRateLimited        = errors.New("too many failed login attempts")
	ErrInvalidCredentials = errors.New("invalid access code")
	ErrValidationFailed   = errors.New("access code validation failed")
)

// Error codes for API responses
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeSessionInvalid     = "SESSION_INVALID"
)

// LoginResult is the outcome of a successful code verification
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn int64 // seconds, for the cookie max-age
}

// Service orchestrates admin authentication: credential verification,
// per-address lockout, session issuance and credential rotation.
//
// Lockout is a derived state. It is computed from the attempt ledger, the
// clock and the stored policy on every check, never stored as a flag, so it
// clears by itself once old failures fall out of the window.
type Service struct {
	credRepo      repository.CredentialRepository
	attemptRepo   repository.AttemptRepository
	sessionRepo   repository.SessionRepository
	tokenService  *TokenService
	codePolicy    *CodePolicy
	bindSessionIP bool
	logger        *slog.Logger
}

// ServiceConfig holds configuration for the auth Service
type ServiceConfig struct {
	// BindSessionIP requires the validating request's source address to
	// equal the address the session was issued to.
	BindSessionIP bool
}

// NewService creates a new auth Service instance
func NewService(
	credRepo repository.CredentialRepository,
	attemptRepo repository.AttemptRepository,
	sessionRepo repository.SessionRepository,
	tokenService *TokenService,
	codePolicy *CodePolicy,
	cfg ServiceConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		credRepo:      credRepo,
		attemptRepo:   attemptRepo,
		sessionRepo:   sessionRepo,
		tokenService:  tokenService,
		codePolicy:    codePolicy,
		bindSessionIP: cfg.BindSessionIP,
		logger:        logger,
	}
}

// VerifyCode authenticates a submitted access code from the given source
// address and mints a session token on success.
//
// A locked-out address fails before the code is even looked at, and that
// check is not itself recorded as an attempt. Otherwise the attempt is
// recorded whether or not the code matched.
func (s *Service) VerifyCode(ctx context.Context, code, sourceAddress string) (*LoginResult, error) {
	creds, err := s.credRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	lockedOut, err := s.isLockedOut(ctx, sourceAddress, creds)
	if err != nil {
		return nil, err
	}
	if lockedOut {
		metrics.AuthLockouts.Inc()
		s.logger.Warn("login rejected: source address locked out", "source_address", sourceAddress)
		return nil, ErrRateLimited
	}

	matched := s.codePolicy.VerifyCode(code, creds.CodeHash)

	if err := s.attemptRepo.Record(ctx, sourceAddress, matched); err != nil {
		return nil, err
	}

	if !matched {
		metrics.AuthLoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.Generate(creds.SessionTimeout())
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(creds.SessionTimeout())
	session := &repository.AdminSession{
		TokenHash:     s.tokenService.Hash(token),
		SourceAddress: sourceAddress,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	metrics.AuthLoginAttempts.WithLabelValues("success").Inc()
	s.logger.Info("admin login succeeded", "source_address", sourceAddress)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(creds.SessionTimeout().Seconds()),
	}, nil
}

// ValidateSession reports whether the token is a live session for the given
// source address. An expired session found during the check is removed from
// the store; a second call with the same token returns false without error.
func (s *Service) ValidateSession(ctx context.Context, token, sourceAddress string) (bool, error) {
	if token == "" {
		return false, nil
	}

	// Unsigned or tampered blobs never hit the store.
	if err := s.tokenService.Verify(token); err != nil {
		return false, nil
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, s.tokenService.Hash(token))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	if s.bindSessionIP && session.SourceAddress != sourceAddress {
		return false, nil
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		if err := s.sessionRepo.DeleteByTokenHash(ctx, session.TokenHash); err != nil &&
			!errors.Is(err, repository.ErrSessionNotFound) {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

// Logout revokes the session for the given token. Idempotent: revoking an
// unknown or malformed token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	err := s.sessionRepo.DeleteByTokenHash(ctx, s.tokenService.Hash(token))
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	return nil
}

// RotateCode replaces the admin access code and revokes every session. The
// credential update and the session purge are a single transaction in the
// store, so the old code never coexists with still-valid old sessions.
func (s *Service) RotateCode(ctx context.Context, currentCode, newCode, sourceAddress string) error {
	creds, err := s.credRepo.Get(ctx)
	if err != nil {
		return err
	}

	if !s.codePolicy.VerifyCode(currentCode, creds.CodeHash) {
		if err := s.attemptRepo.Record(ctx, sourceAddress, false); err != nil {
			return err
		}
		return ErrInvalidCredentials
	}

	// The boundary validates this too, but the invariant is security
	// critical so the service defends it as well.
	if errs := s.codePolicy.ValidateNewCode(newCode); len(errs) > 0 {
		return ErrValidationFailed
	}

	newHash, err := s.codePolicy.HashCode(newCode)
	if err != nil {
		return fmt.Errorf("hash new access code: %w", err)
	}

	if err := s.credRepo.Rotate(ctx, newHash); err != nil {
		return err
	}

	metrics.AuthCodeRotations.Inc()
	s.logger.Info("admin access code rotated, all sessions revoked", "source_address", sourceAddress)
	return nil
}

// CleanupExpiredSessions removes every expired session. Runs at the start
// of each login flow and from the periodic sweeper.
func (s *Service) CleanupExpiredSessions(ctx context.Context) error {
	removed, err := s.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Debug("expired admin sessions removed", "count", removed)
	}

	if active, err := s.sessionRepo.CountActive(ctx); err == nil {
		metrics.AuthActiveSessions.Set(float64(active))
	}
	return nil
}

// isLockedOut derives the lockout state for a source address from the
// attempt ledger and the stored policy. The window boundary is strict:
// attempts exactly at now-lockoutDuration do not count.
func (s *Service) isLockedOut(ctx context.Context, sourceAddress string, creds *repository.AdminCredentials) (bool, error) {
	since := time.Now().UTC().Add(-creds.LockoutDuration())
	failed, err := s.attemptRepo.CountFailedSince(ctx, sourceAddress, since)
	if err != nil {
		return false, err
	}
	return failed >= creds.MaxLoginAttempts, nil
}
