package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the session token claims structure
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies admin session tokens.
//
// Tokens are opaque to clients: an HS256-signed blob whose jti is a random
// UUID drawn from crypto/rand. The signature check is only a cheap
// pre-filter; the session store row, keyed by the SHA-256 hash of the full
// token, is authoritative for expiry, address binding and revocation.
type TokenService struct {
	secret string
	issuer string
}

// TokenServiceConfig holds configuration for TokenService
type TokenServiceConfig struct {
	Secret string
	Issuer string
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	return &TokenService{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
	}
}

// Generate mints a new session token with the given lifetime
func (s *TokenService) Generate(lifetime time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks the token signature and shape. Expiry is deliberately not
// validated here: the store decides expiry so that an expired session can
// still be found and removed during a validation check.
func (s *TokenService) Verify(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.secret), nil
	}, jwt.WithoutClaimsValidation())

	if err != nil {
		return err
	}
	if _, ok := token.Claims.(*Claims); !ok || !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}

// Hash creates a SHA-256 hash of the token for storage; the plaintext token
// never reaches the database.
func (s *TokenService) Hash(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
