package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/kinesite/backend/internal/repository"
)

// Mock implementations for testing

// mockSessionRepository implements repository.SessionRepository for testing
type mockSessionRepository struct {
	sessions map[string]*repository.AdminSession
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{
		sessions: make(map[string]*repository.AdminSession),
	}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *repository.AdminSession) error {
	session.ID = uuid.New()
	m.sessions[session.TokenHash] = session
	return nil
}

func (m *mockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*repository.AdminSession, error) {
	if session, ok := m.sessions[tokenHash]; ok {
		return session, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, ok := m.sessions[tokenHash]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(m.sessions, tokenHash)
	return nil
}

func (m *mockSessionRepository) DeleteAll(ctx context.Context) (int64, error) {
	n := int64(len(m.sessions))
	m.sessions = make(map[string]*repository.AdminSession)
	return n, nil
}

func (m *mockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	var n int64
	for hash, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepository) CountActive(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	var n int64
	for _, session := range m.sessions {
		if session.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

// mockAttemptRepository implements repository.AttemptRepository for testing
type mockAttemptRepository struct {
	attempts []repository.LoginAttempt
}

func newMockAttemptRepository() *mockAttemptRepository {
	return &mockAttemptRepository{}
}

func (m *mockAttemptRepository) Record(ctx context.Context, sourceAddress string, succeeded bool) error {
	m.attempts = append(m.attempts, repository.LoginAttempt{
		ID:            uuid.New(),
		SourceAddress: sourceAddress,
		Succeeded:     succeeded,
		AttemptedAt:   time.Now().UTC(),
	})
	return nil
}

func (m *mockAttemptRepository) CountFailedSince(ctx context.Context, sourceAddress string, since time.Time) (int, error) {
	count := 0
	for _, a := range m.attempts {
		if a.SourceAddress == sourceAddress && !a.Succeeded && a.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// addFailure backdates a failed attempt into the ledger
func (m *mockAttemptRepository) addFailure(sourceAddress string, at time.Time) {
	m.attempts = append(m.attempts, repository.LoginAttempt{
		ID:            uuid.New(),
		SourceAddress: sourceAddress,
		Succeeded:     false,
		AttemptedAt:   at,
	})
}

// mockCredentialRepository implements repository.CredentialRepository for
// testing. Rotate mirrors the production transaction by clearing the linked
// session store.
type mockCredentialRepository struct {
	creds    *repository.AdminCredentials
	sessions *mockSessionRepository
}

func newMockCredentialRepository(codeHash string, sessions *mockSessionRepository) *mockCredentialRepository {
	return &mockCredentialRepository{
		creds: &repository.AdminCredentials{
			CodeHash:               codeHash,
			LastUpdated:            time.Now().UTC(),
			SessionTimeoutMinutes:  60,
			MaxLoginAttempts:       5,
			LockoutDurationMinutes: 15,
		},
		sessions: sessions,
	}
}

func (m *mockCredentialRepository) Get(ctx context.Context) (*repository.AdminCredentials, error) {
	copied := *m.creds
	return &copied, nil
}

func (m *mockCredentialRepository) Save(ctx context.Context, creds *repository.AdminCredentials) error {
	copied := *creds
	m.creds = &copied
	return nil
}

func (m *mockCredentialRepository) Rotate(ctx context.Context, newCodeHash string) error {
	m.creds.CodeHash = newCodeHash
	m.creds.LastUpdated = time.Now().UTC()
	_, err := m.sessions.DeleteAll(ctx)
	return err
}

const testAccessCode = "ADMIN2024"

// bcrypt at the production cost is slow, so the test code hash is computed
// once for the whole package.
var (
	testCodeHashOnce sync.Once
	testCodeHash     string
)

// testingT is the overlap of *testing.T and *rapid.T the helpers need
type testingT interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

func testHash(t testingT) string {
	t.Helper()
	testCodeHashOnce.Do(func() {
		hash, err := NewCodePolicy().HashCode(testAccessCode)
		if err != nil {
			t.Fatalf("failed to hash test access code: %v", err)
		}
		testCodeHash = hash
	})
	return testCodeHash
}

type testEnv struct {
	service     *Service
	credentials *mockCredentialRepository
	attempts    *mockAttemptRepository
	sessions    *mockSessionRepository
}

func newTestEnv(t testingT, cfg ServiceConfig) *testEnv {
	t.Helper()

	sessions := newMockSessionRepository()
	attempts := newMockAttemptRepository()
	credentials := newMockCredentialRepository(testHash(t), sessions)

	tokenService := NewTokenService(TokenServiceConfig{
		Secret: "test-secret-at-least-32-bytes-long!",
		Issuer: "kinesite-test",
	})

	service := NewService(credentials, attempts, sessions, tokenService, NewCodePolicy(), cfg, nil)

	return &testEnv{
		service:     service,
		credentials: credentials,
		attempts:    attempts,
		sessions:    sessions,
	}
}

func TestVerifyCode_Success(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	result, err := env.service.VerifyCode(ctx, testAccessCode, "192.0.2.10")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a non-empty session token")
	}
	if result.ExpiresIn != 3600 {
		t.Errorf("expected 3600 seconds expiry, got %d", result.ExpiresIn)
	}
	if len(env.sessions.sessions) != 1 {
		t.Errorf("expected 1 stored session, got %d", len(env.sessions.sessions))
	}

	// The successful attempt is recorded
	if len(env.attempts.attempts) != 1 || !env.attempts.attempts[0].Succeeded {
		t.Error("expected one successful attempt in the ledger")
	}

	valid, err := env.service.ValidateSession(ctx, result.Token, "192.0.2.10")
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if !valid {
		t.Error("freshly issued session should validate")
	}
}

func TestVerifyCode_WrongCode(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	_, err := env.service.VerifyCode(ctx, "wrong-code", "192.0.2.10")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(env.attempts.attempts) != 1 || env.attempts.attempts[0].Succeeded {
		t.Error("expected one failed attempt in the ledger")
	}
	if len(env.sessions.sessions) != 0 {
		t.Error("no session should be created on a failed login")
	}
}

func TestVerifyCode_LockoutAfterMaxFailures(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()
	addr := "192.0.2.10"

	for i := 0; i < 5; i++ {
		if _, err := env.service.VerifyCode(ctx, "wrong-code", addr); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Even the correct code is rejected while locked out
	_, err := env.service.VerifyCode(ctx, testAccessCode, addr)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// The lockout rejection itself is not recorded as an attempt
	if len(env.attempts.attempts) != 5 {
		t.Errorf("expected 5 attempts in the ledger, got %d", len(env.attempts.attempts))
	}

	// A different address is unaffected
	if _, err := env.service.VerifyCode(ctx, testAccessCode, "198.51.100.7"); err != nil {
		t.Errorf("other address should not be locked out: %v", err)
	}
}

func TestVerifyCode_LockoutClearsAfterWindow(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()
	addr := "192.0.2.10"

	// Failures just outside the 15 minute window do not count
	old := time.Now().UTC().Add(-16 * time.Minute)
	for i := 0; i < 5; i++ {
		env.attempts.addFailure(addr, old)
	}

	if _, err := env.service.VerifyCode(ctx, testAccessCode, addr); err != nil {
		t.Fatalf("login should succeed once failures age out: %v", err)
	}
}

func TestValidateSession_Expired(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	result, err := env.service.VerifyCode(ctx, testAccessCode, "192.0.2.10")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}

	// Expire the stored session
	for _, session := range env.sessions.sessions {
		session.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	}

	valid, err := env.service.ValidateSession(ctx, result.Token, "192.0.2.10")
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if valid {
		t.Error("expired session must not validate")
	}
	if len(env.sessions.sessions) != 0 {
		t.Error("expired session should be removed during validation")
	}

	// A second check with the same token is a clean miss, not an error
	valid, err = env.service.ValidateSession(ctx, result.Token, "192.0.2.10")
	if err != nil || valid {
		t.Errorf("repeated validation of a removed session: valid=%v err=%v", valid, err)
	}
}

func TestValidateSession_AddressBinding(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	result, err := env.service.VerifyCode(ctx, testAccessCode, "192.0.2.10")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}

	valid, err := env.service.ValidateSession(ctx, result.Token, "203.0.113.99")
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if valid {
		t.Error("session must not validate from a different source address")
	}

	// With binding disabled the same mismatch is accepted
	unbound := newTestEnv(t, ServiceConfig{BindSessionIP: false})
	result, err = unbound.service.VerifyCode(ctx, testAccessCode, "192.0.2.10")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	valid, err = unbound.service.ValidateSession(ctx, result.Token, "203.0.113.99")
	if err != nil || !valid {
		t.Errorf("unbound session should validate from any address: valid=%v err=%v", valid, err)
	}
}

func TestValidateSession_TamperedToken(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "a.b.c"} {
		valid, err := env.service.ValidateSession(ctx, token, "192.0.2.10")
		if err != nil {
			t.Errorf("token %q: unexpected error %v", token, err)
		}
		if valid {
			t.Errorf("token %q must not validate", token)
		}
	}
}

func TestLogout_Idempotent(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	result, err := env.service.VerifyCode(ctx, testAccessCode, "192.0.2.10")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}

	if err := env.service.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if len(env.sessions.sessions) != 0 {
		t.Error("session should be removed on logout")
	}

	// Repeating the logout, or logging out garbage, is fine
	if err := env.service.Logout(ctx, result.Token); err != nil {
		t.Errorf("repeated logout should succeed: %v", err)
	}
	if err := env.service.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("logout of unknown token should succeed: %v", err)
	}
}

func TestRotateCode_RevokesAllSessions(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	first, err := env.service.VerifyCode(ctx, testAccessCode, "192.0.2.10")
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := env.service.VerifyCode(ctx, testAccessCode, "198.51.100.7")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	if err := env.service.RotateCode(ctx, testAccessCode, "new-secret-code", "192.0.2.10"); err != nil {
		t.Fatalf("RotateCode failed: %v", err)
	}

	for _, token := range []string{first.Token, second.Token} {
		valid, err := env.service.ValidateSession(ctx, token, "192.0.2.10")
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if valid {
			t.Error("session issued before rotation must be revoked")
		}
	}

	// Old code no longer works, new code does
	if _, err := env.service.VerifyCode(ctx, testAccessCode, "192.0.2.10"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old code should be rejected after rotation, got %v", err)
	}
	if _, err := env.service.VerifyCode(ctx, "new-secret-code", "192.0.2.10"); err != nil {
		t.Errorf("new code should be accepted after rotation: %v", err)
	}
}

func TestRotateCode_WrongCurrentCode(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	before := env.credentials.creds.CodeHash

	err := env.service.RotateCode(ctx, "wrong-code", "new-secret-code", "192.0.2.10")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// The failed verification counts toward lockout
	if len(env.attempts.attempts) != 1 || env.attempts.attempts[0].Succeeded {
		t.Error("failed rotation should record a failed attempt")
	}
	if env.credentials.creds.CodeHash != before {
		t.Error("code hash must be unchanged after a failed rotation")
	}
}

func TestRotateCode_NewCodeTooShort(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	before := env.credentials.creds.CodeHash

	err := env.service.RotateCode(ctx, testAccessCode, "short", "192.0.2.10")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if env.credentials.creds.CodeHash != before {
		t.Error("code hash must be unchanged when the new code is rejected")
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
	ctx := context.Background()

	live, err := env.service.VerifyCode(ctx, testAccessCode, "192.0.2.10")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	expired, err := env.service.VerifyCode(ctx, testAccessCode, "192.0.2.10")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}

	env.sessions.sessions[env.service.tokenService.Hash(expired.Token)].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	if err := env.service.CleanupExpiredSessions(ctx); err != nil {
		t.Fatalf("CleanupExpiredSessions failed: %v", err)
	}

	if valid, _ := env.service.ValidateSession(ctx, live.Token, "192.0.2.10"); !valid {
		t.Error("live session should survive cleanup")
	}
	if valid, _ := env.service.ValidateSession(ctx, expired.Token, "192.0.2.10"); valid {
		t.Error("expired session should be removed by cleanup")
	}
}

// TestLockoutThreshold_Property checks that the derived lockout state equals
// the comparison of in-window failures against the configured threshold, for
// arbitrary ledger shapes.
func TestLockoutThreshold_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := newTestEnv(t, ServiceConfig{BindSessionIP: true})
		ctx := context.Background()
		addr := "192.0.2.10"

		inWindow := rapid.IntRange(0, 10).Draw(t, "inWindow")
		outOfWindow := rapid.IntRange(0, 10).Draw(t, "outOfWindow")

		now := time.Now().UTC()
		for i := 0; i < inWindow; i++ {
			offset := rapid.IntRange(1, 14).Draw(t, "inOffsetMinutes")
			env.attempts.addFailure(addr, now.Add(-time.Duration(offset)*time.Minute))
		}
		for i := 0; i < outOfWindow; i++ {
			offset := rapid.IntRange(16, 600).Draw(t, "outOffsetMinutes")
			env.attempts.addFailure(addr, now.Add(-time.Duration(offset)*time.Minute))
		}

		_, err := env.service.VerifyCode(ctx, testAccessCode, addr)
		if inWindow >= 5 {
			if !errors.Is(err, ErrRateLimited) {
				t.Fatalf("%d in-window failures: expected lockout, got %v", inWindow, err)
			}
		} else if err != nil {
			t.Fatalf("%d in-window failures: expected success, got %v", inWindow, err)
		}
	})
}

// TestTokenUniqueness_Property checks that consecutively issued tokens are
// distinct and produce distinct store keys.
func TestTokenUniqueness_Property(t *testing.T) {
	tokenService := NewTokenService(TokenServiceConfig{
		Secret: "test-secret-at-least-32-bytes-long!",
		Issuer: "kinesite-test",
	})

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 20).Draw(t, "count")

		seen := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			token, err := tokenService.Generate(time.Hour)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			hash := tokenService.Hash(token)
			if _, dup := seen[hash]; dup {
				t.Fatalf("duplicate token hash after %d tokens", i+1)
			}
			seen[hash] = struct{}{}
		}
	})
}
