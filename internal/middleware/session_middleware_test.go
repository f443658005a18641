package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kinesite/backend/internal/auth"
	appctx "github.com/kinesite/backend/internal/context"
	"github.com/kinesite/backend/internal/repository"
)

// mockSessionRepository implements repository.SessionRepository for testing
type mockSessionRepository struct {
	sessions map[string]*repository.AdminSession
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*repository.AdminSession)}
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

const cookieName = "admin_token"

// newGuardedHandler returns the middleware-wrapped probe handler, a live
// session token bound to 192.0.2.10, and the backing session store.
func newGuardedHandler(t *testing.T, probe http.HandlerFunc) (http.Handler, string, *mockSessionRepository) {
	t.Helper()

	tokenService := auth.NewTokenService(auth.TokenServiceConfig{
		Secret: "test-secret-at-least-32-bytes-long!",
		Issuer: "kinesite-test",
	})

	token, err := tokenService.Generate(time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	sessions := newMockSessionRepository()
	now := time.Now().UTC()
	sessions.sessions[tokenService.Hash(token)] = &repository.AdminSession{
		ID:            uuid.New(),
		TokenHash:     tokenService.Hash(token),
		SourceAddress: "192.0.2.10",
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Hour),
	}

	service := auth.NewService(nil, nil, sessions, tokenService, auth.NewCodePolicy(),
		auth.ServiceConfig{BindSessionIP: true}, nil)

	mw := NewSessionMiddleware(service, cookieName)
	return mw.RequireSession(probe), token, sessions
}

func TestRequireSession_AllowsValidSession(t *testing.T) {
	var gotToken, gotIP string
	handler, token, _ := newGuardedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken, _ = appctx.ExtractSessionToken(r.Context())
		gotIP, _ = appctx.ExtractClientIP(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/change-code", nil)
	req.RemoteAddr = "192.0.2.10:4444"
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotToken != token {
		t.Error("session token should be propagated on the request context")
	}
	if gotIP != "192.0.2.10" {
		t.Errorf("client IP on context = %q, want 192.0.2.10", gotIP)
	}
}

func TestRequireSession_RejectsMissingCookie(t *testing.T) {
	handler, _, _ := newGuardedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a session cookie")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/change-code", nil)
	req.RemoteAddr = "192.0.2.10:4444"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Error.Code != auth.CodeSessionInvalid {
		t.Errorf("expected %s, got %s", auth.CodeSessionInvalid, resp.Error.Code)
	}
}

func TestRequireSession_RejectsUnknownToken(t *testing.T) {
	handler, _, _ := newGuardedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an unknown token")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/change-code", nil)
	req.RemoteAddr = "192.0.2.10:4444"
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "not-a-real-token"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireSession_RejectsAddressMismatch(t *testing.T) {
	handler, token, _ := newGuardedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run from a mismatched address")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/change-code", nil)
	req.RemoteAddr = "203.0.113.99:4444"
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireSession_RemovesExpiredSession(t *testing.T) {
	handler, token, sessions := newGuardedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an expired session")
	})

	for _, session := range sessions.sessions {
		session.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/change-code", nil)
	req.RemoteAddr = "192.0.2.10:4444"
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(sessions.sessions) != 0 {
		t.Error("expired session should be removed during the check")
	}
}
