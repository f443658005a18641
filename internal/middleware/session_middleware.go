package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kinesite/backend/internal/auth"
	appctx "github.com/kinesite/backend/internal/context"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionMiddleware guards admin routes behind a valid session cookie
type SessionMiddleware struct {
	service    *auth.Service
	cookieName string
}

// NewSessionMiddleware creates a new SessionMiddleware instance
func NewSessionMiddleware(service *auth.Service, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{
		service:    service,
		cookieName: cookieName,
	}
}

// RequireSession validates the session cookie against the session store
// before allowing the request through. Invalid, expired and address-mismatched
// sessions are all reported identically as not authenticated.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			m.writeError(w, http.StatusUnauthorized, auth.CodeSessionInvalid, "Not authenticated")
			return
		}

		sourceAddress := auth.ClientIP(r)

		valid, err := m.service.ValidateSession(r.Context(), cookie.Value, sourceAddress)
		if err != nil {
			m.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
			return
		}
		if !valid {
			m.writeError(w, http.StatusUnauthorized, auth.CodeSessionInvalid, "Not authenticated")
			return
		}

		ctx := appctx.WithSessionToken(r.Context(), cookie.Value)
		ctx = appctx.WithClientIP(ctx, sourceAddress)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError writes a JSON error response
func (m *SessionMiddleware) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}
