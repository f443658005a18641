package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// UnknownAddress is the sentinel source address used when the caller's
// network address cannot be determined. It participates in lockout and
// session binding like any other address.
const UnknownAddress = "unknown"

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Code string `json:"code" validate:"required"`
}

// ChangeCodeRequest represents the credential rotation request payload
type ChangeCodeRequest struct {
	CurrentCode string `json:"current_code" validate:"required"`
	NewCode     string `json:"new_code" validate:"required,min=6"`
}

// CookieConfig holds session cookie settings
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler handles HTTP requests for admin authentication endpoints
type Handler struct {
	service  *Service
	cookie   CookieConfig
	validate *validator.Validate
}

// NewHandler creates a new auth Handler instance
func NewHandler(service *Service, cookie CookieConfig) *Handler {
	return &Handler{
		service:  service,
		cookie:   cookie,
		validate: validator.New(),
	}
}

// Login handles admin authentication
// POST /api/admin/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Access code is required", nil)
		return
	}

	sourceAddress := ClientIP(r)

	// Opportunistic cleanup at the start of the login flow. A failure here
	// is a storage problem worth surfacing before touching credentials.
	if err := h.service.CleanupExpiredSessions(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}

	result, err := h.service.VerifyCode(r.Context(), req.Code, sourceAddress)
	if err != nil {
		switch {
		case errors.Is(err, ErrRateLimited):
			h.writeError(w, http.StatusTooManyRequests, CodeTooManyAttempts, "Too many failed login attempts. Please try again later.", nil)
		case errors.Is(err, ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid access code", nil)
		default:
			h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		}
		return
	}

	h.setSessionCookie(w, result.Token, int(result.ExpiresIn))
	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message":    "Login successful",
		"expires_at": result.ExpiresAt,
	})
}

// Verify handles session validation
// POST /api/admin/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		h.writeError(w, http.StatusUnauthorized, CodeSessionInvalid, "Not authenticated", nil)
		return
	}

	valid, err := h.service.ValidateSession(r.Context(), token, ClientIP(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}
	if !valid {
		h.writeError(w, http.StatusUnauthorized, CodeSessionInvalid, "Not authenticated", nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]bool{"valid": true})
}

// Logout handles session revocation
// POST /api/admin/logout
// Always succeeds; the cookie is cleared whether or not the token existed.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessionToken(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
	}

	h.clearSessionCookie(w)
	h.writeSuccess(w, http.StatusOK, map[string]bool{"success": true})
}

// ChangeCode handles credential rotation. The session middleware has
// already validated the caller's session when this runs.
// POST /api/admin/change-code
func (h *Handler) ChangeCode(w http.ResponseWriter, r *http.Request) {
	var req ChangeCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		details := map[string][]string{
			"new_code": {"The new access code must be at least 6 characters long"},
		}
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	err := h.service.RotateCode(r.Context(), req.CurrentCode, req.NewCode, ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			h.writeError(w, http.StatusBadRequest, CodeInvalidCredentials, "Current access code is incorrect", nil)
		case errors.Is(err, ErrValidationFailed):
			h.writeError(w, http.StatusBadRequest, CodeValidationError, "The new access code must be at least 6 characters long", nil)
		default:
			h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		}
		return
	}

	// All sessions are gone, including the caller's. Force re-login.
	h.clearSessionCookie(w)
	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "Access code changed successfully",
	})
}

// sessionToken extracts the session token from the request cookie
func (h *Handler) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the HTTP-only session cookie
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie expires the session cookie
func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
	})
}

// ClientIP extracts the caller's source address from proxy headers, falling
// back to the sentinel when nothing usable is present. The value is
// spoofable by anything that can set headers ahead of the trusted proxy;
// that trust limitation is accepted.
func ClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple hops; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return UnknownAddress
}
