// Package booking proxies appointment requests from the public site to the
// upstream practice-management API. The upstream base URL comes from server
// configuration, never from the client, and the practice admin email is
// injected server-side so it is not exposed to visitors.
package booking

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kinesite/backend/internal/config"
)

// appointmentsPath is the upstream endpoint the proxy forwards to
const appointmentsPath = "/api/website/appointments"

// maxRequestSize caps the appointment payload at 64 KiB
const maxRequestSize = 64 << 10

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool      `json:"success"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler forwards appointment requests upstream
type Handler struct {
	baseURL    string
	adminEmail string
	client     *http.Client
	logger     *slog.Logger
}

// NewHandler creates a new booking proxy handler
func NewHandler(cfg config.BookingConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}

	return &Handler{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		adminEmail: cfg.AdminEmail,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// RegisterRoutes registers the public booking route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/appointments", h.Create)
}

// Create forwards an appointment request to the upstream API
// POST /api/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.baseURL == "" {
		h.writeError(w, http.StatusServiceUnavailable, "BOOKING_UNAVAILABLE", "Appointment booking is not configured")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	payload["adminEmail"] = h.adminEmail

	body, err := json.Marshal(payload)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.baseURL+appointmentsPath, bytes.NewReader(body))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("booking upstream request failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "BOOKING_UNAVAILABLE", "Appointment service unavailable")
		return
	}
	defer resp.Body.Close()

	// Relay the upstream response verbatim
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("booking response relay interrupted", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}
