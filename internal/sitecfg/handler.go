package sitecfg

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// maxDocumentSize caps the configuration payload at 2 MiB
const maxDocumentSize = 2 << 20

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler handles HTTP requests for the site configuration document
type Handler struct {
	service *Service
}

// NewHandler creates a new site configuration Handler instance
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the site configuration routes. The read is
// public; the save requires an authenticated admin session.
func (h *Handler) RegisterRoutes(r chi.Router, requireSession func(http.Handler) http.Handler) {
	r.Get("/site-config", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Post("/site-config", h.Save)
		r.Put("/site-config", h.Save)
	})
}

// Get serves the configuration document
// GET /api/site-config
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	document, err := h.service.Get(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "NOT_FOUND", "Site configuration not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load site configuration")
		return
	}

	// The stored document is already valid JSON; serve it verbatim
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(document)
}

// Save replaces the configuration document
// POST /api/site-config
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	lastModified, err := h.service.Save(r.Context(), raw)
	if err != nil {
		if errors.Is(err, ErrValidationFailed) {
			h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save site configuration")
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message":       "Configuration saved successfully",
		"last_modified": lastModified.Format(time.RFC3339),
	})
}

func (h *Handler) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
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
