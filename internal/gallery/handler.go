package gallery

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxUploadSize caps gallery uploads at 10 MiB
const maxUploadSize = 10 << 20

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

// Handler handles HTTP requests for gallery assets
type Handler struct {
	service *Service
}

// NewHandler creates a new gallery Handler instance
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the gallery routes. Listing is public; upload
// and delete require an authenticated admin session.
func (h *Handler) RegisterRoutes(r chi.Router, requireSession func(http.Handler) http.Handler) {
	r.Get("/gallery", h.List)
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Post("/gallery", h.Upload)
		r.Delete("/gallery/{id}", h.Delete)
	})
}

// List returns all gallery assets
// GET /api/gallery
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list gallery assets")
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"assets": assets,
		"count":  len(assets),
	})
}

// Upload accepts a multipart image upload
// POST /api/gallery
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid multipart request or file too large")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Missing image file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	asset, err := h.service.Upload(r.Context(), header.Filename, contentType, header.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedType):
			h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unsupported image type")
		case errors.Is(err, ErrStorageUnavailable):
			h.writeError(w, http.StatusBadGateway, "STORAGE_ERROR", "Object storage unavailable")
		default:
			h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store image")
		}
		return
	}

	h.writeSuccess(w, http.StatusCreated, asset)
}

// Delete removes a gallery asset
// DELETE /api/gallery/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid asset ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrAssetNotFound):
			h.writeError(w, http.StatusNotFound, "NOT_FOUND", "Gallery asset not found")
		case errors.Is(err, ErrStorageUnavailable):
			h.writeError(w, http.StatusBadGateway, "STORAGE_ERROR", "Object storage unavailable")
		default:
			h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete asset")
		}
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]bool{"deleted": true})
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
