package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// ReviewHandler handles product review HTTP requests.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("handler", "review").Logger(),
	}
}

// Create handles POST /api/products/{id}/reviews.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID", h.logger)
		return
	}

	var req model.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	review, err := h.service.Add(r.Context(), userID, productID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

// List handles GET /api/products/{id}/reviews. The caller is optional.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID", h.logger)
		return
	}
	viewerID, _ := middleware.UserIDFromContext(r.Context())

	reviews, err := h.service.ListByProduct(r.Context(), productID, viewerID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}

// Rating handles GET /api/products/{id}/rating.
func (h *ReviewHandler) Rating(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID", h.logger)
		return
	}

	summary, err := h.service.Rating(r.Context(), productID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Update handles PUT /api/reviews/{id}.
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	reviewID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid review ID", h.logger)
		return
	}

	var req model.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	review, err := h.service.Update(r.Context(), userID, reviewID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, review)
}

// Delete handles DELETE /api/reviews/{id}.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	reviewID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid review ID", h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), userID, reviewID); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
