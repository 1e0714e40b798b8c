package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles cart HTTP requests for the calling user.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// Add handles POST /api/cart.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.AddToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	cart, err := h.service.AddToCart(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// UpdateItem handles PUT /api/cart/items/{itemId}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	itemID, ok := pathID(r, "itemId")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid cart item ID", h.logger)
		return
	}

	var req model.UpdateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	cart, err := h.service.UpdateCartItem(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{itemId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	itemID, ok := pathID(r, "itemId")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid cart item ID", h.logger)
		return
	}

	cart, err := h.service.RemoveCartItem(r.Context(), userID, itemID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}
