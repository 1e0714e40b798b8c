package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// AddressHandler handles shipping address HTTP requests.
type AddressHandler struct {
	service service.AddressService
	logger  zerolog.Logger
}

// NewAddressHandler creates a new address handler.
func NewAddressHandler(service service.AddressService, logger zerolog.Logger) *AddressHandler {
	return &AddressHandler{
		service: service,
		logger:  logger.With().Str("handler", "address").Logger(),
	}
}

// Create handles POST /api/addresses.
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	address, err := h.service.Add(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, address)
}

// List handles GET /api/addresses.
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	addresses, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, addresses)
}

// Delete handles DELETE /api/addresses/{id}.
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	addressID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid address ID", h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), userID, addressID); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
