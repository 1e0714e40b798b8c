package handler

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// GetAll handles GET /api/products requests with pagination. An ids query
// parameter (comma separated) selects specific products instead.
func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if raw := query.Get("ids"); raw != "" {
		ids, err := parseIDList(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid ids parameter", h.logger)
			return
		}
		products, err := h.service.GetByIDs(r.Context(), ids)
		if err != nil {
			writeServiceError(w, r, err, h.logger)
			return
		}
		writeJSON(w, http.StatusOK, products)
		return
	}

	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	products, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID", h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), productID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Create handles POST /api/seller/products requests.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	product, err := h.service.Create(r.Context(), sellerID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// UpdatePricing handles PUT /api/seller/products/{id}/pricing requests.
func (h *ProductHandler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID", h.logger)
		return
	}

	var req model.PricingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	product, err := h.service.UpdatePricing(r.Context(), sellerID, productID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Search handles GET /api/products/search/{keyword} requests with pagination.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	products, err := h.service.Search(r.Context(), mux.Vars(r)["keyword"], limit, offset)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// Delete handles DELETE /api/seller/products/{id} requests.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID", h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), sellerID, productID); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// page reads the limit and offset query parameters, writing a 400 when
// either is not an integer.
func (h *ProductHandler) page(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()

	limit := 10 // default
	if limitStr := query.Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid limit parameter", h.logger)
			return 0, 0, false
		}
	}

	offset := 0 // default
	if offsetStr := query.Get("offset"); offsetStr != "" {
		var err error
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid offset parameter", h.logger)
			return 0, 0, false
		}
	}

	return limit, offset, true
}

func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
