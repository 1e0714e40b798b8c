package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// HeaderIdempotencyKey makes checkout retries safe.
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	orders    service.OrderService
	lifecycle service.LifecycleService
	logger    zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders service.OrderService, lifecycle service.LifecycleService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		lifecycle: lifecycle,
		logger:    logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), userID, &req, r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID, userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	order, err := h.lifecycle.CancelOrder(r.Context(), orderID, userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListSeller handles GET /api/seller/orders requests.
func (h *OrderHandler) ListSeller(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.orders.ListSellerOrders(r.Context(), sellerID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// UpdateStatus handles PUT /api/seller/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		writeServiceError(w, r, model.ValidationErrors{"status": "must be one of PENDING, PROCESSING, SHIPPED, DELIVERED, CANCELLED"}.Err(), h.logger)
		return
	}

	order, err := h.lifecycle.UpdateOrderStatus(r.Context(), orderID, sellerID, status)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
