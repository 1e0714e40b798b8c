package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOrderHandler_Create(t *testing.T) {
	logger := zerolog.Nop()

	testResponse := &model.OrderResponse{
		ID:          100,
		Status:      model.StatusPending,
		TotalAmount: decimal.RequireFromString("45.00"),
		Items: []model.OrderItemResponse{
			{ProductID: 5, ProductName: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("22.50")},
		},
	}

	tests := []struct {
		name           string
		userID         int64
		body           string
		idempotencyKey string
		mockReturn     *model.OrderResponse
		mockError      error
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			userID:         1,
			body:           `{"shippingAddressId": 20}`,
			mockReturn:     testResponse,
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Success with idempotency key",
			userID:         1,
			body:           `{"shippingAddressId": 20}`,
			idempotencyKey: "retry-1",
			mockReturn:     testResponse,
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Invalid promo code",
			userID:         1,
			body:           `{"shippingAddressId": 20, "promoCode": "BADCODE99"}`,
			mockError:      model.ErrInvalidPromoCode,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidPromoCode,
			expectService:  true,
		},
		{
			name:           "Insufficient stock",
			userID:         1,
			body:           `{"shippingAddressId": 20}`,
			mockError:      model.InsufficientStock(&model.Product{ID: 5, Name: "Mug", StockQuantity: 1}, 2),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInsufficientStock,
			expectService:  true,
		},
		{
			name:           "Empty cart",
			userID:         1,
			body:           `{"shippingAddressId": 20}`,
			mockError:      model.EmptyCart(3),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeEmptyCart,
			expectService:  true,
		},
		{
			name:           "No cart",
			userID:         1,
			body:           `{"shippingAddressId": 20}`,
			mockError:      model.CartNotFound(1),
			expectedStatus: http.StatusNotFound,
			expectedCode:   model.ErrCodeCartNotFound,
			expectService:  true,
		},
		{
			name:           "Checkout already in progress",
			userID:         1,
			body:           `{"shippingAddressId": 20}`,
			idempotencyKey: "retry-1",
			mockError:      model.Conflict("in progress"),
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeConflict,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			userID:         1,
			body:           "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name:           "Missing identity",
			body:           `{"shippingAddressId": 20}`,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   model.ErrCodeUnauthorised,
		},
		{
			name:           "Service internal error",
			userID:         1,
			body:           `{"shippingAddressId": 20}`,
			mockError:      errors.New("database connection failed"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   model.ErrCodeInternalError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOrders := new(MockOrderService)
			handler := NewOrderHandler(mockOrders, new(MockLifecycleService), logger)

			if tt.expectService {
				call := mockOrders.On("CreateOrder", mock.Anything, tt.userID,
					mock.MatchedBy(func(req *model.CreateOrderRequest) bool { return req.ShippingAddressID == 20 }),
					tt.idempotencyKey)
				if tt.mockReturn != nil {
					call.Return(tt.mockReturn, nil)
				} else {
					call.Return(nil, tt.mockError)
				}
			}

			req := newRequest(http.MethodPost, "/api/orders", tt.body, tt.userID, nil)
			if tt.idempotencyKey != "" {
				req.Header.Set(HeaderIdempotencyKey, tt.idempotencyKey)
			}
			w := httptest.NewRecorder()

			handler.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var body model.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.expectedCode, body.Error)
			}

			if tt.expectService {
				mockOrders.AssertExpectations(t)
			} else {
				mockOrders.AssertNotCalled(t, "CreateOrder")
			}
		})
	}
}

func TestOrderHandler_GetByID(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		id             string
		mockReturn     *model.OrderResponse
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			id:             "100",
			mockReturn:     &model.OrderResponse{ID: 100, Status: model.StatusShipped},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Not found or not owned",
			id:             "100",
			mockError:      model.NotFound("order", 100),
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Invalid ID format",
			id:             "abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Non-positive ID",
			id:             "0",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOrders := new(MockOrderService)
			handler := NewOrderHandler(mockOrders, new(MockLifecycleService), logger)

			if tt.expectService {
				if tt.mockReturn != nil {
					mockOrders.On("GetOrder", mock.Anything, int64(100), int64(1)).Return(tt.mockReturn, nil)
				} else {
					mockOrders.On("GetOrder", mock.Anything, int64(100), int64(1)).Return(nil, tt.mockError)
				}
			}

			req := newRequest(http.MethodGet, "/api/orders/"+tt.id, "", 1, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()

			handler.GetByID(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp model.OrderResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, int64(100), resp.ID)
			}
			mockOrders.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_List(t *testing.T) {
	mockOrders := new(MockOrderService)
	handler := NewOrderHandler(mockOrders, new(MockLifecycleService), zerolog.Nop())

	mockOrders.On("ListOrders", mock.Anything, int64(1)).Return([]*model.OrderResponse{{ID: 2}, {ID: 1}}, nil)
	mockOrders.On("ListSellerOrders", mock.Anything, int64(7)).Return([]*model.OrderResponse{}, nil)

	w := httptest.NewRecorder()
	handler.List(w, newRequest(http.MethodGet, "/api/orders", "", 1, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var orders []model.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Len(t, orders, 2)

	w = httptest.NewRecorder()
	handler.ListSeller(w, newRequest(http.MethodGet, "/api/seller/orders", "", 7, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	mockOrders.AssertExpectations(t)
}

func TestOrderHandler_Cancel(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Success", func(t *testing.T) {
		mockLifecycle := new(MockLifecycleService)
		handler := NewOrderHandler(new(MockOrderService), mockLifecycle, logger)
		mockLifecycle.On("CancelOrder", mock.Anything, int64(100), int64(1)).
			Return(&model.OrderResponse{ID: 100, Status: model.StatusCancelled}, nil)

		w := httptest.NewRecorder()
		handler.Cancel(w, newRequest(http.MethodPost, "/api/orders/100/cancel", "", 1, map[string]string{"id": "100"}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"CANCELLED"`)
	})

	t.Run("Not pending", func(t *testing.T) {
		mockLifecycle := new(MockLifecycleService)
		handler := NewOrderHandler(new(MockOrderService), mockLifecycle, logger)
		mockLifecycle.On("CancelOrder", mock.Anything, int64(100), int64(1)).
			Return(nil, model.InvalidState(100, "only pending orders can be cancelled"))

		w := httptest.NewRecorder()
		handler.Cancel(w, newRequest(http.MethodPost, "/api/orders/100/cancel", "", 1, map[string]string{"id": "100"}))

		assert.Equal(t, http.StatusConflict, w.Code)
		var body model.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "only pending orders can be cancelled", body.Message)
	})
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		body           string
		status         model.OrderStatus
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success, case insensitive",
			body:           `{"status": "shipped"}`,
			status:         model.StatusShipped,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Unknown status",
			body:           `{"status": "LOST"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Seller does not sell in order",
			body:           `{"status": "SHIPPED"}`,
			status:         model.StatusShipped,
			mockError:      model.Forbidden("order", 100, "nope"),
			expectedStatus: http.StatusForbidden,
			expectService:  true,
		},
		{
			name:           "Transition not allowed",
			body:           `{"status": "PENDING"}`,
			status:         model.StatusPending,
			mockError:      model.InvalidState(100, "cannot change order status from DELIVERED to PENDING"),
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLifecycle := new(MockLifecycleService)
			handler := NewOrderHandler(new(MockOrderService), mockLifecycle, logger)

			if tt.expectService {
				call := mockLifecycle.On("UpdateOrderStatus", mock.Anything, int64(100), int64(7), tt.status)
				if tt.mockError != nil {
					call.Return(nil, tt.mockError)
				} else {
					call.Return(&model.OrderResponse{ID: 100, Status: tt.status}, nil)
				}
			}

			req := newRequest(http.MethodPut, "/api/seller/orders/100/status", tt.body, 7, map[string]string{"id": "100"})
			w := httptest.NewRecorder()

			handler.UpdateStatus(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectService {
				mockLifecycle.AssertExpectations(t)
			} else {
				mockLifecycle.AssertNotCalled(t, "UpdateOrderStatus")
			}
		})
	}
}
