package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testAPIKey = "test-key"

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type mockProductService struct {
	service.ProductService
	mock.Mock
}

func (m *mockProductService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *mockProductService) Search(ctx context.Context, keyword string, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, keyword, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *mockProductService) Delete(ctx context.Context, sellerID, productID int64) error {
	args := m.Called(ctx, sellerID, productID)
	return args.Error(0)
}

type mockReviewService struct {
	service.ReviewService
	mock.Mock
}

func (m *mockReviewService) ListByProduct(ctx context.Context, productID, viewerID int64) ([]*model.ReviewResponse, error) {
	args := m.Called(ctx, productID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ReviewResponse), args.Error(1)
}

type mockCartService struct {
	service.CartService
	mock.Mock
}

func (m *mockCartService) GetCart(ctx context.Context, userID int64) (*model.CartResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func newTestRouter(products service.ProductService, carts service.CartService, db Pinger) http.Handler {
	return newTestRouterWithReviews(products, carts, nil, db)
}

func newTestRouterWithReviews(products service.ProductService, carts service.CartService, reviews service.ReviewService, db Pinger) http.Handler {
	logger := zerolog.Nop()
	return New(Handlers{
		Products:  handler.NewProductHandler(products, logger),
		Cart:      handler.NewCartHandler(carts, logger),
		Orders:    handler.NewOrderHandler(nil, nil, logger),
		Addresses: handler.NewAddressHandler(nil, logger),
		Reviews:   handler.NewReviewHandler(reviews, logger),
	}, db, metrics.Nop(), testAPIKey, logger)
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		apiKey         string
		userID         string
		db             Pinger
		setup          func(*mockProductService, *mockCartService)
		expectedStatus int
	}{
		{
			name:           "Health without API key",
			method:         http.MethodGet,
			path:           "/health",
			db:             stubPinger{},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Health with database down",
			method:         http.MethodGet,
			path:           "/health",
			db:             stubPinger{err: errors.New("connection refused")},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "Missing API key",
			method:         http.MethodGet,
			path:           "/api/products/1",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "Public product read needs no identity",
			method: http.MethodGet,
			path:   "/api/products/1",
			apiKey: testAPIKey,
			setup: func(p *mockProductService, _ *mockCartService) {
				p.On("GetByID", mock.Anything, int64(1)).Return(&model.Product{ID: 1}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Non-numeric product ID does not route",
			method:         http.MethodGet,
			path:           "/api/products/abc",
			apiKey:         testAPIKey,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Cart requires identity",
			method:         http.MethodGet,
			path:           "/api/cart",
			apiKey:         testAPIKey,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid identity",
			method:         http.MethodGet,
			path:           "/api/cart",
			apiKey:         testAPIKey,
			userID:         "-4",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "Cart with identity",
			method: http.MethodGet,
			path:   "/api/cart",
			apiKey: testAPIKey,
			userID: "42",
			setup: func(_ *mockProductService, c *mockCartService) {
				c.On("GetCart", mock.Anything, int64(42)).Return(&model.CartResponse{ID: 9}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Wrong method",
			method:         http.MethodDelete,
			path:           "/api/cart",
			apiKey:         testAPIKey,
			userID:         "42",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "Preflight",
			method:         http.MethodOptions,
			path:           "/api/orders",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "Unknown route",
			method:         http.MethodGet,
			path:           "/api/unknown",
			apiKey:         testAPIKey,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := new(mockProductService)
			carts := new(mockCartService)
			if tt.setup != nil {
				tt.setup(products, carts)
			}
			db := tt.db
			if db == nil {
				db = stubPinger{}
			}

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set(middleware.HeaderAPIKey, tt.apiKey)
			}
			if tt.userID != "" {
				req.Header.Set(middleware.HeaderUserID, tt.userID)
			}
			w := httptest.NewRecorder()

			newTestRouter(products, carts, db).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
			products.AssertExpectations(t)
			carts.AssertExpectations(t)
		})
	}
}

func TestRouter_CatalogueExtras(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		userID         string
		setup          func(*mockProductService, *mockReviewService)
		expectedStatus int
	}{
		{
			name:   "Search is public",
			method: http.MethodGet,
			path:   "/api/products/search/lamp",
			setup: func(p *mockProductService, _ *mockReviewService) {
				p.On("Search", mock.Anything, "lamp", 10, 0).Return([]model.Product{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Anonymous review list",
			method: http.MethodGet,
			path:   "/api/products/5/reviews",
			setup: func(_ *mockProductService, r *mockReviewService) {
				r.On("ListByProduct", mock.Anything, int64(5), int64(0)).Return([]*model.ReviewResponse{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Review list with identity",
			method: http.MethodGet,
			path:   "/api/products/5/reviews",
			userID: "42",
			setup: func(_ *mockProductService, r *mockReviewService) {
				r.On("ListByProduct", mock.Anything, int64(5), int64(42)).Return([]*model.ReviewResponse{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Review list with malformed identity",
			method:         http.MethodGet,
			path:           "/api/products/5/reviews",
			userID:         "abc",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Posting a review requires identity",
			method:         http.MethodPost,
			path:           "/api/products/5/reviews",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Deleting a review requires identity",
			method:         http.MethodDelete,
			path:           "/api/reviews/30",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "Seller deletes product",
			method: http.MethodDelete,
			path:   "/api/seller/products/5",
			userID: "7",
			setup: func(p *mockProductService, _ *mockReviewService) {
				p.On("Delete", mock.Anything, int64(7), int64(5)).Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "Product delete requires identity",
			method:         http.MethodDelete,
			path:           "/api/seller/products/5",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := new(mockProductService)
			reviews := new(mockReviewService)
			if tt.setup != nil {
				tt.setup(products, reviews)
			}

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(middleware.HeaderAPIKey, testAPIKey)
			if tt.userID != "" {
				req.Header.Set(middleware.HeaderUserID, tt.userID)
			}
			w := httptest.NewRecorder()

			newTestRouterWithReviews(products, new(mockCartService), reviews, stubPinger{}).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			products.AssertExpectations(t)
			reviews.AssertExpectations(t)
		})
	}
}
