package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
)

// newRequest builds a request as the router would hand it over: identity
// resolved and route variables set.
func newRequest(method, path, body string, userID int64, vars map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, sellerID int64, req *model.ProductRequest) (*model.Product, error) {
	args := m.Called(ctx, sellerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) UpdatePricing(ctx context.Context, sellerID, productID int64, req *model.PricingRequest) (*model.Product, error) {
	args := m.Called(ctx, sellerID, productID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Search(ctx context.Context, keyword string, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, keyword, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, sellerID, productID int64) error {
	args := m.Called(ctx, sellerID, productID)
	return args.Error(0)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, userID int64) (*model.CartResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) AddToCart(ctx context.Context, userID int64, req *model.AddToCartRequest) (*model.CartResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*model.CartResponse, error) {
	args := m.Called(ctx, userID, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) RemoveCartItem(ctx context.Context, userID, itemID int64) (*model.CartResponse, error) {
	args := m.Called(ctx, userID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, userID int64, req *model.CreateOrderRequest, key string) (*model.OrderResponse, error) {
	args := m.Called(ctx, userID, req, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID, userID int64) (*model.OrderResponse, error) {
	args := m.Called(ctx, orderID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID int64) ([]*model.OrderResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) ListSellerOrders(ctx context.Context, sellerID int64) ([]*model.OrderResponse, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OrderResponse), args.Error(1)
}

// MockLifecycleService is a mock implementation of LifecycleService.
type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) CancelOrder(ctx context.Context, orderID, userID int64) (*model.OrderResponse, error) {
	args := m.Called(ctx, orderID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockLifecycleService) UpdateOrderStatus(ctx context.Context, orderID, sellerID int64, status model.OrderStatus) (*model.OrderResponse, error) {
	args := m.Called(ctx, orderID, sellerID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

// MockAddressService is a mock implementation of AddressService.
type MockAddressService struct {
	mock.Mock
}

func (m *MockAddressService) Add(ctx context.Context, userID int64, req *model.AddressRequest) (*model.Address, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *MockAddressService) List(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Address), args.Error(1)
}

func (m *MockAddressService) Delete(ctx context.Context, userID, addressID int64) error {
	args := m.Called(ctx, userID, addressID)
	return args.Error(0)
}

// MockReviewService is a mock implementation of ReviewService.
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Add(ctx context.Context, userID, productID int64, req *model.ReviewRequest) (*model.ReviewResponse, error) {
	args := m.Called(ctx, userID, productID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) Update(ctx context.Context, userID, reviewID int64, req *model.ReviewRequest) (*model.ReviewResponse, error) {
	args := m.Called(ctx, userID, reviewID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) Delete(ctx context.Context, userID, reviewID int64) error {
	args := m.Called(ctx, userID, reviewID)
	return args.Error(0)
}

func (m *MockReviewService) ListByProduct(ctx context.Context, productID, viewerID int64) ([]*model.ReviewResponse, error) {
	args := m.Called(ctx, productID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) Rating(ctx context.Context, productID int64) (*model.RatingSummary, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RatingSummary), args.Error(1)
}
