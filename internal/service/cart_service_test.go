package service

import (
	"context"
	"testing"

	"storefront/internal/metrics"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type cartMocks struct {
	txr      *MockTransactor
	tx       *MockTx
	carts    *MockCartRepository
	products *MockProductRepository
	users    *MockUserRepository
}

func newCartService(txr *MockTransactor, tx *MockTx) (CartService, *cartMocks) {
	m := &cartMocks{
		txr:      txr,
		tx:       tx,
		carts:    new(MockCartRepository),
		products: new(MockProductRepository),
		users:    new(MockUserRepository),
	}
	svc := NewCartService(m.txr, m.carts, m.products, m.users, metrics.Nop(), zerolog.Nop())
	return svc, m
}

func (m *cartMocks) assertExpectations(t *testing.T) {
	m.txr.AssertExpectations(t)
	m.tx.AssertExpectations(t)
	m.carts.AssertExpectations(t)
	m.products.AssertExpectations(t)
	m.users.AssertExpectations(t)
}

func TestCartService_GetCart(t *testing.T) {
	ctx := context.Background()
	cart := &model.Cart{ID: 3, UserID: 1}

	t.Run("Existing cart with live totals", func(t *testing.T) {
		svc, m := newCartService(new(MockTransactor), new(MockTx))
		discount := 50
		lines := []model.CartLine{
			{
				Item:    model.CartItem{ID: 10, CartID: 3, ProductID: 5, Quantity: 2},
				Product: model.Product{ID: 5, Name: "Mug", Price: decimal.RequireFromString("12.00"), StockQuantity: 9, Available: true},
			},
			{
				Item:    model.CartItem{ID: 11, CartID: 3, ProductID: 6, Quantity: 1},
				Product: model.Product{ID: 6, Name: "Lamp", Price: decimal.RequireFromString("40.00"), DiscountPercentage: &discount},
			},
		}
		m.carts.On("GetByUserID", ctx, int64(1)).Return(cart, nil)
		m.carts.On("ListLines", ctx, int64(3)).Return(lines, nil)

		resp, err := svc.GetCart(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.ID)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "24.00", resp.Items[0].Subtotal.StringFixed(2))
		assert.Equal(t, "20.00", resp.Items[1].UnitPrice.StringFixed(2))
		assert.False(t, resp.Items[1].Available)
		assert.Equal(t, "44.00", resp.TotalPrice.StringFixed(2))
		m.assertExpectations(t)
	})

	t.Run("Creates an empty cart on first access", func(t *testing.T) {
		txr, tx := newCommittingTx(ctx)
		svc, m := newCartService(txr, tx)
		m.carts.On("GetByUserID", ctx, int64(1)).Return(nil, nil)
		m.users.On("Exists", ctx, int64(1)).Return(true, nil)
		m.carts.On("GetOrCreateLocked", ctx, tx, int64(1)).Return(cart, nil)
		m.carts.On("ListLines", ctx, int64(3)).Return([]model.CartLine{}, nil)

		resp, err := svc.GetCart(ctx, 1)

		require.NoError(t, err)
		assert.Empty(t, resp.Items)
		assert.True(t, resp.TotalPrice.IsZero())
		m.assertExpectations(t)
	})

	t.Run("Unknown user", func(t *testing.T) {
		svc, m := newCartService(new(MockTransactor), new(MockTx))
		m.carts.On("GetByUserID", ctx, int64(1)).Return(nil, nil)
		m.users.On("Exists", ctx, int64(1)).Return(false, nil)

		_, err := svc.GetCart(ctx, 1)

		require.ErrorIs(t, err, model.ErrNotFound)
		m.txr.AssertNotCalled(t, "BeginTx")
	})
}

func TestCartService_AddToCart(t *testing.T) {
	ctx := context.Background()
	cart := &model.Cart{ID: 3, UserID: 1}
	product := &model.Product{ID: 5, Name: "Mug", Price: decimal.RequireFromString("12.00"), StockQuantity: 5, Available: true}

	t.Run("New line", func(t *testing.T) {
		txr, tx := newCommittingTx(ctx)
		svc, m := newCartService(txr, tx)
		m.products.On("GetByID", ctx, int64(5)).Return(product, nil)
		m.users.On("Exists", ctx, int64(1)).Return(true, nil)
		m.carts.On("GetOrCreateLocked", ctx, tx, int64(1)).Return(cart, nil)
		m.carts.On("FindItem", ctx, tx, int64(3), int64(5)).Return(nil, nil)
		m.carts.On("AddItem", ctx, tx, mock.MatchedBy(func(item *model.CartItem) bool {
			return item.CartID == 3 && item.ProductID == 5 && item.Quantity == 2
		})).Return(nil)
		m.carts.On("ListLines", ctx, int64(3)).Return([]model.CartLine{}, nil)

		_, err := svc.AddToCart(ctx, 1, &model.AddToCartRequest{ProductID: 5, Quantity: 2})

		require.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("Merges with existing line", func(t *testing.T) {
		txr, tx := newCommittingTx(ctx)
		svc, m := newCartService(txr, tx)
		m.products.On("GetByID", ctx, int64(5)).Return(product, nil)
		m.users.On("Exists", ctx, int64(1)).Return(true, nil)
		m.carts.On("GetOrCreateLocked", ctx, tx, int64(1)).Return(cart, nil)
		m.carts.On("FindItem", ctx, tx, int64(3), int64(5)).Return(&model.CartItem{ID: 10, CartID: 3, ProductID: 5, Quantity: 3}, nil)
		m.carts.On("SetItemQuantity", ctx, tx, int64(10), 5).Return(nil)
		m.carts.On("ListLines", ctx, int64(3)).Return([]model.CartLine{}, nil)

		_, err := svc.AddToCart(ctx, 1, &model.AddToCartRequest{ProductID: 5, Quantity: 2})

		require.NoError(t, err)
		m.carts.AssertNotCalled(t, "AddItem")
		m.assertExpectations(t)
	})

	t.Run("Merged quantity exceeds stock", func(t *testing.T) {
		txr, tx := newRollingBackTx(ctx)
		svc, m := newCartService(txr, tx)
		m.products.On("GetByID", ctx, int64(5)).Return(product, nil)
		m.users.On("Exists", ctx, int64(1)).Return(true, nil)
		m.carts.On("GetOrCreateLocked", ctx, tx, int64(1)).Return(cart, nil)
		m.carts.On("FindItem", ctx, tx, int64(3), int64(5)).Return(&model.CartItem{ID: 10, CartID: 3, ProductID: 5, Quantity: 4}, nil)

		_, err := svc.AddToCart(ctx, 1, &model.AddToCartRequest{ProductID: 5, Quantity: 2})

		require.ErrorIs(t, err, model.ErrInsufficientStock)
		var de *model.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, int64(5), de.ID)
		assert.Contains(t, de.Message, "Mug")
		m.carts.AssertNotCalled(t, "SetItemQuantity")
		m.assertExpectations(t)
	})

	t.Run("Unknown product", func(t *testing.T) {
		svc, m := newCartService(new(MockTransactor), new(MockTx))
		m.products.On("GetByID", ctx, int64(99)).Return(nil, nil)

		_, err := svc.AddToCart(ctx, 1, &model.AddToCartRequest{ProductID: 99, Quantity: 1})

		require.ErrorIs(t, err, model.ErrNotFound)
		m.txr.AssertNotCalled(t, "BeginTx")
	})

	t.Run("Quantity below one", func(t *testing.T) {
		svc, m := newCartService(new(MockTransactor), new(MockTx))

		_, err := svc.AddToCart(ctx, 1, &model.AddToCartRequest{ProductID: 5, Quantity: 0})

		require.ErrorIs(t, err, model.ErrValidation)
		m.products.AssertNotCalled(t, "GetByID")
	})
}

func TestCartService_UpdateCartItem(t *testing.T) {
	ctx := context.Background()
	cart := &model.Cart{ID: 3, UserID: 1}
	product := &model.Product{ID: 5, Name: "Mug", Price: decimal.RequireFromString("12.00"), StockQuantity: 5, Available: true}

	tests := []struct {
		name      string
		quantity  int
		cart      *model.Cart
		item      *model.CartItem
		expectErr error
		expectSet bool
	}{
		{
			name:      "Sets absolute quantity",
			quantity:  5,
			cart:      cart,
			item:      &model.CartItem{ID: 10, CartID: 3, ProductID: 5, Quantity: 1},
			expectSet: true,
		},
		{
			name:      "Above stock",
			quantity:  6,
			cart:      cart,
			item:      &model.CartItem{ID: 10, CartID: 3, ProductID: 5, Quantity: 1},
			expectErr: model.ErrInsufficientStock,
		},
		{
			name:      "No cart",
			quantity:  1,
			expectErr: model.ErrCartNotFound,
		},
		{
			name:      "Missing item",
			quantity:  1,
			cart:      cart,
			expectErr: model.ErrNotFound,
		},
		{
			name:      "Item of another cart",
			quantity:  1,
			cart:      cart,
			item:      &model.CartItem{ID: 10, CartID: 4, ProductID: 5, Quantity: 1},
			expectErr: model.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				txr *MockTransactor
				tx  *MockTx
			)
			if tt.expectErr == nil {
				txr, tx = newCommittingTx(ctx)
			} else {
				txr, tx = newRollingBackTx(ctx)
			}
			svc, m := newCartService(txr, tx)

			if tt.cart == nil {
				m.carts.On("LockByUserID", ctx, tx, int64(1)).Return(nil, nil)
			} else {
				m.carts.On("LockByUserID", ctx, tx, int64(1)).Return(tt.cart, nil)
				if tt.item == nil {
					m.carts.On("GetItem", ctx, tx, int64(10)).Return(nil, nil)
				} else {
					m.carts.On("GetItem", ctx, tx, int64(10)).Return(tt.item, nil)
					if tt.item.CartID == tt.cart.ID {
						m.products.On("GetByID", ctx, int64(5)).Return(product, nil)
					}
				}
			}
			if tt.expectSet {
				m.carts.On("SetItemQuantity", ctx, tx, int64(10), tt.quantity).Return(nil)
				m.carts.On("ListLines", ctx, int64(3)).Return([]model.CartLine{}, nil)
			}

			_, err := svc.UpdateCartItem(ctx, 1, 10, tt.quantity)

			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				m.carts.AssertNotCalled(t, "SetItemQuantity")
			} else {
				require.NoError(t, err)
			}
			m.assertExpectations(t)
		})
	}

	t.Run("Zero quantity", func(t *testing.T) {
		svc, m := newCartService(new(MockTransactor), new(MockTx))

		_, err := svc.UpdateCartItem(ctx, 1, 10, 0)

		require.ErrorIs(t, err, model.ErrInvalidQuantity)
		m.txr.AssertNotCalled(t, "BeginTx")
	})
}

func TestCartService_RemoveCartItem(t *testing.T) {
	ctx := context.Background()
	cart := &model.Cart{ID: 3, UserID: 1}

	t.Run("Removes own item", func(t *testing.T) {
		txr, tx := newCommittingTx(ctx)
		svc, m := newCartService(txr, tx)
		m.carts.On("LockByUserID", ctx, tx, int64(1)).Return(cart, nil)
		m.carts.On("GetItem", ctx, tx, int64(10)).Return(&model.CartItem{ID: 10, CartID: 3, ProductID: 5, Quantity: 1}, nil)
		m.carts.On("DeleteItem", ctx, tx, int64(10)).Return(nil)
		m.carts.On("ListLines", ctx, int64(3)).Return([]model.CartLine{}, nil)

		resp, err := svc.RemoveCartItem(ctx, 1, 10)

		require.NoError(t, err)
		assert.Empty(t, resp.Items)
		m.assertExpectations(t)
	})

	t.Run("Foreign item is forbidden", func(t *testing.T) {
		txr, tx := newRollingBackTx(ctx)
		svc, m := newCartService(txr, tx)
		m.carts.On("LockByUserID", ctx, tx, int64(1)).Return(cart, nil)
		m.carts.On("GetItem", ctx, tx, int64(10)).Return(&model.CartItem{ID: 10, CartID: 9, ProductID: 5, Quantity: 1}, nil)

		_, err := svc.RemoveCartItem(ctx, 1, 10)

		require.ErrorIs(t, err, model.ErrForbidden)
		m.carts.AssertNotCalled(t, "DeleteItem")
		m.assertExpectations(t)
	})
}
