package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ProductService defines operations for the product catalog.
type ProductService interface {
	// GetAll retrieves all products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// Create adds a product owned by sellerID.
	Create(ctx context.Context, sellerID int64, req *model.ProductRequest) (*model.Product, error)

	// UpdatePricing changes the price and discount of a seller's product.
	UpdatePricing(ctx context.Context, sellerID, productID int64, req *model.PricingRequest) (*model.Product, error)

	// Search finds products whose name, brand or description contains keyword.
	Search(ctx context.Context, keyword string, limit, offset int) ([]model.Product, error)

	// Delete removes a seller's product that has never been ordered.
	Delete(ctx context.Context, sellerID, productID int64) error
}

// ReviewService defines operations on product reviews.
type ReviewService interface {
	// Add posts the user's review of a product. A user reviews a product once.
	Add(ctx context.Context, userID, productID int64, req *model.ReviewRequest) (*model.ReviewResponse, error)

	// Update changes the rating and comment of the user's own review.
	Update(ctx context.Context, userID, reviewID int64, req *model.ReviewRequest) (*model.ReviewResponse, error)

	// Delete removes the user's own review.
	Delete(ctx context.Context, userID, reviewID int64) error

	// ListByProduct returns a product's reviews, newest first. A non-zero
	// viewerID marks the viewer's own reviews.
	ListByProduct(ctx context.Context, productID, viewerID int64) ([]*model.ReviewResponse, error)

	// Rating returns the average rating and review count of a product.
	Rating(ctx context.Context, productID int64) (*model.RatingSummary, error)
}

// CartService defines operations on a user's cart. Every mutation returns
// the cart as it is after the change.
type CartService interface {
	// GetCart returns the user's cart, creating an empty one if needed.
	GetCart(ctx context.Context, userID int64) (*model.CartResponse, error)

	// AddToCart adds quantity units of a product, merging with an existing line.
	AddToCart(ctx context.Context, userID int64, req *model.AddToCartRequest) (*model.CartResponse, error)

	// UpdateCartItem sets a line to an absolute quantity.
	UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*model.CartResponse, error)

	// RemoveCartItem deletes a line.
	RemoveCartItem(ctx context.Context, userID, itemID int64) (*model.CartResponse, error)
}

// OrderService defines checkout and order reads.
type OrderService interface {
	// CreateOrder turns the user's cart into an order. A non-empty
	// idempotencyKey makes retries return the order created first.
	CreateOrder(ctx context.Context, userID int64, req *model.CreateOrderRequest, idempotencyKey string) (*model.OrderResponse, error)

	// GetOrder retrieves one of the user's orders.
	GetOrder(ctx context.Context, orderID, userID int64) (*model.OrderResponse, error)

	// ListOrders returns the user's orders, newest first.
	ListOrders(ctx context.Context, userID int64) ([]*model.OrderResponse, error)

	// ListSellerOrders returns orders containing any of the seller's products.
	ListSellerOrders(ctx context.Context, sellerID int64) ([]*model.OrderResponse, error)
}

// LifecycleService defines order status changes.
type LifecycleService interface {
	// CancelOrder cancels a pending order of the user and restores its stock.
	CancelOrder(ctx context.Context, orderID, userID int64) (*model.OrderResponse, error)

	// UpdateOrderStatus moves an order the seller sells into to status.
	UpdateOrderStatus(ctx context.Context, orderID, sellerID int64, status model.OrderStatus) (*model.OrderResponse, error)
}

// AddressService defines operations on a user's shipping addresses.
type AddressService interface {
	// Add stores a new address for the user.
	Add(ctx context.Context, userID int64, req *model.AddressRequest) (*model.Address, error)

	// List returns the user's active addresses.
	List(ctx context.Context, userID int64) ([]model.Address, error)

	// Delete removes an address, or deactivates it when orders reference it.
	Delete(ctx context.Context, userID, addressID int64) error
}

// withTx runs fn in a transaction. The transaction is rolled back when fn
// or the commit fails.
func withTx(ctx context.Context, txr repository.Transactor, logger zerolog.Logger, fn func(tx pgx.Tx) error) (err error) {
	tx, err := txr.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ensureUser returns NotFound when userID is not provisioned.
func ensureUser(ctx context.Context, users repository.UserRepository, userID int64) error {
	exists, err := users.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return model.NotFound("user", userID)
	}
	return nil
}
