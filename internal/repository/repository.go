package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Transactor opens database transactions. Repository methods that take a
// pgx.Tx run inside the caller's transaction.
type Transactor interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	// Exists reports whether a user with the given ID is provisioned.
	Exists(ctx context.Context, id int64) (bool, error)

	// Create inserts a user. A duplicate email yields a Conflict error.
	Create(ctx context.Context, user *model.User) error
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// Create inserts a product and fills its ID and timestamps.
	Create(ctx context.Context, product *model.Product) error

	// UpdatePricing sets price and discount only. Returns nil when absent.
	UpdatePricing(ctx context.Context, id int64, price decimal.Decimal, discount *int) (*model.Product, error)

	// LockByIDs selects the given products FOR UPDATE in ascending ID order.
	// Missing IDs are simply absent from the result.
	LockByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.Product, error)

	// UpdateStock writes the stock quantity and availability of a locked product.
	UpdateStock(ctx context.Context, tx pgx.Tx, product *model.Product) error

	// Search matches keyword against name, brand and description, case-insensitively.
	Search(ctx context.Context, keyword string, limit, offset int) ([]model.Product, error)

	// HasOrders reports whether any order item references the product.
	HasOrders(ctx context.Context, tx pgx.Tx, id int64) (bool, error)

	// Delete removes a product together with the cart lines and reviews
	// referencing it. A product that has been ordered yields a Conflict.
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
}

// CartRepository defines the interface for cart data access operations.
type CartRepository interface {
	// GetByUserID retrieves the user's cart. Returns nil when absent.
	GetByUserID(ctx context.Context, userID int64) (*model.Cart, error)

	// GetOrCreateLocked creates the user's cart if needed and locks its row.
	GetOrCreateLocked(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error)

	// LockByUserID locks the user's cart row. Returns nil when absent.
	LockByUserID(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error)

	// ListLines returns the cart items joined with their current products.
	ListLines(ctx context.Context, cartID int64) ([]model.CartLine, error)

	// ListItems returns the cart items in insertion order.
	ListItems(ctx context.Context, tx pgx.Tx, cartID int64) ([]model.CartItem, error)

	// GetItem retrieves a cart item by ID. Returns nil when absent.
	GetItem(ctx context.Context, tx pgx.Tx, itemID int64) (*model.CartItem, error)

	// FindItem retrieves the cart's line for a product. Returns nil when absent.
	FindItem(ctx context.Context, tx pgx.Tx, cartID, productID int64) (*model.CartItem, error)

	// AddItem inserts a new line and fills its ID.
	AddItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error

	// SetItemQuantity overwrites the quantity of a line.
	SetItemQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) error

	// DeleteItem removes a line.
	DeleteItem(ctx context.Context, tx pgx.Tx, itemID int64) error

	// ClearItems removes every line of a cart.
	ClearItems(ctx context.Context, tx pgx.Tx, cartID int64) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts an order within the provided transaction and fills its
	// ID and timestamps.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateItems inserts order items within the provided transaction and
	// fills their IDs.
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items and shipping address.
	// Returns nil when absent.
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// LockByID locks an order row. Returns nil when absent.
	LockByID(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error)

	// ListItems returns the items of an order.
	ListItems(ctx context.Context, tx pgx.Tx, orderID int64) ([]model.OrderItem, error)

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)

	// ListBySeller returns orders containing any of the seller's products,
	// active orders first, newest first within each group.
	ListBySeller(ctx context.Context, sellerID int64) ([]model.Order, error)

	// SellerHasProduct reports whether the order contains a product owned by the seller.
	SellerHasProduct(ctx context.Context, tx pgx.Tx, orderID, sellerID int64) (bool, error)

	// UpdateStatus sets the status of a locked order.
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status model.OrderStatus) error
}

// ReviewRepository defines the interface for review data access operations.
type ReviewRepository interface {
	// Create inserts a review and fills its ID, timestamps and reviewer name.
	// A second review of the same product by the same user yields a Conflict.
	Create(ctx context.Context, review *model.Review) error

	// GetByID retrieves a review. Returns nil when absent.
	GetByID(ctx context.Context, id int64) (*model.Review, error)

	// ListByProduct returns a product's reviews, newest first.
	ListByProduct(ctx context.Context, productID int64) ([]model.Review, error)

	// Update writes the rating and comment and refreshes UpdatedAt.
	Update(ctx context.Context, review *model.Review) error

	// Delete removes a review.
	Delete(ctx context.Context, id int64) error

	// Summary returns the average rating, rounded to 2 places, and the review count.
	Summary(ctx context.Context, productID int64) (*model.RatingSummary, error)
}

// AddressRepository defines the interface for address data access operations.
type AddressRepository interface {
	// Create inserts an address and fills its ID.
	Create(ctx context.Context, address *model.Address) error

	// GetByID retrieves an address by ID regardless of its active flag.
	// Returns nil when absent.
	GetByID(ctx context.Context, id int64) (*model.Address, error)

	// GetForShare reads an address under a share lock so it cannot be
	// deleted until the transaction ends. Returns nil when absent.
	GetForShare(ctx context.Context, tx pgx.Tx, id int64) (*model.Address, error)

	// LockByID locks an address row for update. Returns nil when absent.
	LockByID(ctx context.Context, tx pgx.Tx, id int64) (*model.Address, error)

	// ListActiveByUser returns the user's active addresses.
	ListActiveByUser(ctx context.Context, userID int64) ([]model.Address, error)

	// HasOrders reports whether any order ships to the address.
	HasOrders(ctx context.Context, tx pgx.Tx, id int64) (bool, error)

	// Deactivate soft-deletes the address.
	Deactivate(ctx context.Context, tx pgx.Tx, id int64) error

	// Delete removes the address row.
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
}
