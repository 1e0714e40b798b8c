package service

import (
	"context"
	"fmt"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// cartService implements CartService. Mutations lock the cart row, which
// serialises concurrent requests from the same user.
type cartService struct {
	tx          repository.Transactor
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	metrics     *metrics.AppMetrics
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	tx repository.Transactor,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	m *metrics.AppMetrics,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		tx:          tx,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		metrics:     m,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// GetCart returns the user's cart with live prices.
func (s *cartService) GetCart(ctx context.Context, userID int64) (*model.CartResponse, error) {
	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if cart == nil {
		if err := ensureUser(ctx, s.userRepo, userID); err != nil {
			return nil, err
		}
		err = withTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
			var err error
			cart, err = s.cartRepo.GetOrCreateLocked(ctx, tx, userID)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
		s.logger.Debug().Int64("user_id", userID).Int64("cart_id", cart.ID).Msg("cart created")
	}

	return s.view(ctx, cart)
}

// AddToCart adds units of a product, merging with any existing line. The
// merged quantity must not exceed the current stock.
func (s *cartService) AddToCart(ctx context.Context, userID int64, req *model.AddToCartRequest) (*model.CartResponse, error) {
	if req == nil {
		return nil, model.ErrInvalidQuantity
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.NotFound("product", req.ProductID)
	}

	if err := ensureUser(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}

	var cart *model.Cart
	err = withTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		var err error
		cart, err = s.cartRepo.GetOrCreateLocked(ctx, tx, userID)
		if err != nil {
			return err
		}

		item, err := s.cartRepo.FindItem(ctx, tx, cart.ID, product.ID)
		if err != nil {
			return err
		}

		desired := req.Quantity
		if item != nil {
			desired += item.Quantity
		}
		if !product.HasStock(desired) {
			s.metrics.StockRejected(ctx, "add_to_cart")
			s.logger.Warn().
				Int64("user_id", userID).
				Int64("product_id", product.ID).
				Int("stock_quantity", product.StockQuantity).
				Int("requested", desired).
				Msg("insufficient stock for cart")
			return model.InsufficientStock(product, desired)
		}

		if item != nil {
			return s.cartRepo.SetItemQuantity(ctx, tx, item.ID, desired)
		}
		return s.cartRepo.AddItem(ctx, tx, &model.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  desired,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartMutated(ctx, "add")
	s.logger.Debug().
		Int64("user_id", userID).
		Int64("product_id", product.ID).
		Int("quantity", req.Quantity).
		Msg("product added to cart")

	return s.view(ctx, cart)
}

// UpdateCartItem sets a line to an absolute quantity.
func (s *cartService) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*model.CartResponse, error) {
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	var cart *model.Cart
	err := withTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		var (
			item *model.CartItem
			err  error
		)
		cart, item, err = s.ownedItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}

		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}
		if product == nil {
			return model.NotFound("product", item.ProductID)
		}
		if !product.HasStock(quantity) {
			s.metrics.StockRejected(ctx, "update_cart")
			return model.InsufficientStock(product, quantity)
		}

		return s.cartRepo.SetItemQuantity(ctx, tx, item.ID, quantity)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartMutated(ctx, "update")
	return s.view(ctx, cart)
}

// RemoveCartItem deletes a line from the caller's cart.
func (s *cartService) RemoveCartItem(ctx context.Context, userID, itemID int64) (*model.CartResponse, error) {
	var cart *model.Cart
	err := withTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		var (
			item *model.CartItem
			err  error
		)
		cart, item, err = s.ownedItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		return s.cartRepo.DeleteItem(ctx, tx, item.ID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartMutated(ctx, "remove")
	return s.view(ctx, cart)
}

// ownedItem locks the user's cart and loads an item that must belong to it.
func (s *cartService) ownedItem(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*model.Cart, *model.CartItem, error) {
	cart, err := s.cartRepo.LockByUserID(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, model.CartNotFound(userID)
	}

	item, err := s.cartRepo.GetItem(ctx, tx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, model.NotFound("cart item", itemID)
	}
	if item.CartID != cart.ID {
		s.logger.Warn().
			Int64("user_id", userID).
			Int64("cart_item_id", itemID).
			Msg("cart item belongs to another cart")
		return nil, nil, model.Forbidden("cart item", itemID, "cart item does not belong to your cart")
	}

	return cart, item, nil
}

func (s *cartService) view(ctx context.Context, cart *model.Cart) (*model.CartResponse, error) {
	lines, err := s.cartRepo.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return model.NewCartResponse(cart, lines), nil
}
