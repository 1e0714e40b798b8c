package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"storefront/internal/idempotency"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/promo"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderRepositories groups the repositories checkout works with.
type OrderRepositories struct {
	Tx       repository.Transactor
	Orders   repository.OrderRepository
	Carts    repository.CartRepository
	Products repository.ProductRepository
	Address  repository.AddressRepository
}

// orderService implements OrderService.
type orderService struct {
	repos     OrderRepositories
	validator promo.Validator
	store     idempotency.Store
	metrics   *metrics.AppMetrics
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	repos OrderRepositories,
	validator promo.Validator,
	store idempotency.Store,
	m *metrics.AppMetrics,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		repos:     repos,
		validator: validator,
		store:     store,
		metrics:   m,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder places an order for everything in the user's cart.
//
// Stock for every line is checked before any is taken, under row locks held
// until commit, so either the whole cart is bought or nothing changes.
func (s *orderService) CreateOrder(ctx context.Context, userID int64, req *model.CreateOrderRequest, idempotencyKey string) (*model.OrderResponse, error) {
	if req == nil {
		return nil, model.ValidationErrors{"shippingAddressId": "is required"}.Err()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(idempotencyKey)
	if key != "" {
		existingID, err := s.store.Begin(ctx, userID, key)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			return nil, model.Conflict("a checkout with this idempotency key is still in progress")
		case err != nil:
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("idempotency store unavailable, continuing without it")
			key = ""
		case existingID != 0:
			s.logger.Info().
				Int64("user_id", userID).
				Int64("order_id", existingID).
				Msg("replaying checkout for idempotency key")
			return s.GetOrder(ctx, existingID, userID)
		}
	}

	promoCode, err := s.validatePromo(ctx, req.PromoCode)
	if err != nil {
		s.releaseKey(ctx, userID, key)
		return nil, err
	}

	order, err := s.placeOrder(ctx, userID, req.ShippingAddressID, promoCode)
	if err != nil {
		s.releaseKey(ctx, userID, key)
		return nil, err
	}

	if key != "" {
		if err := s.store.Complete(ctx, userID, key, order.ID); err != nil {
			s.logger.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to record idempotency key")
		}
	}

	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	s.metrics.OrderPlaced(ctx, order.TotalAmount, units, promoCode != nil)

	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("user_id", userID).
		Int("item_count", len(order.Items)).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Msg("order created successfully")

	return model.NewOrderResponse(order), nil
}

// validatePromo returns the trimmed code, or nil when none was given.
func (s *orderService) validatePromo(ctx context.Context, raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}

	code := strings.TrimSpace(*raw)
	if err := s.validator.Validate(ctx, code); err != nil {
		s.logger.Warn().
			Str("promo_code", code).
			Err(err).
			Msg("invalid promo code")
		return nil, err
	}
	s.logger.Debug().Str("promo_code", code).Msg("promo code validated")
	return &code, nil
}

// releaseKey drops a claimed idempotency key after a failed checkout.
func (s *orderService) releaseKey(ctx context.Context, userID int64, key string) {
	if key == "" {
		return
	}
	if err := s.store.Release(ctx, userID, key); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to release idempotency key")
	}
}

func (s *orderService) placeOrder(ctx context.Context, userID, addressID int64, promoCode *string) (*model.Order, error) {
	var order *model.Order

	err := withTx(ctx, s.repos.Tx, s.logger, func(tx pgx.Tx) error {
		cart, err := s.repos.Carts.LockByUserID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return model.CartNotFound(userID)
		}

		items, err := s.repos.Carts.ListItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return model.EmptyCart(cart.ID)
		}

		address, err := s.repos.Address.GetForShare(ctx, tx, addressID)
		if err != nil {
			return err
		}
		if address == nil || address.UserID != userID || !address.Active {
			return model.AddressNotFound(addressID)
		}

		ids := make([]int64, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		products, err := lockProducts(ctx, tx, s.repos.Products, ids)
		if err != nil {
			return err
		}

		// Check every line before touching any stock.
		for _, item := range items {
			p, ok := products[item.ProductID]
			if !ok {
				return model.NotFound("product", item.ProductID)
			}
			if !p.HasStock(item.Quantity) {
				s.metrics.StockRejected(ctx, "checkout")
				s.logger.Warn().
					Int64("user_id", userID).
					Int64("product_id", p.ID).
					Int("stock_quantity", p.StockQuantity).
					Int("requested", item.Quantity).
					Msg("insufficient stock at checkout")
				return model.InsufficientStock(p, item.Quantity)
			}
		}

		order = &model.Order{
			UserID:            userID,
			ShippingAddressID: address.ID,
			PromoCode:         promoCode,
			Status:            model.StatusPending,
			TotalAmount:       decimal.Zero,
			ShippingAddress:   address,
		}
		orderItems := make([]model.OrderItem, 0, len(items))
		for _, item := range items {
			p := products[item.ProductID]
			price := p.DiscountedPrice()
			order.TotalAmount = order.TotalAmount.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			p.Deduct(item.Quantity)
			if err := s.repos.Products.UpdateStock(ctx, tx, p); err != nil {
				return err
			}
			orderItems = append(orderItems, model.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				UnitPrice:   price,
			})
		}

		if err := s.repos.Orders.Create(ctx, tx, order); err != nil {
			return err
		}
		for i := range orderItems {
			orderItems[i].OrderID = order.ID
		}
		if err := s.repos.Orders.CreateItems(ctx, tx, orderItems); err != nil {
			return err
		}
		order.Items = orderItems

		return s.repos.Carts.ClearItems(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrder retrieves one of the user's orders. Orders of other users are
// reported as not found.
func (s *orderService) GetOrder(ctx context.Context, orderID, userID int64) (*model.OrderResponse, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil || order.UserID != userID {
		s.logger.Debug().Int64("order_id", orderID).Int64("user_id", userID).Msg("order not found")
		return nil, model.NotFound("order", orderID)
	}

	return model.NewOrderResponse(order), nil
}

// ListOrders returns the user's orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]*model.OrderResponse, error) {
	orders, err := s.repos.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return model.NewOrderResponses(orders), nil
}

// ListSellerOrders returns orders containing the seller's products, active first.
func (s *orderService) ListSellerOrders(ctx context.Context, sellerID int64) ([]*model.OrderResponse, error) {
	orders, err := s.repos.Orders.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller orders: %w", err)
	}
	return model.NewOrderResponses(orders), nil
}

// lockProducts locks the products in ascending ID order and indexes them by ID.
func lockProducts(ctx context.Context, tx pgx.Tx, repo repository.ProductRepository, ids []int64) (map[int64]*model.Product, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	products, err := repo.LockByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}
