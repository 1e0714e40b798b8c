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

// lifecycleService implements LifecycleService.
type lifecycleService struct {
	tx          repository.Transactor
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	policy      model.TransitionPolicy
	metrics     *metrics.AppMetrics
	logger      zerolog.Logger
}

// NewLifecycleService creates a lifecycle service that checks seller status
// changes against policy.
func NewLifecycleService(
	tx repository.Transactor,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	policy model.TransitionPolicy,
	m *metrics.AppMetrics,
	logger zerolog.Logger,
) LifecycleService {
	return &lifecycleService{
		tx:          tx,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		policy:      policy,
		metrics:     m,
		logger:      logger.With().Str("service", "lifecycle").Str("transitions", string(policy.Mode())).Logger(),
	}
}

// CancelOrder cancels a pending order and puts its stock back.
func (s *lifecycleService) CancelOrder(ctx context.Context, orderID, userID int64) (*model.OrderResponse, error) {
	var (
		order *model.Order
		units int
	)

	err := withTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orderRepo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil || order.UserID != userID {
			return model.NotFound("order", orderID)
		}
		if order.Status != model.StatusPending {
			s.logger.Warn().
				Int64("order_id", orderID).
				Str("status", string(order.Status)).
				Msg("cannot cancel non-pending order")
			return model.InvalidState(orderID, "only pending orders can be cancelled")
		}

		order.Items, units, err = s.restock(ctx, tx, orderID)
		if err != nil {
			return err
		}

		order.Status = model.StatusCancelled
		return s.orderRepo.UpdateStatus(ctx, tx, orderID, model.StatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCancelled(ctx, units, "customer")
	s.logger.Info().
		Int64("order_id", orderID).
		Int64("user_id", userID).
		Int("units_restocked", units).
		Msg("order cancelled")

	return model.NewOrderResponse(order), nil
}

// UpdateOrderStatus moves an order to status on behalf of a seller who sells
// at least one of its products. Moving to CANCELLED restores stock the same
// way a customer cancellation does.
func (s *lifecycleService) UpdateOrderStatus(ctx context.Context, orderID, sellerID int64, status model.OrderStatus) (*model.OrderResponse, error) {
	var (
		order *model.Order
		from  model.OrderStatus
		units int
	)

	err := withTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orderRepo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.NotFound("order", orderID)
		}
		if order.Status == model.StatusCancelled {
			return model.InvalidState(orderID, "cannot update status of a cancelled order")
		}

		owns, err := s.orderRepo.SellerHasProduct(ctx, tx, orderID, sellerID)
		if err != nil {
			return err
		}
		if !owns {
			s.logger.Warn().
				Int64("order_id", orderID).
				Int64("seller_id", sellerID).
				Msg("seller has no products in order")
			return model.Forbidden("order", orderID, "you can only update orders containing your products")
		}

		if !s.policy.Allows(order.Status, status) {
			return model.InvalidState(orderID,
				fmt.Sprintf("cannot change order status from %s to %s", order.Status, status))
		}

		if status == model.StatusCancelled {
			order.Items, units, err = s.restock(ctx, tx, orderID)
		} else {
			order.Items, err = s.orderRepo.ListItems(ctx, tx, orderID)
		}
		if err != nil {
			return err
		}

		if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, status); err != nil {
			return err
		}
		from, order.Status = order.Status, status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StatusChanged(ctx, string(from), string(status))
	if status == model.StatusCancelled {
		s.metrics.OrderCancelled(ctx, units, "seller")
	}
	s.logger.Info().
		Int64("order_id", orderID).
		Int64("seller_id", sellerID).
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("order status updated")

	return model.NewOrderResponse(order), nil
}

// restock returns every item's quantity to its product and reports the
// number of units returned.
func (s *lifecycleService) restock(ctx context.Context, tx pgx.Tx, orderID int64) ([]model.OrderItem, int, error) {
	items, err := s.orderRepo.ListItems(ctx, tx, orderID)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := lockProducts(ctx, tx, s.productRepo, ids)
	if err != nil {
		return nil, 0, err
	}

	units := 0
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, 0, model.NotFound("product", item.ProductID)
		}
		p.Restock(item.Quantity)
		if err := s.productRepo.UpdateStock(ctx, tx, p); err != nil {
			return nil, 0, err
		}
		units += item.Quantity
	}

	return items, units, nil
}
