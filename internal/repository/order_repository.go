package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `o.id, o.user_id, o.shipping_address_id, o.promo_code, o.status,
	o.total_amount, o.created_at, o.updated_at`

func scanOrder(row rowScanner, o *model.Order) error {
	return row.Scan(
		&o.ID,
		&o.UserID,
		&o.ShippingAddressID,
		&o.PromoCode,
		&o.Status,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create inserts a new order within the provided transaction.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (user_id, shipping_address_id, promo_code, status, total_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.UserID, order.ShippingAddressID, order.PromoCode, order.Status, order.TotalAmount,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("user_id", order.UserID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Int64("order_id", order.ID).
		Msg("order created successfully")

	return nil
}

// CreateItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if err := results.QueryRow().Scan(&items[i].ID); err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", items[i].OrderID).
				Int64("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items and address.
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `
		SELECT ` + orderColumns + `,
			a.id, a.user_id, a.name, a.line1, a.city, a.state, a.pin_code, a.phone_number,
			a.landmark, a.active, a.created_at
		FROM orders o
		JOIN addresses a ON a.id = o.shipping_address_id
		WHERE o.id = $1
	`

	var order model.Order
	var addr model.Address
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID, &order.UserID, &order.ShippingAddressID, &order.PromoCode, &order.Status,
		&order.TotalAmount, &order.CreatedAt, &order.UpdatedAt,
		&addr.ID, &addr.UserID, &addr.Name, &addr.Line1, &addr.City, &addr.State, &addr.PinCode,
		&addr.Phone, &addr.Landmark, &addr.Active, &addr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	order.ShippingAddress = &addr

	orders := []model.Order{order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// LockByID locks an order row.
func (r *orderRepository) LockByID(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.id = $1
		FOR UPDATE
	`

	var order model.Order
	if err := scanOrder(tx.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	return &order, nil
}

// ListItems returns the items of an order.
func (r *orderRepository) ListItems(ctx context.Context, tx pgx.Tx, orderID int64) ([]model.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", orderID).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	items, err := collectItems(rows)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to read order items")
		return nil, err
	}
	return items, nil
}

// ListByUser returns a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC
	`
	return r.listOrders(ctx, query, userID)
}

// ListBySeller returns orders containing any of the seller's products.
func (r *orderRepository) ListBySeller(ctx context.Context, sellerID int64) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.seller_id = $1
		)
		ORDER BY
			CASE WHEN o.status IN ('CANCELLED', 'DELIVERED') THEN 1 ELSE 0 END,
			o.created_at DESC,
			o.id DESC
	`
	return r.listOrders(ctx, query, sellerID)
}

func (r *orderRepository) listOrders(ctx context.Context, query string, ownerID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of every order in one query.
func (r *orderRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []model.OrderItem{}
	}

	query := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query order items")
		return fmt.Errorf("failed to query order items: %w", err)
	}

	items, err := collectItems(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read order items")
		return err
	}

	for _, item := range items {
		o := &orders[index[item.OrderID]]
		o.Items = append(o.Items, item)
	}
	return nil
}

func collectItems(rows pgx.Rows) ([]model.OrderItem, error) {
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// SellerHasProduct reports whether the order contains a product owned by the seller.
func (r *orderRepository) SellerHasProduct(ctx context.Context, tx pgx.Tx, orderID, sellerID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = $1 AND p.seller_id = $2
		)
	`

	var owns bool
	if err := tx.QueryRow(ctx, query, orderID, sellerID).Scan(&owns); err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", orderID).
			Int64("seller_id", sellerID).
			Msg("failed to check seller ownership")
		return false, fmt.Errorf("failed to check seller ownership: %w", err)
	}
	return owns, nil
}

// UpdateStatus sets the status of a locked order.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status model.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, orderID, status)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", orderID).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("order", orderID)
	}
	return nil
}
