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

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetByUserID retrieves the user's cart.
func (r *cartRepository) GetByUserID(ctx context.Context, userID int64) (*model.Cart, error) {
	query := `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`
	return r.getCart(r.pool.QueryRow(ctx, query, userID), userID)
}

// GetOrCreateLocked creates the user's cart if needed and locks its row.
func (r *cartRepository) GetOrCreateLocked(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error) {
	insert := `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insert, userID); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to create cart")
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	cart, err := r.LockByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("cart for user %d vanished after insert", userID)
	}
	return cart, nil
}

// LockByUserID locks the user's cart row.
func (r *cartRepository) LockByUserID(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error) {
	query := `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
		FOR UPDATE
	`
	return r.getCart(tx.QueryRow(ctx, query, userID), userID)
}

func (r *cartRepository) getCart(row pgx.Row, userID int64) (*model.Cart, error) {
	var c model.Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("user_id", userID).Msg("cart not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return &c, nil
}

// ListLines returns the cart items joined with their current products.
func (r *cartRepository) ListLines(ctx context.Context, cartID int64) ([]model.CartLine, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
			p.id, p.seller_id, p.name, p.brand, p.description, p.price, p.discount_percentage,
			p.stock_quantity, p.available, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Int64("cart_id", cartID).Msg("failed to query cart lines")
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var line model.CartLine
		p := &line.Product
		err := rows.Scan(
			&line.Item.ID, &line.Item.CartID, &line.Item.ProductID, &line.Item.Quantity,
			&p.ID, &p.SellerID, &p.Name, &p.Brand, &p.Description, &p.Price, &p.DiscountPercentage,
			&p.StockQuantity, &p.Available, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart line")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart lines")
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// ListItems returns the cart items in insertion order.
func (r *cartRepository) ListItems(ctx context.Context, tx pgx.Tx, cartID int64) ([]model.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id
	`

	rows, err := tx.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Int64("cart_id", cartID).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// GetItem retrieves a cart item by ID.
func (r *cartRepository) GetItem(ctx context.Context, tx pgx.Tx, itemID int64) (*model.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity
		FROM cart_items
		WHERE id = $1
	`
	return r.getItem(tx.QueryRow(ctx, query, itemID))
}

// FindItem retrieves the cart's line for a product.
func (r *cartRepository) FindItem(ctx context.Context, tx pgx.Tx, cartID, productID int64) (*model.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`
	return r.getItem(tx.QueryRow(ctx, query, cartID, productID))
}

func (r *cartRepository) getItem(row pgx.Row) (*model.CartItem, error) {
	var item model.CartItem
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query cart item")
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}
	return &item, nil
}

// AddItem inserts a new line and fills its ID.
func (r *cartRepository) AddItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := tx.QueryRow(ctx, query, item.CartID, item.ProductID, item.Quantity).Scan(&item.ID); err != nil {
		if IsUniqueViolation(err) {
			return model.Conflict(fmt.Sprintf("product %d is already in the cart", item.ProductID))
		}
		r.logger.Error().
			Err(err).
			Int64("cart_id", item.CartID).
			Int64("product_id", item.ProductID).
			Msg("failed to add cart item")
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return r.touch(ctx, tx, item.CartID)
}

// SetItemQuantity overwrites the quantity of a line.
func (r *cartRepository) SetItemQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $2
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, itemID, quantity)
	if err != nil {
		r.logger.Error().Err(err).Int64("cart_item_id", itemID).Msg("failed to update cart item")
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("cart item", itemID)
	}
	return nil
}

// DeleteItem removes a line.
func (r *cartRepository) DeleteItem(ctx context.Context, tx pgx.Tx, itemID int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID); err != nil {
		r.logger.Error().Err(err).Int64("cart_item_id", itemID).Msg("failed to delete cart item")
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

// ClearItems removes every line of a cart.
func (r *cartRepository) ClearItems(ctx context.Context, tx pgx.Tx, cartID int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Int64("cart_id", cartID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return r.touch(ctx, tx, cartID)
}

func (r *cartRepository) touch(ctx context.Context, tx pgx.Tx, cartID int64) error {
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}
