package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const productColumns = `id, seller_id, name, brand, description, price, discount_percentage,
	stock_quantity, available, created_at, updated_at`

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, p *model.Product) error {
	return row.Scan(
		&p.ID,
		&p.SellerID,
		&p.Name,
		&p.Brand,
		&p.Description,
		&p.Price,
		&p.DiscountPercentage,
		&p.StockQuantity,
		&p.Available,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetAll retrieves all products with pagination support.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return r.collect(rows)
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := scanProduct(r.pool.QueryRow(ctx, query, id), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}

	return r.collect(rows)
}

// Create inserts a product and fills its ID and timestamps.
func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (seller_id, name, brand, description, price, discount_percentage,
			stock_quantity, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.SellerID, p.Name, p.Brand, p.Description, p.Price, p.DiscountPercentage,
		p.StockQuantity, p.Available,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Int64("seller_id", p.SellerID).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Debug().Int64("product_id", p.ID).Msg("product created successfully")

	return nil
}

// UpdatePricing sets price and discount only.
func (r *productRepository) UpdatePricing(ctx context.Context, id int64, price decimal.Decimal, discount *int) (*model.Product, error) {
	query := `
		UPDATE products
		SET price = $2, discount_percentage = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	var p model.Product
	err := scanProduct(r.pool.QueryRow(ctx, query, id, price, discount), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to update product pricing")
		return nil, fmt.Errorf("failed to update product pricing: %w", err)
	}

	return &p, nil
}

// LockByIDs selects the given products FOR UPDATE in ascending ID order so
// concurrent checkouts acquire row locks in the same order.
func (r *productRepository) LockByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to lock products")
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	return r.collect(rows)
}

// UpdateStock writes the stock quantity and availability of a locked product.
func (r *productRepository) UpdateStock(ctx context.Context, tx pgx.Tx, p *model.Product) error {
	query := `
		UPDATE products
		SET stock_quantity = $2, available = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, p.ID, p.StockQuantity, p.Available)
	if err != nil {
		if IsCheckViolation(err) {
			return model.Conflict(fmt.Sprintf("stock for product %d cannot become %d", p.ID, p.StockQuantity))
		}
		r.logger.Error().
			Err(err).
			Int64("product_id", p.ID).
			Int("stock_quantity", p.StockQuantity).
			Msg("failed to update product stock")
		return fmt.Errorf("failed to update product stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("product", p.ID)
	}

	return nil
}

// Search matches keyword case-insensitively against name, brand and description.
func (r *productRepository) Search(ctx context.Context, keyword string, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE name ILIKE $1 OR brand ILIKE $1 OR description ILIKE $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, likePattern(keyword), limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("keyword", keyword).Msg("failed to search products")
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	return r.collect(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps keyword for a substring LIKE match with wildcards escaped.
func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

// HasOrders reports whether any order item references the product.
func (r *productRepository) HasOrders(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to check product usage")
		return false, fmt.Errorf("failed to check product usage: %w", err)
	}
	return exists, nil
}

// Delete removes the product. Cart lines and reviews of it go with it.
func (r *productRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return model.Conflict(fmt.Sprintf("product %d has been ordered and cannot be deleted", id))
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("product", id)
	}

	r.logger.Debug().Int64("product_id", id).Msg("product deleted")
	return nil
}

func (r *productRepository) collect(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
