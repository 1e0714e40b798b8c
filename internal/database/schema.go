package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Schema creates every table the service needs. It is idempotent.
const Schema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'CUSTOMER'
			CHECK (role IN ('CUSTOMER', 'SELLER', 'ADMIN')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		seller_id BIGINT NOT NULL REFERENCES users(id),
		name VARCHAR(255) NOT NULL,
		brand VARCHAR(100) NOT NULL DEFAULT '',
		description VARCHAR(1000) NOT NULL DEFAULT '',
		price NUMERIC(10, 2) NOT NULL CHECK (price >= 0),
		discount_percentage INTEGER CHECK (discount_percentage BETWEEN 0 AND 100),
		stock_quantity INTEGER NOT NULL CHECK (stock_quantity >= 0),
		available BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_products_seller_id ON products(seller_id);

	CREATE TABLE IF NOT EXISTS carts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS cart_items (
		id BIGSERIAL PRIMARY KEY,
		cart_id BIGINT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		UNIQUE (cart_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS addresses (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		name VARCHAR(100) NOT NULL,
		line1 VARCHAR(255) NOT NULL,
		city VARCHAR(100) NOT NULL,
		state VARCHAR(100) NOT NULL,
		pin_code VARCHAR(6) NOT NULL,
		phone_number VARCHAR(15) NOT NULL,
		landmark VARCHAR(255),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_addresses_user_id ON addresses(user_id);

	CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		shipping_address_id BIGINT NOT NULL REFERENCES addresses(id),
		promo_code VARCHAR(10),
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING'
			CHECK (status IN ('PENDING', 'PROCESSING', 'SHIPPED', 'DELIVERED', 'CANCELLED')),
		total_amount NUMERIC(12, 2) NOT NULL CHECK (total_amount >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(10, 2) NOT NULL CHECK (unit_price >= 0)
	);
	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
	CREATE INDEX IF NOT EXISTS idx_order_items_product_id ON order_items(product_id);

	CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment VARCHAR(1000) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, product_id)
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_product_id ON reviews(product_id, created_at DESC);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		logger.Error().Err(err).Msg("failed to apply database schema")
		return fmt.Errorf("failed to apply database schema: %w", err)
	}
	logger.Info().Msg("database schema applied")
	return nil
}
