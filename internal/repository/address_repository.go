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

const addressColumns = `id, user_id, name, line1, city, state, pin_code, phone_number,
	landmark, active, created_at`

func scanAddress(row rowScanner, a *model.Address) error {
	return row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Line1,
		&a.City,
		&a.State,
		&a.PinCode,
		&a.Phone,
		&a.Landmark,
		&a.Active,
		&a.CreatedAt,
	)
}

// addressRepository implements the AddressRepository interface using PostgreSQL.
type addressRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool *pgxpool.Pool, logger zerolog.Logger) AddressRepository {
	return &addressRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "address").Logger(),
	}
}

// Create inserts an address and fills its ID.
func (r *addressRepository) Create(ctx context.Context, a *model.Address) error {
	query := `
		INSERT INTO addresses (user_id, name, line1, city, state, pin_code, phone_number, landmark, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		a.UserID, a.Name, a.Line1, a.City, a.State, a.PinCode, a.Phone, a.Landmark, a.Active,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", a.UserID).Msg("failed to create address")
		return fmt.Errorf("failed to create address: %w", err)
	}

	return nil
}

// GetByID retrieves an address by ID regardless of its active flag.
func (r *addressRepository) GetByID(ctx context.Context, id int64) (*model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`
	return r.get(r.pool.QueryRow(ctx, query, id), id)
}

// GetForShare reads an address under a share lock.
func (r *addressRepository) GetForShare(ctx context.Context, tx pgx.Tx, id int64) (*model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 FOR SHARE`
	return r.get(tx.QueryRow(ctx, query, id), id)
}

// LockByID locks an address row for update.
func (r *addressRepository) LockByID(ctx context.Context, tx pgx.Tx, id int64) (*model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 FOR UPDATE`
	return r.get(tx.QueryRow(ctx, query, id), id)
}

func (r *addressRepository) get(row pgx.Row, id int64) (*model.Address, error) {
	var a model.Address
	if err := scanAddress(row, &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("address_id", id).Msg("address not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("address_id", id).Msg("failed to query address")
		return nil, fmt.Errorf("failed to query address: %w", err)
	}
	return &a, nil
}

// ListActiveByUser returns the user's active addresses.
func (r *addressRepository) ListActiveByUser(ctx context.Context, userID int64) ([]model.Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = $1 AND active
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query addresses")
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	addresses := []model.Address{}
	for rows.Next() {
		var a model.Address
		if err := scanAddress(rows, &a); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan address row")
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

// HasOrders reports whether any order ships to the address.
func (r *addressRepository) HasOrders(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE shipping_address_id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Int64("address_id", id).Msg("failed to check address usage")
		return false, fmt.Errorf("failed to check address usage: %w", err)
	}
	return exists, nil
}

// Deactivate soft-deletes the address.
func (r *addressRepository) Deactivate(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, err := tx.Exec(ctx, `UPDATE addresses SET active = FALSE WHERE id = $1`, id); err != nil {
		r.logger.Error().Err(err).Int64("address_id", id).Msg("failed to deactivate address")
		return fmt.Errorf("failed to deactivate address: %w", err)
	}
	return nil
}

// Delete removes the address row.
func (r *addressRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, id); err != nil {
		r.logger.Error().Err(err).Int64("address_id", id).Msg("failed to delete address")
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return nil
}
