package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// userRepository implements the UserRepository interface using PostgreSQL.
type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

// Exists reports whether a user with the given ID is provisioned.
func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		r.logger.Error().Err(err).Int64("user_id", id).Msg("failed to check user")
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// Create inserts a user.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	if u.Role == "" {
		u.Role = model.RoleCustomer
	}

	query := `
		INSERT INTO users (email, first_name, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := r.pool.QueryRow(ctx, query, u.Email, u.FirstName, u.Role).Scan(&u.ID); err != nil {
		if IsUniqueViolation(err) {
			return model.Conflict(fmt.Sprintf("user with email %s already exists", u.Email))
		}
		r.logger.Error().Err(err).Str("email", u.Email).Msg("failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}
