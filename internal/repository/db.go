package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// checkViolation is the PostgreSQL SQLSTATE for CHECK constraint failures.
const checkViolation = "23514"

// foreignKeyViolation is the PostgreSQL SQLSTATE for foreign key failures.
const foreignKeyViolation = "23503"

// transactor implements the Transactor interface using a pgx pool.
type transactor struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewTransactor creates a Transactor that opens read-committed transactions on pool.
func NewTransactor(pool *pgxpool.Pool, logger zerolog.Logger) Transactor {
	return &transactor{
		pool:   pool,
		logger: logger.With().Str("repository", "tx").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (t *transactor) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	return hasSQLState(err, uniqueViolation)
}

// IsCheckViolation reports whether err came from a CHECK constraint.
func IsCheckViolation(err error) bool {
	return hasSQLState(err, checkViolation)
}

// IsForeignKeyViolation reports whether err came from a foreign key constraint.
func IsForeignKeyViolation(err error) bool {
	return hasSQLState(err, foreignKeyViolation)
}

func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
