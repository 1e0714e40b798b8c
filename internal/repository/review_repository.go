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

const reviewColumns = `r.id, r.user_id, r.product_id, r.rating, r.comment, u.first_name,
	r.created_at, r.updated_at`

func scanReview(row rowScanner, rv *model.Review) error {
	return row.Scan(
		&rv.ID,
		&rv.UserID,
		&rv.ProductID,
		&rv.Rating,
		&rv.Comment,
		&rv.ReviewerName,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
}

// reviewRepository implements the ReviewRepository interface using PostgreSQL.
type reviewRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReviewRepository {
	return &reviewRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "review").Logger(),
	}
}

// Create inserts a review and fills its ID, timestamps and reviewer name.
func (r *reviewRepository) Create(ctx context.Context, rv *model.Review) error {
	query := `
		INSERT INTO reviews (user_id, product_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at,
			(SELECT first_name FROM users WHERE id = $1)
	`

	err := r.pool.QueryRow(ctx, query, rv.UserID, rv.ProductID, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt, &rv.ReviewerName)
	if err != nil {
		if IsUniqueViolation(err) {
			return model.Conflict(fmt.Sprintf("you have already reviewed product %d", rv.ProductID))
		}
		if IsForeignKeyViolation(err) {
			return model.NotFound("product", rv.ProductID)
		}
		r.logger.Error().
			Err(err).
			Int64("user_id", rv.UserID).
			Int64("product_id", rv.ProductID).
			Msg("failed to create review")
		return fmt.Errorf("failed to create review: %w", err)
	}

	r.logger.Debug().Int64("review_id", rv.ID).Msg("review created successfully")

	return nil
}

// GetByID retrieves a review.
func (r *reviewRepository) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1
	`

	var rv model.Review
	if err := scanReview(r.pool.QueryRow(ctx, query, id), &rv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("review_id", id).Msg("review not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("review_id", id).Msg("failed to query review")
		return nil, fmt.Errorf("failed to query review: %w", err)
	}

	return &rv, nil
}

// ListByProduct returns a product's reviews, newest first.
func (r *reviewRepository) ListByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to query reviews")
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := scanReview(rows, &rv); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan review row")
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// Update writes the rating and comment.
func (r *reviewRepository) Update(ctx context.Context, rv *model.Review) error {
	query := `
		UPDATE reviews
		SET rating = $2, comment = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query, rv.ID, rv.Rating, rv.Comment).Scan(&rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NotFound("review", rv.ID)
		}
		r.logger.Error().Err(err).Int64("review_id", rv.ID).Msg("failed to update review")
		return fmt.Errorf("failed to update review: %w", err)
	}

	return nil
}

// Delete removes a review.
func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("review_id", id).Msg("failed to delete review")
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("review", id)
	}
	return nil
}

// Summary returns the average rating and review count of a product.
func (r *reviewRepository) Summary(ctx context.Context, productID int64) (*model.RatingSummary, error) {
	query := `
		SELECT COALESCE(ROUND(AVG(rating), 2), 0), COUNT(*)
		FROM reviews
		WHERE product_id = $1
	`

	summary := &model.RatingSummary{ProductID: productID}
	if err := r.pool.QueryRow(ctx, query, productID).Scan(&summary.AverageRating, &summary.ReviewCount); err != nil {
		r.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to summarise reviews")
		return nil, fmt.Errorf("failed to summarise reviews: %w", err)
	}

	return summary, nil
}
