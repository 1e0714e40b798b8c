package service

import (
	"context"
	"fmt"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// reviewService implements ReviewService.
type reviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	metrics     *metrics.AppMetrics
	logger      zerolog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	m *metrics.AppMetrics,
	logger zerolog.Logger,
) ReviewService {
	return &reviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		metrics:     m,
		logger:      logger.With().Str("service", "review").Logger(),
	}
}

func (s *reviewService) Add(ctx context.Context, userID, productID int64, req *model.ReviewRequest) (*model.ReviewResponse, error) {
	if req == nil {
		return nil, model.ValidationErrors{"body": "is required"}.Err()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ensureUser(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	review := req.ToReview(userID, productID)
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}

	s.metrics.ReviewPosted(ctx, review.Rating)
	s.logger.Info().
		Int64("review_id", review.ID).
		Int64("product_id", productID).
		Int64("user_id", userID).
		Int("rating", review.Rating).
		Msg("review posted")

	return model.NewReviewResponse(review, userID), nil
}

func (s *reviewService) Update(ctx context.Context, userID, reviewID int64, req *model.ReviewRequest) (*model.ReviewResponse, error) {
	if req == nil {
		return nil, model.ValidationErrors{"body": "is required"}.Err()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	review, err := s.ownedReview(ctx, userID, reviewID, "you can only update your own reviews")
	if err != nil {
		return nil, err
	}

	changes := req.ToReview(userID, review.ProductID)
	review.Rating = changes.Rating
	review.Comment = changes.Comment
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, err
	}

	s.logger.Debug().Int64("review_id", reviewID).Int("rating", review.Rating).Msg("review updated")
	return model.NewReviewResponse(review, userID), nil
}

func (s *reviewService) Delete(ctx context.Context, userID, reviewID int64) error {
	if _, err := s.ownedReview(ctx, userID, reviewID, "you can only delete your own reviews"); err != nil {
		return err
	}
	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return err
	}

	s.logger.Info().Int64("review_id", reviewID).Int64("user_id", userID).Msg("review deleted")
	return nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID, viewerID int64) ([]*model.ReviewResponse, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return model.NewReviewResponses(reviews, viewerID), nil
}

func (s *reviewService) Rating(ctx context.Context, productID int64) (*model.RatingSummary, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	summary, err := s.reviewRepo.Summary(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise reviews: %w", err)
	}
	return summary, nil
}

func (s *reviewService) ensureProduct(ctx context.Context, productID int64) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return model.NotFound("product", productID)
	}
	return nil
}

// ownedReview loads a review and checks that userID wrote it.
func (s *reviewService) ownedReview(ctx context.Context, userID, reviewID int64, denied string) (*model.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	if review == nil {
		return nil, model.NotFound("review", reviewID)
	}
	if review.UserID != userID {
		s.logger.Warn().
			Int64("review_id", reviewID).
			Int64("user_id", userID).
			Msg("user does not own review")
		return nil, model.Forbidden("review", reviewID, denied)
	}
	return review, nil
}
