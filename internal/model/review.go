package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	minRating        = 1
	maxRating        = 5
	maxCommentLength = 1000
)

// Review is a user's rating of a product. A user reviews a product at most once.
type Review struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"userId" db:"user_id"`
	ProductID    int64     `json:"productId" db:"product_id"`
	Rating       int       `json:"rating" db:"rating"`
	Comment      string    `json:"comment" db:"comment"`
	ReviewerName string    `json:"-" db:"first_name"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// ReviewRequest is the payload for creating or updating a review.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Validate checks the rating range and comment length.
func (r *ReviewRequest) Validate() error {
	errs := ValidationErrors{}
	if r.Rating < minRating || r.Rating > maxRating {
		errs.Add("rating", "must be between 1 and 5")
	}
	if utf8.RuneCountInString(r.Comment) > maxCommentLength {
		errs.Add("comment", "must be at most 1000 characters")
	}
	return errs.Err()
}

// ToReview builds a review of productID written by userID.
func (r *ReviewRequest) ToReview(userID, productID int64) *Review {
	return &Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    r.Rating,
		Comment:   strings.TrimSpace(r.Comment),
	}
}

// Reviewer is the public part of a review's author.
type Reviewer struct {
	FirstName string `json:"firstName"`
}

// ReviewResponse is a review as shown to a viewer.
type ReviewResponse struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"productId"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	User        Reviewer  `json:"user"`
	OwnedByUser bool      `json:"ownedByUser"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewReviewResponse builds the view of r for viewerID. A zero viewer is anonymous.
func NewReviewResponse(r *Review, viewerID int64) *ReviewResponse {
	return &ReviewResponse{
		ID:          r.ID,
		ProductID:   r.ProductID,
		Rating:      r.Rating,
		Comment:     r.Comment,
		User:        Reviewer{FirstName: r.ReviewerName},
		OwnedByUser: viewerID != 0 && r.UserID == viewerID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewReviewResponses converts a slice of reviews for viewerID.
func NewReviewResponses(reviews []Review, viewerID int64) []*ReviewResponse {
	out := make([]*ReviewResponse, len(reviews))
	for i := range reviews {
		out[i] = NewReviewResponse(&reviews[i], viewerID)
	}
	return out
}

// RatingSummary aggregates the reviews of a product. The average is zero
// when the product has no reviews.
type RatingSummary struct {
	ProductID     int64           `json:"productId"`
	AverageRating decimal.Decimal `json:"averageRating"`
	ReviewCount   int             `json:"reviewCount"`
}
