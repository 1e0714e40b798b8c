// Package promo validates checkout promo codes against gzip-compressed code
// lists loaded from local files or S3.
package promo

import (
	"context"
)

// Validator defines the interface for promo code validation.
type Validator interface {
	// Validate checks if a promo code is valid. A valid code is 8 to 10
	// characters long and appears in at least the configured number of lists.
	Validate(ctx context.Context, code string) error

	// Close releases resources held by the validator.
	Close() error
}

// CodeSet represents a set of promo codes for fast lookup.
type CodeSet interface {
	// Contains checks if a code exists in the set.
	Contains(code string) bool

	// Size returns the number of codes in the set.
	Size() int
}

// Loader defines the interface for loading promo code lists.
type Loader interface {
	// Load reads a gzipped code list and returns a CodeSet.
	Load(ctx context.Context, path string) (CodeSet, error)
}
