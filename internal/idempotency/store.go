// Package idempotency remembers which order a checkout Idempotency-Key
// produced so a retried request returns the same order.
package idempotency

import (
	"context"
	"errors"
)

// ErrInProgress is returned when another request holding the same key has
// not finished yet.
var ErrInProgress = errors.New("a checkout with this idempotency key is already in progress")

// Store records checkout outcomes by user and key.
type Store interface {
	// Begin claims key for userID. When an earlier checkout with the key
	// completed, its order ID is returned and nothing is claimed. A zero ID
	// with a nil error means the caller now holds the claim.
	Begin(ctx context.Context, userID int64, key string) (int64, error)

	// Complete records the order created under a claimed key.
	Complete(ctx context.Context, userID int64, key string, orderID int64) error

	// Release drops a claim after a failed checkout so the key can be retried.
	Release(ctx context.Context, userID int64, key string) error

	// Close releases the store's connections.
	Close() error
}

// nopStore is used when no idempotency backend is configured.
type nopStore struct{}

// NewNopStore returns a Store that never remembers anything.
func NewNopStore() Store {
	return nopStore{}
}

func (nopStore) Begin(context.Context, int64, string) (int64, error)   { return 0, nil }
func (nopStore) Complete(context.Context, int64, string, int64) error { return nil }
func (nopStore) Release(context.Context, int64, string) error         { return nil }
func (nopStore) Close() error                                         { return nil }
