package model

import (
	"fmt"
	"strings"
)

// TransitionMode selects the order status graph sellers may move through.
type TransitionMode string

const (
	TransitionStrict     TransitionMode = "strict"
	TransitionPermissive TransitionMode = "permissive"
)

// ParseTransitionMode parses ORDER_TRANSITIONS values. Empty means strict.
func ParseTransitionMode(s string) (TransitionMode, error) {
	switch TransitionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", TransitionStrict:
		return TransitionStrict, nil
	case TransitionPermissive:
		return TransitionPermissive, nil
	default:
		return "", fmt.Errorf("unknown transition mode %q", s)
	}
}

var strictTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// TransitionPolicy decides which status changes are legal.
type TransitionPolicy struct {
	mode TransitionMode
}

// NewTransitionPolicy returns the policy for mode.
func NewTransitionPolicy(mode TransitionMode) TransitionPolicy {
	if mode == "" {
		mode = TransitionStrict
	}
	return TransitionPolicy{mode: mode}
}

// Mode returns the configured mode.
func (p TransitionPolicy) Mode() TransitionMode {
	return p.mode
}

// Allows reports whether an order may move from one status to another.
// Nothing leaves CANCELLED in either mode.
func (p TransitionPolicy) Allows(from, to OrderStatus) bool {
	if from == StatusCancelled {
		return false
	}
	if p.mode == TransitionPermissive {
		return true
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
