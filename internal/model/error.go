package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string            `json:"error"`
	Message       string            `json:"message"`
	Fields        map[string]string `json:"fields,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidPromoCode   = "INVALID_PROMO_CODE"
	ErrCodeInvalidPromoLength = "INVALID_PROMO_LENGTH"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeCartNotFound       = "CART_NOT_FOUND"
	ErrCodeAddressNotFound    = "ADDRESS_NOT_FOUND"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeInsufficientStock  = "INSUFFICIENT_STOCK"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// ErrorKind classifies a domain error independently of its code.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NotFound"
	KindForbidden         ErrorKind = "Forbidden"
	KindInsufficientStock ErrorKind = "InsufficientStock"
	KindEmptyCart         ErrorKind = "EmptyCart"
	KindCartNotFound      ErrorKind = "CartNotFound"
	KindAddressNotFound   ErrorKind = "AddressNotFound"
	KindInvalidState      ErrorKind = "InvalidState"
	KindConflict          ErrorKind = "Conflict"
	KindValidation        ErrorKind = "Validation"
)

// DomainError is a caller-visible, recoverable failure.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Entity  string
	ID      int64
	Fields  map[string]string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on kind, and on code when the target carries one.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Kind sentinels for use with errors.Is.
var (
	ErrNotFound          = &DomainError{Kind: KindNotFound}
	ErrForbidden         = &DomainError{Kind: KindForbidden}
	ErrInsufficientStock = &DomainError{Kind: KindInsufficientStock}
	ErrEmptyCart         = &DomainError{Kind: KindEmptyCart}
	ErrCartNotFound      = &DomainError{Kind: KindCartNotFound}
	ErrAddressNotFound   = &DomainError{Kind: KindAddressNotFound}
	ErrInvalidState      = &DomainError{Kind: KindInvalidState}
	ErrConflict          = &DomainError{Kind: KindConflict}
	ErrValidation        = &DomainError{Kind: KindValidation}
)

// Common domain errors
var (
	ErrInvalidPromoCode   = NewDomainError(KindValidation, ErrCodeInvalidPromoCode, "Promo code is not valid")
	ErrInvalidPromoLength = NewDomainError(KindValidation, ErrCodeInvalidPromoLength, "Promo code must be between 8 and 10 characters")
	ErrInvalidQuantity    = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be greater than zero")
)

// NotFound reports a missing or invisible entity.
func NotFound(entity string, id int64) *DomainError {
	code := ErrCodeNotFound
	if entity == "product" {
		code = ErrCodeProductNotFound
	}
	return &DomainError{
		Kind:    KindNotFound,
		Code:    code,
		Message: fmt.Sprintf("%s not found with id: %d", entity, id),
		Entity:  entity,
		ID:      id,
	}
}

// Forbidden reports an attempt to act on a resource owned by someone else.
func Forbidden(entity string, id int64, message string) *DomainError {
	return &DomainError{
		Kind:    KindForbidden,
		Code:    ErrCodeForbidden,
		Message: message,
		Entity:  entity,
		ID:      id,
	}
}

// InsufficientStock names the product whose stock cannot cover the request.
func InsufficientStock(p *Product, requested int) *DomainError {
	return &DomainError{
		Kind: KindInsufficientStock,
		Code: ErrCodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for product: %s (id: %d, available: %d, requested: %d)",
			p.Name, p.ID, p.StockQuantity, requested),
		Entity: "product",
		ID:     p.ID,
	}
}

// CartNotFound reports a checkout for a user without a cart.
func CartNotFound(userID int64) *DomainError {
	return &DomainError{
		Kind:    KindCartNotFound,
		Code:    ErrCodeCartNotFound,
		Message: fmt.Sprintf("cart not found for user id: %d", userID),
		Entity:  "cart",
		ID:      userID,
	}
}

// EmptyCart reports a checkout of a cart without items.
func EmptyCart(cartID int64) *DomainError {
	return &DomainError{
		Kind:    KindEmptyCart,
		Code:    ErrCodeEmptyCart,
		Message: "cannot create an order from an empty cart",
		Entity:  "cart",
		ID:      cartID,
	}
}

// AddressNotFound reports a missing, foreign or inactive shipping address.
func AddressNotFound(addressID int64) *DomainError {
	return &DomainError{
		Kind:    KindAddressNotFound,
		Code:    ErrCodeAddressNotFound,
		Message: fmt.Sprintf("shipping address not found with id: %d", addressID),
		Entity:  "address",
		ID:      addressID,
	}
}

// InvalidState reports an illegal order status transition.
func InvalidState(orderID int64, message string) *DomainError {
	return &DomainError{
		Kind:    KindInvalidState,
		Code:    ErrCodeInvalidState,
		Message: message,
		Entity:  "order",
		ID:      orderID,
	}
}

// Conflict reports a uniqueness violation or a competing in-flight request.
func Conflict(message string) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrCodeConflict,
		Message: message,
	}
}
