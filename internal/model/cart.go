package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-user basket. It is created lazily and never deleted.
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"-" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItem is a line in a cart.
type CartItem struct {
	ID        int64 `json:"id" db:"id"`
	CartID    int64 `json:"-" db:"cart_id"`
	ProductID int64 `json:"productId" db:"product_id"`
	Quantity  int   `json:"quantity" db:"quantity"`
}

// CartLine pairs a cart item with the product as it is now.
type CartLine struct {
	Item    CartItem
	Product Product
}

// Subtotal is quantity times the live discounted price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.DiscountedPrice().Mul(decimal.NewFromInt(int64(l.Item.Quantity)))
}

// AddToCartRequest represents the request payload for adding a product to the cart.
type AddToCartRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Validate checks the request fields.
func (r *AddToCartRequest) Validate() error {
	errs := ValidationErrors{}
	if r.ProductID <= 0 {
		errs.Add("productId", "is required")
	}
	if r.Quantity < 1 {
		errs.Add("quantity", "must be at least 1")
	}
	return errs.Err()
}

// UpdateCartItemRequest sets a line to an absolute quantity.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse represents the cart as shown to its owner. Prices are live.
type CartResponse struct {
	ID         int64              `json:"id"`
	Items      []CartItemResponse `json:"items"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
}

// CartItemResponse represents one line of a cart response.
type CartItemResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Available   bool            `json:"available"`
}

// NewCartResponse computes the cart view from current product prices.
func NewCartResponse(cart *Cart, lines []CartLine) *CartResponse {
	resp := &CartResponse{
		ID:         cart.ID,
		Items:      make([]CartItemResponse, 0, len(lines)),
		TotalPrice: decimal.Zero,
	}
	for _, line := range lines {
		subtotal := line.Subtotal()
		resp.Items = append(resp.Items, CartItemResponse{
			ID:          line.Item.ID,
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			Quantity:    line.Item.Quantity,
			UnitPrice:   line.Product.DiscountedPrice(),
			Subtotal:    subtotal,
			Available:   line.Product.Available,
		})
		resp.TotalPrice = resp.TotalPrice.Add(subtotal)
	}
	return resp
}
