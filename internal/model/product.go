package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Product represents a sellable item in the catalogue.
type Product struct {
	ID                 int64           `json:"id" db:"id"`
	SellerID           int64           `json:"sellerId" db:"seller_id"`
	Name               string          `json:"name" db:"name"`
	Brand              string          `json:"brand" db:"brand"`
	Description        string          `json:"description" db:"description"`
	Price              decimal.Decimal `json:"price" db:"price"`
	DiscountPercentage *int            `json:"discountPercentage,omitempty" db:"discount_percentage"`
	StockQuantity      int             `json:"stockQuantity" db:"stock_quantity"`
	Available          bool            `json:"available" db:"available"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`
}

// DiscountedPrice applies the discount percentage to the price, rounded to cents.
// A missing discount or one outside [1,100] leaves the price unchanged.
func (p Product) DiscountedPrice() decimal.Decimal {
	if p.DiscountPercentage == nil || *p.DiscountPercentage <= 0 || *p.DiscountPercentage > 100 {
		return p.Price
	}
	discount := p.Price.Mul(decimal.NewFromInt(int64(*p.DiscountPercentage))).Div(hundred)
	return p.Price.Sub(discount).Round(2)
}

// HasStock reports whether quantity units can be taken from stock.
func (p Product) HasStock(quantity int) bool {
	return p.StockQuantity >= quantity
}

// Deduct removes quantity units from stock. Availability is cleared exactly
// when stock reaches zero. Callers must check HasStock first.
func (p *Product) Deduct(quantity int) {
	p.StockQuantity -= quantity
	if p.StockQuantity == 0 {
		p.Available = false
	}
}

// Restock returns quantity units to stock and marks the product available
// whenever stock is positive.
func (p *Product) Restock(quantity int) {
	p.StockQuantity += quantity
	if p.StockQuantity > 0 {
		p.Available = true
	}
}

// MarshalJSON adds the live discounted price to the product payload.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	}{
		alias:           alias(p),
		DiscountedPrice: p.DiscountedPrice(),
	})
}

// ProductRequest represents the payload a seller submits to list a product.
type ProductRequest struct {
	Name               string          `json:"name"`
	Brand              string          `json:"brand"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage *int            `json:"discountPercentage,omitempty"`
	StockQuantity      int             `json:"stockQuantity"`
}

// Validate checks the request before any product is built from it.
func (r *ProductRequest) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(r.Name) == "" {
		errs.Add("name", "must not be blank")
	}
	if len(r.Description) > 1000 {
		errs.Add("description", "must be at most 1000 characters")
	}
	if r.Price.IsNegative() {
		errs.Add("price", "must not be negative")
	}
	validateDiscount(errs, r.DiscountPercentage)
	if r.StockQuantity < 0 {
		errs.Add("stockQuantity", "must not be negative")
	}
	return errs.Err()
}

// PricingRequest updates a product's price and discount. Stock is never touched.
type PricingRequest struct {
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage *int            `json:"discountPercentage,omitempty"`
}

// Validate checks the pricing values.
func (r *PricingRequest) Validate() error {
	errs := ValidationErrors{}
	if r.Price.IsNegative() {
		errs.Add("price", "must not be negative")
	}
	validateDiscount(errs, r.DiscountPercentage)
	return errs.Err()
}

func validateDiscount(errs ValidationErrors, discount *int) {
	if discount != nil && (*discount < 0 || *discount > 100) {
		errs.Add("discountPercentage", "must be between 0 and 100")
	}
}

// ToProduct builds a product owned by sellerID with availability derived
// from the initial stock.
func (r *ProductRequest) ToProduct(sellerID int64) *Product {
	return &Product{
		SellerID:           sellerID,
		Name:               strings.TrimSpace(r.Name),
		Brand:              strings.TrimSpace(r.Brand),
		Description:        r.Description,
		Price:              r.Price.Round(2),
		DiscountPercentage: r.DiscountPercentage,
		StockQuantity:      r.StockQuantity,
		Available:          r.StockQuantity > 0,
	}
}
