package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// ParseOrderStatus converts s, case-insensitively, to a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	candidate := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, status := range OrderStatuses {
		if candidate == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// IsTerminal reports whether no further progress is expected from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Order represents a placed customer order. Its total and item prices are
// frozen at creation.
type Order struct {
	ID                int64           `json:"id" db:"id"`
	UserID            int64           `json:"userId" db:"user_id"`
	ShippingAddressID int64           `json:"shippingAddressId" db:"shipping_address_id"`
	PromoCode         *string         `json:"promoCode,omitempty" db:"promo_code"`
	Status            OrderStatus     `json:"status" db:"status"`
	TotalAmount       decimal.Decimal `json:"totalAmount" db:"total_amount"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
	Items             []OrderItem     `json:"items"`
	ShippingAddress   *Address        `json:"shippingAddress,omitempty"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"-" db:"order_id"`
	ProductID   int64           `json:"productId" db:"product_id"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
}

// Subtotal is quantity times the frozen unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CreateOrderRequest represents the request payload for checking out the cart.
type CreateOrderRequest struct {
	ShippingAddressID int64   `json:"shippingAddressId"`
	PromoCode         *string `json:"promoCode,omitempty"`
}

// Validate checks the request fields.
func (r *CreateOrderRequest) Validate() error {
	errs := ValidationErrors{}
	if r.ShippingAddressID <= 0 {
		errs.Add("shippingAddressId", "is required")
	}
	return errs.Err()
}

// UpdateOrderStatusRequest represents a seller's status change.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	ID              int64               `json:"id"`
	Status          OrderStatus         `json:"status"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	PromoCode       *string             `json:"promoCode,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	ShippingAddress *Address            `json:"shippingAddress,omitempty"`
	Items           []OrderItemResponse `json:"items"`
}

// OrderItemResponse represents one frozen order line.
type OrderItemResponse struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// NewOrderResponse builds the response view of an order.
func NewOrderResponse(order *Order) *OrderResponse {
	resp := &OrderResponse{
		ID:              order.ID,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		PromoCode:       order.PromoCode,
		CreatedAt:       order.CreatedAt,
		ShippingAddress: order.ShippingAddress,
		Items:           make([]OrderItemResponse, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal(),
		})
	}
	return resp
}

// NewOrderResponses builds response views for a list of orders.
func NewOrderResponses(orders []Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}
