package model

import (
	"strings"
	"time"
)

// Address is a user's shipping address. Inactive addresses are hidden and
// cannot be shipped to.
type Address struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"-" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Line1     string    `json:"line1" db:"line1"`
	City      string    `json:"city" db:"city"`
	State     string    `json:"state" db:"state"`
	PinCode   string    `json:"pinCode" db:"pin_code"`
	Phone     string    `json:"phoneNumber" db:"phone_number"`
	Landmark  *string   `json:"landmark,omitempty" db:"landmark"`
	Active    bool      `json:"-" db:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AddressRequest represents the payload for adding an address.
type AddressRequest struct {
	Name     string  `json:"name"`
	Line1    string  `json:"line1"`
	City     string  `json:"city"`
	State    string  `json:"state"`
	PinCode  string  `json:"pinCode"`
	Phone    string  `json:"phoneNumber"`
	Landmark *string `json:"landmark,omitempty"`
}

// Validate collects every failing field.
func (r *AddressRequest) Validate() error {
	errs := ValidationErrors{}
	required := map[string]string{
		"name":  r.Name,
		"line1": r.Line1,
		"city":  r.City,
		"state": r.State,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			errs.Add(field, "is required")
		}
	}
	if len(r.PinCode) != 6 || !isDigits(r.PinCode) {
		errs.Add("pinCode", "must be 6 digits")
	}
	if len(r.Phone) < 10 || len(r.Phone) > 15 || !isDigits(r.Phone) {
		errs.Add("phoneNumber", "must be 10 to 15 digits")
	}
	return errs.Err()
}

// ToAddress builds an active address owned by userID.
func (r *AddressRequest) ToAddress(userID int64) *Address {
	return &Address{
		UserID:   userID,
		Name:     strings.TrimSpace(r.Name),
		Line1:    strings.TrimSpace(r.Line1),
		City:     strings.TrimSpace(r.City),
		State:    strings.TrimSpace(r.State),
		PinCode:  r.PinCode,
		Phone:    r.Phone,
		Landmark: r.Landmark,
		Active:   true,
	}
}
