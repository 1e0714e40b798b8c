package model

// UserRole is the coarse role of a provisioned user.
type UserRole string

const (
	RoleCustomer UserRole = "CUSTOMER"
	RoleSeller   UserRole = "SELLER"
	RoleAdmin    UserRole = "ADMIN"
)

// User is provisioned outside this service; only its id and existence matter here.
type User struct {
	ID        int64    `json:"id" db:"id"`
	Email     string   `json:"email" db:"email"`
	FirstName string   `json:"firstName" db:"first_name"`
	Role      UserRole `json:"role" db:"role"`
}
