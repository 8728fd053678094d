package user

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"  // Can check people and visitors out
	RoleViewer Role = "viewer" // Read-only dashboard access
)

// User is a dashboard operator.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash *string
	GoogleID     *string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin checks if the operator may perform manual checkouts
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
