package domain

import "time"

// Roles assigned through the userRoles collection and mirrored into
// identity-provider custom claims.
const (
	RolePending = "pending"
	RoleUser    = "user"
	RoleAdmin   = "admin"
)

// User is the profile record written on first sign-in.
type User struct {
	ID        string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRole is the role record consulted for authorization and for
// listing share candidates.
type UserRole struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func ValidRole(role string) bool {
	switch role {
	case RolePending, RoleUser, RoleAdmin:
		return true
	}
	return false
}
