package identity

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid identity token")

// User is the authenticated principal attached to a request. Role comes
// from the provider's custom claims and may lag behind the userRoles
// document until the user refreshes their token.
type User struct {
	UID   string
	Name  string
	Email string
	Role  string
}

// Verifier validates a bearer ID token and resolves the user behind it.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*User, error)
}

// ClaimWriter mirrors role changes into provider custom claims so they are
// embedded in future ID tokens.
type ClaimWriter interface {
	SetRoleClaim(ctx context.Context, uid, role string) error
}
