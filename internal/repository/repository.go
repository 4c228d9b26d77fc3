package repository

import (
	"context"
	"errors"
	"time"

	"cartshare/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrUserNotFound = errors.New("user not found")
)

// CartRepository defines the document-store operations the cart layer needs.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	// GetCart returns the cart document keyed by cartID, or ErrCartNotFound.
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	// CreateCart inserts an empty cart owned by userID.
	CreateCart(ctx context.Context, userID string) (*domain.Cart, error)
	// ListMemberCarts returns every cart whose member set contains userID.
	ListMemberCarts(ctx context.Context, userID string) ([]*domain.Cart, error)
	// SaveItems upserts the items array of the cart document, merging with
	// existing fields. Membership is never clobbered.
	SaveItems(ctx context.Context, cartID string, items []domain.CartItem) error
	// AddMembers unions userIDs into the cart's member set.
	AddMembers(ctx context.Context, cartID string, userIDs []string) error
	// ClearItems empties the cart's item list.
	ClearItems(ctx context.Context, cartID string) error
	// RemoveExpiredItems pulls items added before cutoff from every cart and
	// reports how many carts were modified.
	RemoveExpiredItems(ctx context.Context, cutoff time.Time) (int64, error)
}

// RoleRepository manages the users and userRoles collections.
type RoleRepository interface {
	// EnsureUser writes the profile and a default pending role on first
	// sight of a uid; it is a no-op for known users. It reports whether the
	// records were created.
	EnsureUser(ctx context.Context, user domain.User) (bool, error)
	GetRole(ctx context.Context, userID string) (*domain.UserRole, error)
	SetRole(ctx context.Context, userID, role string) error
	// ListMembers returns share candidates: every role record with a
	// display name.
	ListMembers(ctx context.Context) ([]domain.UserRole, error)
}

// ProductRepository serves the paginated catalog.
type ProductRepository interface {
	// ListPage returns up to limit products ordered by name, starting
	// after the given name cursor; an empty cursor starts from the top.
	ListPage(ctx context.Context, afterName string, limit int) ([]domain.Product, error)
}
