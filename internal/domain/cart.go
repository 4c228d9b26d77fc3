package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is a named collection of line items plus the set of users allowed
// to view and edit it. The cart id equals the owning user's id, so any
// member can resolve a shared cart through its owner.
type Cart struct {
	ID        string     `json:"cart_id"`
	Items     []CartItem `json:"items"`
	MemberIDs []string   `json:"member_user_ids"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

// OwnerID returns the creator of the cart. The creator is always a member.
func (c *Cart) OwnerID() string {
	return c.ID
}

// Subtotal is derived on every call, never stored.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// HasMember reports whether userID may view and edit the cart.
func (c *Cart) HasMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = CloneItems(c.Items)
	out.MemberIDs = append([]string(nil), c.MemberIDs...)
	return &out
}

func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	return append([]CartItem(nil), items...)
}

// NewCart creates an empty cart owned by userID.
func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		ID:        userID,
		Items:     []CartItem{},
		MemberIDs: []string{userID},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
