package cart

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cartshare/internal/domain"
	"cartshare/pkg/logger"
)

var (
	// ErrCartNotFound is returned for cart ids that were never loaded into
	// the session. Selecting an unknown id does not fetch remotely.
	ErrCartNotFound = errors.New("cart not found in session")
	// ErrNoCartSelected is returned by item operations before a cart is
	// selected.
	ErrNoCartSelected = errors.New("no cart selected")
	// ErrAlreadyInitialized guards against double initialization of a
	// session store.
	ErrAlreadyInitialized = errors.New("store already initialized")
	// ErrNotInitialized is returned when operations run before Initialize.
	ErrNotInitialized = errors.New("store not initialized")
)

// LoadResult reports how the user's own cart was obtained: found in the
// document store, or created because no document existed yet.
type LoadResult struct {
	Cart    *domain.Cart
	Created bool
}

// Store owns the carts visible to one authenticated session: the user's own
// cart plus any carts shared with them. Exactly one cart is selected at a
// time; selection is session-local and never persisted. Mutations apply to
// in-memory state synchronously and enqueue a fire-and-forget save of the
// selected cart's items.
type Store struct {
	userID  string
	fetcher Fetcher
	sharer  Sharer
	queue   *WriteQueue
	logg    *logger.Logger
	now     func() time.Time

	mu          sync.Mutex
	carts       map[string]*domain.Cart
	selected    string
	syncing     bool
	initialized bool
}

func NewStore(userID string, fetcher Fetcher, sharer Sharer, queue *WriteQueue, logg *logger.Logger) *Store {
	return &Store{
		userID:  userID,
		fetcher: fetcher,
		sharer:  sharer,
		queue:   queue,
		logg:    logg,
		now:     time.Now,
		carts:   make(map[string]*domain.Cart),
	}
}

// Initialize loads the user's own cart and all shared-in carts, then selects
// the own cart. It must be called exactly once per session. On any fetch
// error the collection is left empty and the error is surfaced; no retry is
// attempted here.
func (s *Store) Initialize(ctx context.Context) (LoadResult, error) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return LoadResult{}, ErrAlreadyInitialized
	}
	s.syncing = true
	s.mu.Unlock()

	own, created, errOwn := s.fetcher.FetchOwn(ctx, s.userID)
	var shared []*domain.Cart
	var errShared error
	if errOwn == nil {
		shared, errShared = s.fetcher.FetchShared(ctx, s.userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = false

	if errOwn != nil {
		return LoadResult{}, errOwn
	}
	if errShared != nil {
		return LoadResult{}, errShared
	}

	s.carts[own.ID] = own
	for _, c := range shared {
		if c.ID == own.ID {
			continue
		}
		s.carts[c.ID] = c
	}
	s.selected = own.ID
	s.initialized = true

	return LoadResult{Cart: own.Clone(), Created: created}, nil
}

// Syncing reports whether a remote load is in flight.
func (s *Store) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// UserID returns the session owner.
func (s *Store) UserID() string {
	return s.userID
}

// Carts returns the visible cart collection ordered by id.
func (s *Store) Carts() []*domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Cart, 0, len(s.carts))
	for _, c := range s.carts {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SelectedID returns the id of the selected cart, or "".
func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Selected returns a copy of the selected cart.
func (s *Store) Selected() (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.selectedLocked()
	if err != nil {
		return nil, err
	}
	return cart.Clone(), nil
}

// SelectCart switches the session to a cart already present in the
// collection. Unknown ids leave the selection unchanged.
func (s *Store) SelectCart(cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[cartID]; !ok {
		return ErrCartNotFound
	}
	s.selected = cartID
	return nil
}

// AddItem adds the item to the selected cart. If an item with the same id
// already exists its quantity is incremented by exactly one and the incoming
// quantity is ignored (merge-by-increment, not merge-by-sum).
func (s *Store) AddItem(item domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.selectedLocked()
	if err != nil {
		return err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ID == item.ID {
			cart.Items[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now().UTC()
		}
		cart.Items = append(cart.Items, item)
	}
	cart.UpdatedAt = s.now().UTC()

	s.queue.Enqueue(cart.ID, cart.Items)
	return nil
}

// UpdateItemQuantity sets the quantity of an existing item. The store does
// not validate the range; callers are responsible. Unknown ids are a no-op.
func (s *Store) UpdateItemQuantity(itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.selectedLocked()
	if err != nil {
		return err
	}

	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items[i].Quantity = quantity
			cart.UpdatedAt = s.now().UTC()
			s.queue.Enqueue(cart.ID, cart.Items)
			return nil
		}
	}
	return nil
}

// RemoveItem removes the matching item; unknown ids are a no-op.
func (s *Store) RemoveItem(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.selectedLocked()
	if err != nil {
		return err
	}

	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			cart.UpdatedAt = s.now().UTC()
			s.queue.Enqueue(cart.ID, cart.Items)
			return nil
		}
	}
	return nil
}

// Clear empties the selected cart's item list. Checkout uses this as its
// terminal step; no order is recorded.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.selectedLocked()
	if err != nil {
		return err
	}

	cart.Items = []domain.CartItem{}
	cart.UpdatedAt = s.now().UTC()
	s.queue.Enqueue(cart.ID, cart.Items)
	return nil
}

// SetMembers unions the given user ids into the selected cart's member set.
// The creator is always retained. The same union semantics apply when the
// membership is persisted, so in-memory and stored membership agree.
func (s *Store) SetMembers(userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.selectedLocked()
	if err != nil {
		return err
	}

	for _, id := range userIDs {
		if id == "" || cart.HasMember(id) {
			continue
		}
		cart.MemberIDs = append(cart.MemberIDs, id)
	}
	cart.UpdatedAt = s.now().UTC()
	return nil
}

// Share persists the selected cart's membership. Unlike item writes this is
// awaited: the caller needs to know sharing took effect.
func (s *Store) Share(ctx context.Context) error {
	s.mu.Lock()
	cart, err := s.selectedLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	cartID := cart.ID
	members := append([]string(nil), cart.MemberIDs...)
	s.mu.Unlock()

	return s.sharer.AddMembers(ctx, cartID, members)
}

// Subtotal recomputes the selected cart's subtotal on every call.
func (s *Store) Subtotal() (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.selectedLocked()
	if err != nil {
		return decimal.Zero, err
	}
	return cart.Subtotal(), nil
}

func (s *Store) selectedLocked() (*domain.Cart, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	if s.selected == "" {
		return nil, ErrNoCartSelected
	}
	cart, ok := s.carts[s.selected]
	if !ok {
		return nil, ErrNoCartSelected
	}
	return cart, nil
}
