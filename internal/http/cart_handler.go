package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"cartshare/internal/cart"
	"cartshare/internal/domain"
	"cartshare/pkg/logger"
)

// CartSessions resolves the per-user session store.
// Consumers define this interface, not the session manager.
type CartSessions interface {
	Get(ctx context.Context, userID string) (*cart.Store, error)
	Release(userID string)
}

// CheckoutPublisher emits checkout-completed events.
type CheckoutPublisher interface {
	PublishCheckoutCompleted(ctx context.Context, userID, cartID string) error
}

type CartHandler struct {
	sessions  CartSessions
	publisher CheckoutPublisher
	validate  *validator.Validate
	logg      *logger.Logger
	timeout   time.Duration
}

func NewCartHandler(sessions CartSessions, publisher CheckoutPublisher, logg *logger.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions:  sessions,
		publisher: publisher,
		validate:  validator.New(),
		logg:      logg,
		timeout:   timeout,
	}
}

type AddItemRequestDTO struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"min=1,max=100"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity" validate:"min=1,max=100"`
}

type SetMembersRequestDTO struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
}

type CartViewDTO struct {
	CartID    string            `json:"cart_id"`
	OwnerID   string            `json:"owner_id"`
	Items     []domain.CartItem `json:"items"`
	MemberIDs []string          `json:"member_user_ids"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

type CartCollectionDTO struct {
	Carts          []CartViewDTO `json:"carts"`
	SelectedCartID string        `json:"selected_cart_id,omitempty"`
}

func cartView(c *domain.Cart) CartViewDTO {
	items := c.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartViewDTO{
		CartID:    c.ID,
		OwnerID:   c.OwnerID(),
		Items:     items,
		MemberIDs: c.MemberIDs,
		Subtotal:  c.Subtotal(),
	}
}

func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*cart.Store, string, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, "", false
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, err := h.sessions.Get(ctx, user.UID)
	if err != nil {
		h.logg.Error(r.Context(), "failed to load cart session", err)
		respondError(w, http.StatusBadGateway, "session_load_failed", "could not load cart state")
		return nil, "", false
	}
	return store, user.UID, true
}

// ListCarts returns the visible cart collection and the selected id.
func (h *CartHandler) ListCarts(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}

	carts := store.Carts()
	views := make([]CartViewDTO, len(carts))
	for i, c := range carts {
		views[i] = cartView(c)
	}

	respondJSON(w, http.StatusOK, CartCollectionDTO{
		Carts:          views,
		SelectedCartID: store.SelectedID(),
	})
}

// SelectCart switches the session to a previously loaded cart.
func (h *CartHandler) SelectCart(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}

	cartID := chi.URLParam(r, "cartID")
	if err := store.SelectCart(cartID); err != nil {
		mapStoreError(w, err)
		return
	}
	h.respondSelected(w, store, http.StatusOK)
}

// GetCart returns the selected cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	h.respondSelected(w, store, http.StatusOK)
}

// AddItem appends an item to the selected cart, or increments the quantity
// of an existing item with the same id.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.UnitPrice.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_unit_price", "unit_price must not be negative")
		return
	}

	err := store.AddItem(domain.CartItem{
		ID:        req.ID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
	})
	if err != nil {
		mapStoreError(w, err)
		return
	}
	h.respondSelected(w, store, http.StatusCreated)
}

// UpdateQuantity sets an existing item's quantity; unknown ids are a no-op.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 100")
		return
	}

	if err := store.UpdateItemQuantity(itemID, req.Quantity); err != nil {
		mapStoreError(w, err)
		return
	}
	h.respondSelected(w, store, http.StatusOK)
}

// RemoveItem drops an item from the selected cart; unknown ids are a no-op.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id is required")
		return
	}

	if err := store.RemoveItem(itemID); err != nil {
		mapStoreError(w, err)
		return
	}
	h.respondSelected(w, store, http.StatusOK)
}

// ClearCart empties the selected cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := store.Clear(); err != nil {
		mapStoreError(w, err)
		return
	}
	h.respondSelected(w, store, http.StatusOK)
}

// Checkout clears the selected cart and announces the checkout. No order is
// recorded.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	store, userID, ok := h.store(w, r)
	if !ok {
		return
	}

	cartID := store.SelectedID()
	if err := store.Clear(); err != nil {
		mapStoreError(w, err)
		return
	}

	// The event drives durable cleanup; the user's checkout already
	// succeeded, so a publish failure is logged, not surfaced.
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.publisher.PublishCheckoutCompleted(ctx, userID, cartID); err != nil {
		h.logg.Error(h.logg.WithCartID(r.Context(), cartID), "failed to publish checkout event", err)
	}

	h.respondSelected(w, store, http.StatusOK)
}

// SetMembers unions user ids into the selected cart's member set in memory.
func (h *CartHandler) SetMembers(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}

	var req SetMembersRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := store.SetMembers(req.UserIDs); err != nil {
		mapStoreError(w, err)
		return
	}
	h.respondSelected(w, store, http.StatusOK)
}

// Share persists the selected cart's membership.
func (h *CartHandler) Share(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := store.Share(ctx); err != nil {
		h.logg.Error(r.Context(), "failed to persist cart membership", err)
		mapStoreError(w, err)
		return
	}
	h.respondSelected(w, store, http.StatusOK)
}

// Logout releases the user's session store.
func (h *CartHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	h.sessions.Release(user.UID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) respondSelected(w http.ResponseWriter, store *cart.Store, status int) {
	selected, err := store.Selected()
	if err != nil {
		mapStoreError(w, err)
		return
	}
	respondJSON(w, status, cartView(selected))
}
