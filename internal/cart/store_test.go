package cart

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartshare/internal/domain"
	"cartshare/pkg/logger"
)

type fakeFetcher struct {
	own       *domain.Cart
	created   bool
	shared    []*domain.Cart
	errOwn    error
	errShared error
	ownCalls  int
}

func (f *fakeFetcher) FetchOwn(context.Context, string) (*domain.Cart, bool, error) {
	f.ownCalls++
	if f.errOwn != nil {
		return nil, false, f.errOwn
	}
	return f.own.Clone(), f.created, nil
}

func (f *fakeFetcher) FetchShared(context.Context, string) ([]*domain.Cart, error) {
	if f.errShared != nil {
		return nil, f.errShared
	}
	return f.shared, nil
}

type savedWrite struct {
	cartID string
	items  []domain.CartItem
}

type fakeSaver struct {
	mu     sync.Mutex
	writes []savedWrite
	err    error
}

func (f *fakeSaver) SaveItems(_ context.Context, cartID string, items []domain.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, savedWrite{cartID: cartID, items: items})
	return nil
}

func (f *fakeSaver) last() (savedWrite, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return savedWrite{}, false
	}
	return f.writes[len(f.writes)-1], true
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

type fakeSharer struct {
	mu      sync.Mutex
	cartID  string
	members []string
	err     error
}

func (f *fakeSharer) AddMembers(_ context.Context, cartID string, userIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cartID = cartID
	f.members = append([]string(nil), userIDs...)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestStore(t *testing.T, fetcher *fakeFetcher) (*Store, *fakeSaver, *fakeSharer) {
	t.Helper()
	saver := &fakeSaver{}
	sharer := &fakeSharer{}
	queue := NewWriteQueue(saver, time.Second, testLogger())
	store := NewStore("u1", fetcher, sharer, queue, testLogger())
	return store, saver, sharer
}

func initializedStore(t *testing.T) (*Store, *fakeSaver, *fakeSharer) {
	t.Helper()
	fetcher := &fakeFetcher{own: domain.NewCart("u1", time.Now())}
	store, saver, sharer := newTestStore(t, fetcher)
	_, err := store.Initialize(context.Background())
	require.NoError(t, err)
	return store, saver, sharer
}

func item(id string, price float64, qty int) domain.CartItem {
	return domain.CartItem{
		ID:        id,
		Name:      "item " + id,
		UnitPrice: decimal.NewFromFloat(price),
		Quantity:  qty,
	}
}

func TestInitialize_SelectsOwnCart(t *testing.T) {
	fetcher := &fakeFetcher{
		own: domain.NewCart("u1", time.Now()),
		shared: []*domain.Cart{
			{ID: "u2", MemberIDs: []string{"u2", "u1"}},
		},
	}
	store, _, _ := newTestStore(t, fetcher)

	result, err := store.Initialize(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "u1", store.SelectedID())
	assert.Len(t, store.Carts(), 2)
	assert.False(t, store.Syncing())
}

func TestInitialize_ReportsCreated(t *testing.T) {
	fetcher := &fakeFetcher{own: domain.NewCart("u1", time.Now()), created: true}
	store, _, _ := newTestStore(t, fetcher)

	result, err := store.Initialize(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, []string{"u1"}, result.Cart.MemberIDs)
}

func TestInitialize_FetchErrorLeavesStateEmpty(t *testing.T) {
	fetcher := &fakeFetcher{errOwn: errors.New("store down")}
	store, _, _ := newTestStore(t, fetcher)

	_, err := store.Initialize(context.Background())

	require.Error(t, err)
	assert.Empty(t, store.Carts())
	assert.Empty(t, store.SelectedID())
	assert.False(t, store.Syncing())
}

func TestInitialize_Twice(t *testing.T) {
	store, _, _ := initializedStore(t)

	_, err := store.Initialize(context.Background())

	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestAddItem_DistinctIDs(t *testing.T) {
	store, _, _ := initializedStore(t)

	ids := []string{"a", "b", "c"}
	adds := map[string]int{"a": 3, "b": 1, "c": 2}
	for _, id := range ids {
		for i := 0; i < adds[id]; i++ {
			require.NoError(t, store.AddItem(item(id, 1, 1)))
		}
	}

	selected, err := store.Selected()
	require.NoError(t, err)
	require.Len(t, selected.Items, len(ids))
	for _, it := range selected.Items {
		assert.Equal(t, adds[it.ID], it.Quantity, "quantity for %s", it.ID)
	}
}

func TestAddItem_ExistingIncrementsByOne(t *testing.T) {
	store, _, _ := initializedStore(t)

	require.NoError(t, store.AddItem(item("a", 10, 1)))
	// The incoming quantity is ignored on merge.
	require.NoError(t, store.AddItem(item("a", 10, 5)))

	selected, err := store.Selected()
	require.NoError(t, err)
	require.Len(t, selected.Items, 1)
	assert.Equal(t, 2, selected.Items[0].Quantity)

	subtotal, err := store.Subtotal()
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(decimal.NewFromInt(20)), "subtotal = %s", subtotal)
}

func TestAddItem_BeforeInitialize(t *testing.T) {
	fetcher := &fakeFetcher{own: domain.NewCart("u1", time.Now())}
	store, _, _ := newTestStore(t, fetcher)

	err := store.AddItem(item("a", 1, 1))

	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSubtotal_TracksMutations(t *testing.T) {
	store, _, _ := initializedStore(t)

	require.NoError(t, store.AddItem(item("a", 2.50, 2)))
	require.NoError(t, store.AddItem(item("b", 1.25, 4)))

	subtotal, err := store.Subtotal()
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(decimal.NewFromInt(10)), "subtotal = %s", subtotal)

	require.NoError(t, store.UpdateItemQuantity("b", 8))
	subtotal, err = store.Subtotal()
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(decimal.NewFromInt(15)), "subtotal = %s", subtotal)

	require.NoError(t, store.RemoveItem("a"))
	subtotal, err = store.Subtotal()
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(decimal.NewFromInt(10)), "subtotal = %s", subtotal)
}

func TestUpdateItemQuantity_AbsentIsNoOp(t *testing.T) {
	store, saver, _ := initializedStore(t)

	require.NoError(t, store.AddItem(item("a", 1, 1)))
	require.NoError(t, store.UpdateItemQuantity("missing", 5))

	selected, err := store.Selected()
	require.NoError(t, err)
	require.Len(t, selected.Items, 1)
	assert.Equal(t, 1, selected.Items[0].Quantity)

	// The no-op must not schedule a save.
	require.NoError(t, store.queue.Flush(context.Background()))
	assert.Equal(t, 1, saver.count())
}

func TestRemoveItem_AbsentIsNoOp(t *testing.T) {
	store, saver, _ := initializedStore(t)

	require.NoError(t, store.AddItem(item("a", 1, 1)))
	require.NoError(t, store.RemoveItem("missing"))

	selected, err := store.Selected()
	require.NoError(t, err)
	assert.Len(t, selected.Items, 1)

	require.NoError(t, store.queue.Flush(context.Background()))
	assert.Equal(t, 1, saver.count())
}

func TestClear_EmptiesCart(t *testing.T) {
	store, _, _ := initializedStore(t)

	require.NoError(t, store.AddItem(item("a", 5, 2)))
	require.NoError(t, store.Clear())

	selected, err := store.Selected()
	require.NoError(t, err)
	assert.Empty(t, selected.Items)

	subtotal, err := store.Subtotal()
	require.NoError(t, err)
	assert.True(t, subtotal.IsZero())
}

func TestSelectCart_Unknown(t *testing.T) {
	store, _, _ := initializedStore(t)

	err := store.SelectCart("unknown")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Equal(t, "u1", store.SelectedID(), "selection unchanged")
}

func TestSelectCart_SharedCart(t *testing.T) {
	fetcher := &fakeFetcher{
		own: domain.NewCart("u1", time.Now()),
		shared: []*domain.Cart{
			{ID: "u2", MemberIDs: []string{"u2", "u1"}, Items: []domain.CartItem{item("x", 3, 1)}},
		},
	}
	store, _, _ := newTestStore(t, fetcher)
	_, err := store.Initialize(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.SelectCart("u2"))

	selected, err := store.Selected()
	require.NoError(t, err)
	assert.Equal(t, "u2", selected.ID)
	assert.Len(t, selected.Items, 1)
}

func TestSetMembers_UnionKeepsCreator(t *testing.T) {
	store, _, _ := initializedStore(t)

	require.NoError(t, store.SetMembers([]string{"u2"}))
	require.NoError(t, store.SetMembers([]string{"u2", "u3"}))

	selected, err := store.Selected()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, selected.MemberIDs)
}

func TestShare_PersistsMembershipUnion(t *testing.T) {
	store, _, sharer := initializedStore(t)

	require.NoError(t, store.SetMembers([]string{"u2"}))
	require.NoError(t, store.Share(context.Background()))

	assert.Equal(t, "u1", sharer.cartID)
	assert.ElementsMatch(t, []string{"u1", "u2"}, sharer.members)
}

func TestMutations_ConvergeToLatestState(t *testing.T) {
	store, saver, _ := initializedStore(t)

	require.NoError(t, store.AddItem(item("a", 1, 1)))
	require.NoError(t, store.AddItem(item("b", 2, 1)))
	require.NoError(t, store.UpdateItemQuantity("a", 7))
	require.NoError(t, store.RemoveItem("b"))

	require.NoError(t, store.queue.Flush(context.Background()))

	last, ok := saver.last()
	require.True(t, ok)
	assert.Equal(t, "u1", last.cartID)

	selected, err := store.Selected()
	require.NoError(t, err)
	assert.Equal(t, selected.Items, last.items, "remote state converges to latest local state")
}
