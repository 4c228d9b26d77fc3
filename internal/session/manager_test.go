package session

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartshare/internal/cart"
	"cartshare/internal/domain"
	"cartshare/pkg/logger"
)

type countingFetcher struct {
	ownCalls atomic.Int64
}

func (f *countingFetcher) FetchOwn(_ context.Context, userID string) (*domain.Cart, bool, error) {
	f.ownCalls.Add(1)
	return domain.NewCart(userID, time.Now()), false, nil
}

func (f *countingFetcher) FetchShared(context.Context, string) ([]*domain.Cart, error) {
	return nil, nil
}

type noopSaver struct{}

func (noopSaver) SaveItems(context.Context, string, []domain.CartItem) error { return nil }

type noopSharer struct{}

func (noopSharer) AddMembers(context.Context, string, []string) error { return nil }

func newTestManager(t *testing.T, fetcher cart.Fetcher) *Manager {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	queue := cart.NewWriteQueue(noopSaver{}, time.Second, logg)
	m := NewManager(fetcher, noopSharer{}, queue, time.Minute, logg)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestGet_InitializesOnce(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(t, fetcher)

	first, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	second, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), fetcher.ownCalls.Load())
}

func TestGet_ConcurrentFirstRequestsCollapse(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(t, fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Get(context.Background(), "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetcher.ownCalls.Load())
}

func TestGet_DistinctUsersGetDistinctStores(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(t, fetcher)

	s1, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	s2, err := m.Get(context.Background(), "u2")
	require.NoError(t, err)

	assert.NotSame(t, s1, s2)
	assert.Equal(t, "u1", s1.UserID())
	assert.Equal(t, "u2", s2.UserID())
}

func TestRelease_NextGetReinitializes(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(t, fetcher)

	_, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	m.Release("u1")

	_, err = m.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetcher.ownCalls.Load())
}

func TestClose_FlushesQueue(t *testing.T) {
	fetcher := &countingFetcher{}
	m := newTestManager(t, fetcher)

	store, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(domain.CartItem{ID: "a", Name: "a", Quantity: 1}))

	assert.NoError(t, m.Close(context.Background()))
}
