package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cartshare/internal/cart"
	"cartshare/pkg/logger"
)

// Manager owns one cart.Store per authenticated user. A store is built and
// initialized lazily on the user's first request (concurrent first requests
// collapse into one initialization) and evicted after the idle TTL or an
// explicit Release, mirroring an auth-state subscribe/unsubscribe cycle.
type Manager struct {
	fetcher cart.Fetcher
	sharer  cart.Sharer
	queue   *cart.WriteQueue
	logg    *logger.Logger
	idleTTL time.Duration
	sfg     singleflight.Group

	mu       sync.Mutex
	sessions map[string]*entry
	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	store    *cart.Store
	lastSeen time.Time
}

func NewManager(fetcher cart.Fetcher, sharer cart.Sharer, queue *cart.WriteQueue, idleTTL time.Duration, logg *logger.Logger) *Manager {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	m := &Manager{
		fetcher:  fetcher,
		sharer:   sharer,
		queue:    queue,
		logg:     logg,
		idleTTL:  idleTTL,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Get returns the user's session store, initializing it on first access.
func (m *Manager) Get(ctx context.Context, userID string) (*cart.Store, error) {
	m.mu.Lock()
	if e, ok := m.sessions[userID]; ok {
		e.lastSeen = time.Now()
		store := e.store
		m.mu.Unlock()
		return store, nil
	}
	m.mu.Unlock()

	v, err, _ := m.sfg.Do(userID, func() (interface{}, error) {
		store := cart.NewStore(userID, m.fetcher, m.sharer, m.queue, m.logg)
		result, err := store.Initialize(ctx)
		if err != nil {
			return nil, err
		}
		if result.Created {
			m.logg.Info(m.logg.WithUserID(ctx, userID), "created cart on first load")
		}

		m.mu.Lock()
		m.sessions[userID] = &entry{store: store, lastSeen: time.Now()}
		m.mu.Unlock()
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cart.Store), nil
}

// Release drops the user's session, e.g. on logout. Pending writes keep
// draining in the shared queue.
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// Close stops the janitor and flushes pending cart writes.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stop) })
	return m.queue.Flush(ctx)
}

func (m *Manager) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTTL)
	m.mu.Lock()
	for userID, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, userID)
		}
	}
	m.mu.Unlock()
}
