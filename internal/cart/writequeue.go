package cart

import (
	"context"
	"sync"
	"time"

	"cartshare/internal/domain"
	"cartshare/pkg/logger"
)

// WriteQueue serializes persistence writes per cart. At most one save is in
// flight for a given cart; snapshots enqueued while a save runs coalesce so
// only the latest one is written (last value wins). Failed saves are logged
// and dropped: the caller has already applied the change in memory.
type WriteQueue struct {
	saver   Saver
	logg    *logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	writers map[string]*cartWriter
	wg      sync.WaitGroup
}

type cartWriter struct {
	next    []domain.CartItem
	hasNext bool
	running bool
}

func NewWriteQueue(saver Saver, timeout time.Duration, logg *logger.Logger) *WriteQueue {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WriteQueue{
		saver:   saver,
		logg:    logg,
		timeout: timeout,
		writers: make(map[string]*cartWriter),
	}
}

// Enqueue records items as the latest state of the cart and starts a drain
// goroutine for it if none is running. It never blocks on the save.
func (q *WriteQueue) Enqueue(cartID string, items []domain.CartItem) {
	snapshot := domain.CloneItems(items)

	q.mu.Lock()
	w := q.writers[cartID]
	if w == nil {
		w = &cartWriter{}
		q.writers[cartID] = w
	}
	w.next = snapshot
	w.hasNext = true
	if !w.running {
		w.running = true
		q.wg.Add(1)
		go q.drain(cartID, w)
	}
	q.mu.Unlock()
}

func (q *WriteQueue) drain(cartID string, w *cartWriter) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if !w.hasNext {
			w.running = false
			q.mu.Unlock()
			return
		}
		items := w.next
		w.hasNext = false
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.saver.SaveItems(ctx, cartID, items); err != nil {
			q.logg.Error(q.logg.WithCartID(ctx, cartID), "cart save failed", err)
		}
		cancel()
	}
}

// Flush waits until every pending save has been attempted, or the context
// expires. Meant for graceful shutdown.
func (q *WriteQueue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
