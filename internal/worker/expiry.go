package worker

import (
	"context"
	"fmt"
	"time"

	"cartshare/pkg/logger"
)

// ItemRemover is the slice of the cart repository the sweep needs.
type ItemRemover interface {
	RemoveExpiredItems(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpiryJob removes cart items older than the retention window from every
// cart document, independent of any interactive session.
type ExpiryJob struct {
	repo      ItemRemover
	lock      Lock
	logg      *logger.Logger
	retention time.Duration
	interval  time.Duration
}

func NewExpiryJob(repo ItemRemover, lock Lock, retention, interval time.Duration, logg *logger.Logger) *ExpiryJob {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &ExpiryJob{
		repo:      repo,
		lock:      lock,
		logg:      logg,
		retention: retention,
		interval:  interval,
	}
}

// Run sweeps once immediately, then on every tick, until ctx is canceled.
func (j *ExpiryJob) Run(ctx context.Context) {
	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (j *ExpiryJob) sweep(ctx context.Context) {
	acquired, err := j.lock.Acquire(ctx)
	if err != nil {
		j.logg.Error(ctx, "expiry sweep: lock acquire failed", err)
		return
	}
	if !acquired {
		j.logg.Debug(ctx, "expiry sweep: another replica holds the lock")
		return
	}
	defer func() {
		if err := j.lock.Release(ctx); err != nil {
			j.logg.Error(ctx, "expiry sweep: lock release failed", err)
		}
	}()

	cutoff := time.Now().UTC().Add(-j.retention)
	modified, err := j.repo.RemoveExpiredItems(ctx, cutoff)
	if err != nil {
		j.logg.Error(ctx, "expiry sweep failed", err)
		return
	}
	j.logg.Info(ctx, fmt.Sprintf("expiry sweep touched %d carts (cutoff %s)", modified, cutoff.Format(time.RFC3339)))
}
