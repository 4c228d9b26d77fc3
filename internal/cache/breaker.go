package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"cartshare/internal/domain"
)

// BreakerCache shields the rest of the service from a flapping Redis: once
// the breaker opens, lookups degrade to cache misses instead of adding a
// network timeout to every request.
type BreakerCache struct {
	inner CartCache
	cb    *gobreaker.CircuitBreaker[*domain.Cart]
}

func NewBreakerCache(inner CartCache) *BreakerCache {
	settings := gobreaker.Settings{
		Name:        "cart-cache",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A miss is a healthy answer, not a Redis failure.
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
	}
	return &BreakerCache{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*domain.Cart](settings),
	}
}

func (b *BreakerCache) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := b.cb.Execute(func() (*domain.Cart, error) {
		return b.inner.Get(ctx, cartID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return cart, nil
}

func (b *BreakerCache) Set(ctx context.Context, cartID string, cart *domain.Cart) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.inner.Set(ctx, cartID, cart)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil
	}
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, cartID string) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.inner.Delete(ctx, cartID)
	})
	return err
}
