package cart

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"cartshare/internal/cache"
	"cartshare/internal/domain"
	"cartshare/internal/repository"
	"cartshare/pkg/logger"
)

// Fetcher loads the carts visible to a user during session initialization.
type Fetcher interface {
	// FetchOwn returns the user's own cart, creating it when no document
	// exists yet. The bool reports whether the cart was created.
	FetchOwn(ctx context.Context, userID string) (*domain.Cart, bool, error)
	// FetchShared returns every cart the user is a member of.
	FetchShared(ctx context.Context, userID string) ([]*domain.Cart, error)
}

type ownResult struct {
	cart    *domain.Cart
	created bool
}

// CachedFetcher reads through the Redis cache in front of the document
// store. Concurrent first requests for the same user collapse into one
// load via singleflight.
type CachedFetcher struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group
	logg  *logger.Logger
}

func NewCachedFetcher(repo repository.CartRepository, cartCache cache.CartCache, logg *logger.Logger) *CachedFetcher {
	return &CachedFetcher{repo: repo, cache: cartCache, logg: logg}
}

func (f *CachedFetcher) FetchOwn(ctx context.Context, userID string) (*domain.Cart, bool, error) {
	v, err, _ := f.sfg.Do(userID, func() (interface{}, error) {
		cached, err := f.cache.Get(ctx, userID)
		if err == nil {
			return ownResult{cart: cached}, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logg.Warn(f.logg.WithCartID(ctx, userID), "cache get failed, falling back to repository")
		}

		cart, errGet := f.repo.GetCart(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			created, errCreate := f.repo.CreateCart(ctx, userID)
			if errCreate != nil {
				return nil, errCreate
			}
			return ownResult{cart: created, created: true}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := f.cache.Set(context.Background(), userID, cart); errSet != nil {
				f.logg.Warn(f.logg.WithCartID(context.Background(), userID), "cache set failed")
			}
		}()

		return ownResult{cart: cart}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(ownResult)
	return res.cart.Clone(), res.created, nil
}

func (f *CachedFetcher) FetchShared(ctx context.Context, userID string) ([]*domain.Cart, error) {
	carts, err := f.repo.ListMemberCarts(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Cart, len(carts))
	for i, c := range carts {
		out[i] = c.Clone()
	}
	return out, nil
}
