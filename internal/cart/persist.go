package cart

import (
	"context"

	"cartshare/internal/cache"
	"cartshare/internal/domain"
	"cartshare/internal/repository"
	"cartshare/pkg/logger"
)

// Saver persists a cart's item list. Writes are issued by the write queue
// and never awaited by callers.
type Saver interface {
	SaveItems(ctx context.Context, cartID string, items []domain.CartItem) error
}

// Sharer persists cart membership.
type Sharer interface {
	AddMembers(ctx context.Context, cartID string, userIDs []string) error
}

// Persistence couples the cart repository with cache invalidation: after a
// successful write the cached copy of the document is dropped so the next
// session load observes the new state.
type Persistence struct {
	repo  repository.CartRepository
	cache cache.CartCache
	logg  *logger.Logger
}

func NewPersistence(repo repository.CartRepository, cartCache cache.CartCache, logg *logger.Logger) *Persistence {
	return &Persistence{repo: repo, cache: cartCache, logg: logg}
}

func (p *Persistence) SaveItems(ctx context.Context, cartID string, items []domain.CartItem) error {
	if err := p.repo.SaveItems(ctx, cartID, items); err != nil {
		return err
	}
	p.invalidate(ctx, cartID)
	return nil
}

func (p *Persistence) AddMembers(ctx context.Context, cartID string, userIDs []string) error {
	if err := p.repo.AddMembers(ctx, cartID, userIDs); err != nil {
		return err
	}
	p.invalidate(ctx, cartID)
	return nil
}

func (p *Persistence) invalidate(ctx context.Context, cartID string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, cartID); err != nil {
		p.logg.Warn(p.logg.WithCartID(ctx, cartID), "cache invalidate failed")
	}
}
