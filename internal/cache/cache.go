package cache

import (
	"context"
	"errors"

	"cartshare/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	Set(ctx context.Context, cartID string, cart *domain.Cart) error
	Delete(ctx context.Context, cartID string) error
}

var ErrCacheMiss = errors.New("cache miss")
