package poller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	c "cartshare/internal/cache"
	"cartshare/internal/events"
	r "cartshare/internal/repository"
	"cartshare/pkg/logger"
)

// Poller consumes checkout-completed events and clears the corresponding
// cart document and its cache entry. Clearing is idempotent, so replays and
// the API's own optimistic clear are harmless.
type Poller struct {
	repo   r.CartRepository
	reader *kafka.Reader
	cache  c.CartCache
	logg   *logger.Logger
}

func New(repo r.CartRepository, cartCache c.CartCache, logg *logger.Logger, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{repo: repo, reader: reader, cache: cartCache, logg: logg}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.consumeAndClear(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logg.Error(context.Background(), "error closing kafka reader", err)
	}
}

func (p *Poller) consumeAndClear(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logg.Error(ctx, "error reading checkout event", err)
		}
		return
	}

	var event events.CheckoutCompleted
	if errUnmarshal := json.Unmarshal(m.Value, &event); errUnmarshal != nil {
		p.logg.Error(ctx, "error parsing checkout event", errUnmarshal)
		return
	}
	if event.CartID == "" {
		p.logg.Warn(ctx, "checkout event missing cart_id")
		return
	}
	ctx = p.logg.WithCartID(ctx, event.CartID)

	errClear := p.repo.ClearItems(ctx, event.CartID)
	if errClear != nil && !errors.Is(errClear, r.ErrCartNotFound) {
		p.logg.Error(ctx, "failed to clear cart after checkout", errClear)
		return
	}

	if errCache := p.cache.Delete(ctx, event.CartID); errCache != nil {
		p.logg.Error(ctx, "failed to invalidate cart cache", errCache)
	}
	p.logg.Info(ctx, "cart cleared after checkout")
}
