package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// CheckoutCompleted is emitted when a user checks out. No order is
// recorded; consumers react by clearing the durable cart state.
type CheckoutCompleted struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	CartID      string    `json:"cart_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(topic string, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w}
}

func (p *Publisher) PublishCheckoutCompleted(ctx context.Context, userID, cartID string) error {
	event := CheckoutCompleted{
		EventID:     uuid.NewString(),
		UserID:      userID,
		CartID:      cartID,
		CompletedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(cartID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish checkout event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
