package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/domain"
)

// Sink receives events relayed from the shared channel
type Sink interface {
	Publish(ctx context.Context, event domain.CatalogEvent) error
}

// EventBus fans catalog events out to every server instance over Redis
// pub/sub. Publishing goes to the shared channel; Run relays whatever
// arrives on the channel, including this instance's own events, into the
// local sink.
type EventBus struct {
	client  *redis.Client
	channel string
	sink    Sink
	logger  *slog.Logger
}

// NewEventBus connects to Redis and returns a bus relaying into sink
func NewEventBus(cfg *config.RedisConfig, sink Sink, logger *slog.Logger) (*EventBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &EventBus{
		client:  client,
		channel: cfg.Channel,
		sink:    sink,
		logger:  logger,
	}, nil
}

// Close closes the Redis connection
func (b *EventBus) Close() error {
	return b.client.Close()
}

// Publish sends an event to every subscribed instance
func (b *EventBus) Publish(ctx context.Context, event domain.CatalogEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Run relays channel messages into the sink until ctx is cancelled
func (b *EventBus) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}
	b.logger.Info("event bus subscribed", "channel", b.channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("event bus stopping")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.relay(ctx, msg.Payload)
		}
	}
}

// relay decodes one channel payload and hands it to the sink
func (b *EventBus) relay(ctx context.Context, payload string) {
	var event domain.CatalogEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		b.logger.Warn("dropping malformed event", "error", err)
		return
	}
	if err := b.sink.Publish(ctx, event); err != nil {
		b.logger.Warn("failed to deliver relayed event", "type", event.Type, "error", err)
	}
}
