package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/arcade-catalog/internal/domain"
)

// Producer publishes games onto the import feed, keyed by game id so
// every revision of a game lands on the same partition
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewProducerConfig returns the sarama settings used for the game feed
func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	return config
}

// NewProducer connects a synchronous producer to the brokers
func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return NewProducerWith(producer, topic, logger), nil
}

// NewProducerWith wraps an existing sarama producer
func NewProducerWith(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Producer {
	return &Producer{producer: producer, topic: topic, logger: logger}
}

// PublishGames sends one message per game and returns how many were sent
func (p *Producer) PublishGames(games []domain.Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(games))
	for _, g := range games {
		data, err := json.Marshal(g)
		if err != nil {
			return 0, fmt.Errorf("encoding game %s: %w", g.ID, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(g.ID),
			Value: sarama.ByteEncoder(data),
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		if perrs, ok := err.(sarama.ProducerErrors); ok {
			p.logger.Error("failed to publish games", "failed", len(perrs), "total", len(msgs))
			return len(msgs) - len(perrs), fmt.Errorf("publishing games: %w", err)
		}
		return 0, fmt.Errorf("publishing games: %w", err)
	}

	p.logger.Info("published games", "topic", p.topic, "count", len(msgs))
	return len(msgs), nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
