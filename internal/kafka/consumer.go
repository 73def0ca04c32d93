package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/domain"
)

// GameImporter stores batches of games arriving from a feed
type GameImporter interface {
	ImportGames(ctx context.Context, games []domain.Game) (int, error)
}

// errInvalidGame marks a message that decoded but cannot be imported
var errInvalidGame = errors.New("game message requires id and title")

// Consumer consumes game feed messages from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	importer      GameImporter
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, importer GameImporter, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		importer:      importer,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				config:   c.config,
				importer: c.importer,
				logger:   c.logger,
				ready:    c.ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			// Check if context was cancelled
			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	<-c.ready
	c.logger.Info("Kafka consumer ready")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// DecodeGame parses one feed message. List fields may be arrays or
// comma separated strings.
func DecodeGame(value []byte) (domain.Game, error) {
	var req domain.CreateGameRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return domain.Game{}, err
	}
	game := req.ToGame()
	if game.ID == "" || strings.TrimSpace(game.Title) == "" {
		return domain.Game{}, errInvalidGame
	}
	return game, nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	config   *config.KafkaConfig
	importer GameImporter
	logger   *slog.Logger
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	if h.ready != nil {
		close(h.ready)
	}
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim batches games from a partition by size or timeout. Offsets
// are marked once their batch has been handed to the importer; a failed
// import is logged and not retried.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	batch := make([]domain.Game, 0, h.config.BatchSize)
	pending := make([]*sarama.ConsumerMessage, 0, h.config.BatchSize)
	batchTimer := time.NewTimer(h.config.BatchTimeout)
	defer batchTimer.Stop()

	processBatch := func() {
		if len(pending) == 0 {
			return
		}

		if len(batch) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if n, err := h.importer.ImportGames(ctx, batch); err != nil {
				h.logger.Error("failed to import batch", "error", err, "batch_size", len(batch))
			} else {
				h.logger.Debug("imported batch", "batch_size", len(batch), "stored", n)
			}
		}

		for _, msg := range pending {
			session.MarkMessage(msg, "")
		}
		batch = batch[:0]
		pending = pending[:0]
	}

	for {
		select {
		case <-session.Context().Done():
			processBatch()
			return nil

		case <-batchTimer.C:
			processBatch()
			batchTimer.Reset(h.config.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				processBatch()
				return nil
			}

			pending = append(pending, message)

			game, err := DecodeGame(message.Value)
			if err != nil {
				h.logger.Warn("skipping invalid game message",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				continue
			}
			batch = append(batch, game)

			if len(batch) >= h.config.BatchSize {
				processBatch()
				batchTimer.Reset(h.config.BatchTimeout)
			}
		}
	}
}
