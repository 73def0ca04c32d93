package redis

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/domain"
)

// MockSink is a mock implementation of the Sink interface
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Publish(ctx context.Context, event domain.CatalogEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRelay_DecodesAndForwards(t *testing.T) {
	ctx := context.Background()
	sink := new(MockSink)
	bus := &EventBus{sink: sink, logger: discardLogger()}

	sink.On("Publish", ctx, mock.MatchedBy(func(e domain.CatalogEvent) bool {
		return e.ID == "evt-1" && e.Type == domain.EventGameDeleted && e.Topic == domain.TopicGames
	})).Return(nil)

	bus.relay(ctx, `{"id":"evt-1","type":"game.deleted","topic":"games","entityId":"g-1","timestamp":"2024-01-01T00:00:00Z"}`)

	sink.AssertExpectations(t)
}

func TestRelay_DropsMalformedPayload(t *testing.T) {
	sink := new(MockSink)
	bus := &EventBus{sink: sink, logger: discardLogger()}

	bus.relay(context.Background(), `not json`)

	sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestEventBus_RoundTrip(t *testing.T) {
	addr := os.Getenv("CATALOG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CATALOG_TEST_REDIS_ADDR not set")
	}

	cfg := config.DefaultConfig().Redis
	cfg.Addr = addr
	cfg.Channel = "catalog:test:" + time.Now().Format("150405.000")

	received := make(chan domain.CatalogEvent, 1)
	sink := new(MockSink)
	sink.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		select {
		case received <- args.Get(1).(domain.CatalogEvent):
		default:
		}
	}).Return(nil)

	bus, err := NewEventBus(&cfg, sink, discardLogger())
	require.NoError(t, err)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	// Publish until the subscription is live
	event := domain.CatalogEvent{ID: "evt-2", Type: domain.EventGameCreated, Topic: domain.TopicGames}
	require.Eventually(t, func() bool {
		require.NoError(t, bus.Publish(ctx, event))
		select {
		case got := <-received:
			assert.Equal(t, "evt-2", got.ID)
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
}
