package kafka

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcade-catalog/internal/domain"
)

func TestProducer_PublishGames(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewProducerConfig())
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var g domain.Game
		if err := json.Unmarshal(val, &g); err != nil {
			return err
		}
		game, err := DecodeGame(val)
		if err != nil {
			return err
		}
		assert.Equal(t, g.ID, game.ID)
		return nil
	})
	sp.ExpectSendMessageAndSucceed()

	p := NewProducerWith(sp, "catalog-games", slog.New(slog.NewJSONHandler(io.Discard, nil)))
	n, err := p.PublishGames([]domain.Game{
		{ID: "g-1", Title: "One"},
		{ID: "g-2", Title: "Two"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, p.Close())
}

func TestProducer_PublishGamesFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewProducerConfig())
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerWith(sp, "catalog-games", slog.New(slog.NewJSONHandler(io.Discard, nil)))
	_, err := p.PublishGames([]domain.Game{{ID: "g-1", Title: "One"}})
	assert.Error(t, err)
	require.NoError(t, p.Close())
}

func TestProducer_PublishNothing(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewProducerConfig())
	p := NewProducerWith(sp, "catalog-games", slog.New(slog.NewJSONHandler(io.Discard, nil)))

	n, err := p.PublishGames(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, p.Close())
}
