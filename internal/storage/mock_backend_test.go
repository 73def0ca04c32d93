package storage

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/arcade-catalog/internal/domain"
)

// MockBackend is a mock implementation of the Backend interface
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) ListGames(ctx context.Context) ([]domain.Game, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Game), args.Error(1)
}

func (m *MockBackend) GetGame(ctx context.Context, id string) (*domain.Game, bool, error) {
	args := m.Called(ctx, id)
	game, _ := args.Get(0).(*domain.Game)
	return game, args.Bool(1), args.Error(2)
}

func (m *MockBackend) GetGameBySlug(ctx context.Context, slug string) (*domain.Game, bool, error) {
	args := m.Called(ctx, slug)
	game, _ := args.Get(0).(*domain.Game)
	return game, args.Bool(1), args.Error(2)
}

func (m *MockBackend) PutGame(ctx context.Context, game domain.Game) (*domain.Game, error) {
	args := m.Called(ctx, game)
	saved, _ := args.Get(0).(*domain.Game)
	return saved, args.Error(1)
}

func (m *MockBackend) PatchGame(ctx context.Context, id string, patch domain.GamePatch) (*domain.Game, bool, error) {
	args := m.Called(ctx, id, patch)
	game, _ := args.Get(0).(*domain.Game)
	return game, args.Bool(1), args.Error(2)
}

func (m *MockBackend) DeleteGame(ctx context.Context, id string) (*domain.Game, bool, error) {
	args := m.Called(ctx, id)
	game, _ := args.Get(0).(*domain.Game)
	return game, args.Bool(1), args.Error(2)
}

func (m *MockBackend) UpsertGames(ctx context.Context, games []domain.Game) (int, error) {
	args := m.Called(ctx, games)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) DeleteAllGames(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) ListGenreMappings(ctx context.Context) ([]domain.GenreMapping, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.GenreMapping), args.Error(1)
}

func (m *MockBackend) UpsertGenreMapping(ctx context.Context, item domain.GenreMapping) (*domain.GenreMapping, error) {
	args := m.Called(ctx, item)
	saved, _ := args.Get(0).(*domain.GenreMapping)
	return saved, args.Error(1)
}

func (m *MockBackend) DeleteGenreMapping(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	args := m.Called(ctx, key)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Bool(1), args.Error(2)
}

func (m *MockBackend) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockBackend) PutSlugRedirect(ctx context.Context, oldSlug, gameID string) error {
	args := m.Called(ctx, oldSlug, gameID)
	return args.Error(0)
}

func (m *MockBackend) GetSlugRedirect(ctx context.Context, oldSlug string) (string, bool, error) {
	args := m.Called(ctx, oldSlug)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockBackend) ListSlugRedirects(ctx context.Context) ([]domain.SlugRedirect, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.SlugRedirect), args.Error(1)
}

func (m *MockBackend) DeleteSlugRedirect(ctx context.Context, oldSlug string) (bool, error) {
	args := m.Called(ctx, oldSlug)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) UsingDatabase() bool {
	return m.Called().Bool(0)
}

func (m *MockBackend) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockBackend) Close() {
	m.Called()
}
