// Package storage is the backend-agnostic catalog store. A Backend
// provides primitive persistence; Store layers slug uniqueness and
// redirect bookkeeping on top so both backends behave identically.
package storage

import (
	"context"
	"encoding/json"

	"github.com/arcade-catalog/internal/domain"
)

// SlugChecker reports whether a slug is already taken by a game other than
// excludeID. An empty excludeID checks every game.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}

// Backend is implemented by the file and database stores. Lookups report
// absence through their boolean result, never through the error.
type Backend interface {
	SlugChecker

	ListGames(ctx context.Context) ([]domain.Game, error)
	GetGame(ctx context.Context, id string) (*domain.Game, bool, error)
	GetGameBySlug(ctx context.Context, slug string) (*domain.Game, bool, error)
	// PutGame inserts the game or replaces the record with the same id.
	PutGame(ctx context.Context, game domain.Game) (*domain.Game, error)
	PatchGame(ctx context.Context, id string, patch domain.GamePatch) (*domain.Game, bool, error)
	DeleteGame(ctx context.Context, id string) (*domain.Game, bool, error)
	UpsertGames(ctx context.Context, games []domain.Game) (int, error)
	DeleteAllGames(ctx context.Context) (int, error)

	ListGenreMappings(ctx context.Context) ([]domain.GenreMapping, error)
	UpsertGenreMapping(ctx context.Context, item domain.GenreMapping) (*domain.GenreMapping, error)
	DeleteGenreMapping(ctx context.Context, id string) (bool, error)

	GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error)
	SetSetting(ctx context.Context, key string, value json.RawMessage) error

	PutSlugRedirect(ctx context.Context, oldSlug, gameID string) error
	GetSlugRedirect(ctx context.Context, oldSlug string) (string, bool, error)
	ListSlugRedirects(ctx context.Context) ([]domain.SlugRedirect, error)
	DeleteSlugRedirect(ctx context.Context, oldSlug string) (bool, error)

	// UsingDatabase lets callers pick a bulk strategy; it never changes
	// semantics.
	UsingDatabase() bool
	Ping(ctx context.Context) error
	Close()
}
