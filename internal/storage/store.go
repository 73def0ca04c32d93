package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/arcade-catalog/internal/domain"
)

// Store is the catalog storage contract consumed by the service layer
type Store struct {
	backend Backend
	logger  *slog.Logger

	// mu serializes slug resolution with the write that claims the slug
	mu sync.Mutex
}

// NewStore wraps a backend with slug and redirect bookkeeping
func NewStore(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
	}
}

// Close releases the backend's resources
func (s *Store) Close() {
	s.backend.Close()
}

// Ping checks that the backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// UsingDatabase reports whether the database backend is active
func (s *Store) UsingDatabase() bool {
	return s.backend.UsingDatabase()
}

// ListGames returns every game, ordered by id for the database backend and
// by document order for the file backend
func (s *Store) ListGames(ctx context.Context) ([]domain.Game, error) {
	games, err := s.backend.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	return games, nil
}

// GetGameByID looks a game up by exact id, then by exact slug
func (s *Store) GetGameByID(ctx context.Context, handle string) (*domain.Game, bool, error) {
	game, ok, err := s.backend.GetGame(ctx, handle)
	if err != nil {
		return nil, false, fmt.Errorf("getting game: %w", err)
	}
	if ok {
		return game, true, nil
	}

	game, ok, err = s.backend.GetGameBySlug(ctx, handle)
	if err != nil {
		return nil, false, fmt.Errorf("getting game by slug: %w", err)
	}
	return game, ok, nil
}

// AddGame persists a game. The slug defaults to one derived from the title
// and is made unique among other games. An existing record with the same id
// is replaced, and a redirect is recorded from its slug if that changes.
func (s *Store) AddGame(ctx context.Context, game domain.Game) (*domain.Game, error) {
	game.Slug = strings.TrimSpace(game.Slug)
	if game.Slug == "" {
		game.Slug = Slugify(game.Title)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var prev *domain.Game
	if game.ID != "" {
		existing, ok, err := s.backend.GetGame(ctx, game.ID)
		if err != nil {
			return nil, fmt.Errorf("loading game: %w", err)
		}
		if ok {
			prev = existing
		}
	}

	if game.Slug != "" {
		slug, err := EnsureUniqueSlug(ctx, s.backend, game.Slug, game.ID)
		if err != nil {
			return nil, fmt.Errorf("resolving slug: %w", err)
		}
		game.Slug = slug
	}

	saved, err := s.backend.PutGame(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("adding game: %w", err)
	}

	if prev != nil && prev.Slug != "" && saved.Slug != "" && saved.Slug != prev.Slug {
		s.AddSlugRedirect(ctx, prev.Slug, game.ID)
	}
	return saved, nil
}

// UpdateGame merges patch into the game identified by id. A slug change
// away from a previously persisted slug records a redirect from the old
// slug; a failure to record it is logged and does not fail the update.
func (s *Store) UpdateGame(ctx context.Context, id string, patch domain.GamePatch) (*domain.Game, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok, err := s.backend.GetGame(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("loading game: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	if patch.Slug != nil {
		candidate := strings.TrimSpace(*patch.Slug)
		if candidate != "" && candidate != current.Slug {
			resolved, err := EnsureUniqueSlug(ctx, s.backend, candidate, id)
			if err != nil {
				return nil, false, fmt.Errorf("resolving slug: %w", err)
			}
			candidate = resolved
		}
		patch.Slug = &candidate
	}

	updated, ok, err := s.backend.PatchGame(ctx, id, patch)
	if err != nil {
		return nil, false, fmt.Errorf("updating game: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	if current.Slug != "" && updated.Slug != "" && updated.Slug != current.Slug {
		s.AddSlugRedirect(ctx, current.Slug, id)
	}
	return updated, true, nil
}

// DeleteGame removes a game. Redirects pointing at it are kept.
func (s *Store) DeleteGame(ctx context.Context, id string) (*domain.Game, bool, error) {
	removed, ok, err := s.backend.DeleteGame(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("deleting game: %w", err)
	}
	return removed, ok, nil
}

// UpsertMany inserts or replaces games by id and returns the number of
// input items processed
func (s *Store) UpsertMany(ctx context.Context, games []domain.Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}
	n, err := s.backend.UpsertGames(ctx, games)
	if err != nil {
		return 0, fmt.Errorf("upserting games: %w", err)
	}
	return n, nil
}

// DeleteAllGames removes every game and returns how many were removed
func (s *Store) DeleteAllGames(ctx context.Context) (int, error) {
	n, err := s.backend.DeleteAllGames(ctx)
	if err != nil {
		return 0, fmt.Errorf("deleting all games: %w", err)
	}
	return n, nil
}

// ListGenreMappings returns every genre mapping
func (s *Store) ListGenreMappings(ctx context.Context) ([]domain.GenreMapping, error) {
	items, err := s.backend.ListGenreMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing genre mappings: %w", err)
	}
	return items, nil
}

// UpsertGenreMapping inserts or replaces a genre mapping by id
func (s *Store) UpsertGenreMapping(ctx context.Context, item domain.GenreMapping) (*domain.GenreMapping, error) {
	if item.Includes == nil {
		item.Includes = []string{}
	}
	saved, err := s.backend.UpsertGenreMapping(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("upserting genre mapping: %w", err)
	}
	return saved, nil
}

// DeleteGenreMapping removes a genre mapping, reporting whether it existed
func (s *Store) DeleteGenreMapping(ctx context.Context, id string) (bool, error) {
	ok, err := s.backend.DeleteGenreMapping(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting genre mapping: %w", err)
	}
	return ok, nil
}

// GetSetting returns the raw JSON value stored under key
func (s *Store) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	value, ok, err := s.backend.GetSetting(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("getting setting %q: %w", key, err)
	}
	return value, ok, nil
}

// SetSetting stores value under key, replacing any previous value
func (s *Store) SetSetting(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling setting %q: %w", key, err)
	}
	if err := s.backend.SetSetting(ctx, key, raw); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// SettingAs decodes the setting stored under key into T, returning def when
// the key is unset or holds a value of another shape
func SettingAs[T any](ctx context.Context, s *Store, key string, def T) (T, error) {
	raw, ok, err := s.GetSetting(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, nil
	}
	return v, nil
}

// AddSlugRedirect maps oldSlug to gameID, overwriting any existing mapping.
// It reports success instead of returning an error so it can never abort
// the mutation it accompanies.
func (s *Store) AddSlugRedirect(ctx context.Context, oldSlug, gameID string) bool {
	if oldSlug == "" || gameID == "" {
		return false
	}
	if err := s.backend.PutSlugRedirect(ctx, oldSlug, gameID); err != nil {
		s.logger.Warn("failed to record slug redirect",
			"old_slug", oldSlug,
			"game_id", gameID,
			"error", err,
		)
		return false
	}
	return true
}

// GetGameIDByOldSlug resolves a historical slug to a game id
func (s *Store) GetGameIDByOldSlug(ctx context.Context, oldSlug string) (string, bool, error) {
	id, ok, err := s.backend.GetSlugRedirect(ctx, oldSlug)
	if err != nil {
		return "", false, fmt.Errorf("getting slug redirect: %w", err)
	}
	return id, ok, nil
}

// ListSlugRedirects returns every redirect ordered by old slug
func (s *Store) ListSlugRedirects(ctx context.Context) ([]domain.SlugRedirect, error) {
	items, err := s.backend.ListSlugRedirects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing slug redirects: %w", err)
	}
	return items, nil
}

// DeleteSlugRedirect removes a redirect, reporting whether it existed
func (s *Store) DeleteSlugRedirect(ctx context.Context, oldSlug string) (bool, error) {
	ok, err := s.backend.DeleteSlugRedirect(ctx, oldSlug)
	if err != nil {
		return false, fmt.Errorf("deleting slug redirect: %w", err)
	}
	return ok, nil
}
