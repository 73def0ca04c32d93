package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/domain"
	"github.com/arcade-catalog/internal/storage"
)

// Notifier delivers catalog events to live subscribers
type Notifier interface {
	Publish(ctx context.Context, event domain.CatalogEvent) error
}

// CatalogService provides business logic for catalog operations
type CatalogService struct {
	store    *storage.Store
	notifier Notifier
	config   *config.CatalogConfig
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service. notifier may be nil.
func NewCatalogService(
	store *storage.Store,
	notifier Notifier,
	cfg *config.CatalogConfig,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		store:    store,
		notifier: notifier,
		config:   cfg,
		logger:   logger,
	}
}

// SetNotifier swaps the event sink after construction
func (s *CatalogService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Ping checks that storage is reachable
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish emits an event. Delivery failures never fail the mutation.
func (s *CatalogService) publish(ctx context.Context, eventType, topic, entityID string, data interface{}) {
	if s.notifier == nil {
		return
	}
	event := domain.CatalogEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Topic:     topic,
		EntityID:  entityID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish catalog event",
			"type", eventType,
			"entity_id", entityID,
			"error", err,
		)
	}
}

var leadingDigits = regexp.MustCompile(`^\d+`)

// nextID returns prefix plus one more than the highest numeric suffix among
// ids carrying that prefix, zero padded to width
func nextID(prefix string, width int, ids []string) string {
	highest := 0
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		digits := leadingDigits.FindString(id[len(prefix):])
		if digits == "" {
			continue
		}
		if n, err := strconv.Atoi(digits); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, width, highest+1)
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// ---------- games ----------

// ListGames returns the whole catalog
func (s *CatalogService) ListGames(ctx context.Context) ([]domain.Game, error) {
	return s.store.ListGames(ctx)
}

// ListPlayableGames returns only games that have an id, thumbnail and url
func (s *CatalogService) ListPlayableGames(ctx context.Context) ([]domain.Game, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	playable := make([]domain.Game, 0, len(games))
	for i := range games {
		if games[i].IsPlayable() {
			playable = append(playable, games[i])
		}
	}
	return playable, nil
}

// GetGame resolves a handle by id, then current slug, then historical slug
func (s *CatalogService) GetGame(ctx context.Context, handle string) (*domain.ResolvedGame, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, domain.ErrGameNotFound
	}

	game, ok, err := s.store.GetGameByID(ctx, handle)
	if err != nil {
		return nil, err
	}
	if ok {
		return &domain.ResolvedGame{Game: *game}, nil
	}

	id, ok, err := s.store.GetGameIDByOldSlug(ctx, handle)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	game, ok, err = s.store.GetGameByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return &domain.ResolvedGame{Game: *game, RedirectedFrom: handle}, nil
}

// CreateGame validates and stores a new game. A missing or already used id
// is replaced with the next generated one.
func (s *CatalogService) CreateGame(ctx context.Context, req domain.CreateGameRequest) (*domain.Game, error) {
	game := req.ToGame()
	if game.Title == "" || game.URL == "" || game.Thumbnail == "" {
		return nil, domain.ErrInvalidGame
	}
	if game.Featured != nil && !*game.Featured {
		game.Featured = nil
	}

	existing, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(existing))
	for _, g := range existing {
		ids = append(ids, g.ID)
	}
	if game.ID == "" || containsID(ids, game.ID) {
		game.ID = nextID(s.config.GameIDPrefix, s.config.IDWidth, ids)
	}

	if game.Slug == "" {
		game.Slug = storage.Slugify(game.Title)
	}
	game.Slug = storage.SanitizeSlug(game.Slug)

	saved, err := s.store.AddGame(ctx, game)
	if err != nil {
		return nil, err
	}

	s.logger.Info("game created", "id", saved.ID, "slug", saved.Slug)
	s.publish(ctx, domain.EventGameCreated, domain.TopicGames, saved.ID, saved)
	return saved, nil
}

// UpdateGame applies a partial update. A new title without an explicit slug
// re-derives the slug from the title.
func (s *CatalogService) UpdateGame(ctx context.Context, id string, patch domain.GamePatch) (*domain.Game, error) {
	if patch.Slug != nil {
		slug := storage.SanitizeSlug(*patch.Slug)
		patch.Slug = &slug
	}
	if patch.Title != nil && (patch.Slug == nil || *patch.Slug == "") {
		slug := storage.Slugify(*patch.Title)
		patch.Slug = &slug
	}

	updated, ok, err := s.store.UpdateGame(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrGameNotFound
	}

	s.publish(ctx, domain.EventGameUpdated, domain.TopicGames, updated.ID, updated)
	return updated, nil
}

// DeleteGame removes one game and returns it
func (s *CatalogService) DeleteGame(ctx context.Context, id string) (*domain.Game, error) {
	removed, ok, err := s.store.DeleteGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrGameNotFound
	}

	s.logger.Info("game deleted", "id", id)
	s.publish(ctx, domain.EventGameDeleted, domain.TopicGames, id, removed)
	return removed, nil
}

// DeleteAllGames empties the catalog and returns how many games were removed
func (s *CatalogService) DeleteAllGames(ctx context.Context) (int, error) {
	n, err := s.store.DeleteAllGames(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.Info("catalog cleared", "deleted", n)
	s.publish(ctx, domain.EventGamesCleared, domain.TopicGames, "", map[string]int{"deleted": n})
	return n, nil
}
