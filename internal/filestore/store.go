// Package filestore persists the catalog as plain JSON documents, one per
// entity kind. Every write rewrites the whole document through a temp file
// and rename.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/arcade-catalog/internal/domain"
)

// Document file names inside the data directory
const (
	GamesFile         = "games.json"
	GenreMappingsFile = "genreMappings.json"
	SettingsFile      = "settings.json"
	SlugRedirectsFile = "slugRedirects.json"
)

// Store is the file-backed catalog backend.
//
// mu serializes read-modify-write cycles inside this process. Separate
// processes sharing a directory still race, and the last rename wins.
type Store struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore opens a file store rooted at dir, creating the directory if needed
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger,
	}, nil
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// UsingDatabase reports false for the file backend
func (s *Store) UsingDatabase() bool {
	return false
}

// Ping checks that the data directory is still there
func (s *Store) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	return nil
}

// Close is a no-op; the file store holds no open handles
func (s *Store) Close() {}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readDocument loads a document's raw bytes. A missing file yields nil.
func (s *Store) readDocument(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// decodeList parses a JSON array document. Missing or unparsable documents
// are treated as empty so a fresh checkout works without seeding. Elements
// that do not decode are skipped individually.
func decodeList[T any](s *Store, name string) ([]T, error) {
	data, err := s.readDocument(name)
	if err != nil {
		return nil, err
	}
	items := []T{}
	if len(data) == 0 {
		return items, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("unreadable document treated as empty", "file", name, "error", err)
		return items, nil
	}
	for i, elem := range raw {
		if string(elem) == "null" {
			s.logger.Warn("skipping null entry", "file", name, "index", i)
			continue
		}
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			s.logger.Warn("skipping unreadable entry", "file", name, "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// ---------- games ----------

func (s *Store) readGames() ([]domain.Game, error) {
	return decodeList[domain.Game](s, GamesFile)
}

func (s *Store) writeGames(games []domain.Game) error {
	return WriteJSON(s.path(GamesFile), games)
}

func indexOfGame(games []domain.Game, id string) int {
	for i := range games {
		if games[i].ID == id {
			return i
		}
	}
	return -1
}

// fileGame strips the database-managed timestamp before a game is written
func fileGame(g domain.Game) domain.Game {
	g.UpdatedAt = nil
	return g
}

// ListGames returns games in document order
func (s *Store) ListGames(ctx context.Context) ([]domain.Game, error) {
	return s.readGames()
}

// GetGame finds a game by exact id
func (s *Store) GetGame(ctx context.Context, id string) (*domain.Game, bool, error) {
	games, err := s.readGames()
	if err != nil {
		return nil, false, err
	}
	if i := indexOfGame(games, id); i >= 0 {
		return &games[i], true, nil
	}
	return nil, false, nil
}

// GetGameBySlug finds a game by exact slug
func (s *Store) GetGameBySlug(ctx context.Context, slug string) (*domain.Game, bool, error) {
	if slug == "" {
		return nil, false, nil
	}
	games, err := s.readGames()
	if err != nil {
		return nil, false, err
	}
	for i := range games {
		if games[i].Slug == slug {
			return &games[i], true, nil
		}
	}
	return nil, false, nil
}

// SlugExists reports whether a game other than excludeID uses slug
func (s *Store) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	games, err := s.readGames()
	if err != nil {
		return false, err
	}
	for _, g := range games {
		if g.Slug == slug && (excludeID == "" || g.ID != excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// PutGame replaces the game with the same id in place, or appends it
func (s *Store) PutGame(ctx context.Context, game domain.Game) (*domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.readGames()
	if err != nil {
		return nil, err
	}
	game = fileGame(game)
	if i := indexOfGame(games, game.ID); i >= 0 {
		games[i] = game
	} else {
		games = append(games, game)
	}
	if err := s.writeGames(games); err != nil {
		return nil, err
	}
	return &game, nil
}

// PatchGame merges patch into the game with the given id
func (s *Store) PatchGame(ctx context.Context, id string, patch domain.GamePatch) (*domain.Game, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.readGames()
	if err != nil {
		return nil, false, err
	}
	i := indexOfGame(games, id)
	if i < 0 {
		return nil, false, nil
	}
	next := patch.Apply(games[i])
	games[i] = next
	if err := s.writeGames(games); err != nil {
		return nil, false, err
	}
	return &next, true, nil
}

// DeleteGame removes the game with the given id
func (s *Store) DeleteGame(ctx context.Context, id string) (*domain.Game, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.readGames()
	if err != nil {
		return nil, false, err
	}
	i := indexOfGame(games, id)
	if i < 0 {
		return nil, false, nil
	}
	removed := games[i]
	games = append(games[:i], games[i+1:]...)
	if err := s.writeGames(games); err != nil {
		return nil, false, err
	}
	return &removed, true, nil
}

// UpsertGames merges games by id. Existing records keep their position,
// new ones are appended, and the last occurrence of an id in the batch wins.
func (s *Store) UpsertGames(ctx context.Context, items []domain.Game) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.readGames()
	if err != nil {
		return 0, err
	}
	pos := make(map[string]int, len(games)+len(items))
	for i, g := range games {
		pos[g.ID] = i
	}
	for _, g := range items {
		g = fileGame(g)
		if i, ok := pos[g.ID]; ok {
			games[i] = g
			continue
		}
		pos[g.ID] = len(games)
		games = append(games, g)
	}
	if err := s.writeGames(games); err != nil {
		return 0, err
	}
	return len(items), nil
}

// DeleteAllGames empties the games document
func (s *Store) DeleteAllGames(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	games, err := s.readGames()
	if err != nil {
		return 0, err
	}
	if err := s.writeGames([]domain.Game{}); err != nil {
		return 0, err
	}
	return len(games), nil
}

// ---------- genre mappings ----------

func (s *Store) readMappings() ([]domain.GenreMapping, error) {
	items, err := decodeList[domain.GenreMapping](s, GenreMappingsFile)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Includes == nil {
			items[i].Includes = []string{}
		}
	}
	return items, nil
}

// ListGenreMappings returns mappings in document order
func (s *Store) ListGenreMappings(ctx context.Context) ([]domain.GenreMapping, error) {
	return s.readMappings()
}

// UpsertGenreMapping replaces the mapping with the same id, or appends it
func (s *Store) UpsertGenreMapping(ctx context.Context, item domain.GenreMapping) (*domain.GenreMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.readMappings()
	if err != nil {
		return nil, err
	}
	replaced := false
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	if err := WriteJSON(s.path(GenreMappingsFile), items); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteGenreMapping removes the mapping with the given id
func (s *Store) DeleteGenreMapping(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.readMappings()
	if err != nil {
		return false, err
	}
	for i := range items {
		if items[i].ID == id {
			items = append(items[:i], items[i+1:]...)
			if err := WriteJSON(s.path(GenreMappingsFile), items); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// ---------- settings ----------

// readSettings accepts both the array-of-{key,value} layout and the older
// single-object layout keyed by setting name.
func (s *Store) readSettings() ([]domain.Setting, error) {
	data, err := s.readDocument(SettingsFile)
	if err != nil {
		return nil, err
	}
	settings := []domain.Setting{}
	if len(data) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(data, &settings); err == nil {
		return settings, nil
	}

	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(data, &legacy); err != nil {
		s.logger.Warn("unreadable document treated as empty", "file", SettingsFile, "error", err)
		return []domain.Setting{}, nil
	}
	settings = settings[:0]
	for k, v := range legacy {
		settings = append(settings, domain.Setting{Key: k, Value: v})
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}

// GetSetting returns the raw value stored under key
func (s *Store) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	settings, err := s.readSettings()
	if err != nil {
		return nil, false, err
	}
	for _, st := range settings {
		if st.Key == key {
			if len(st.Value) == 0 || string(st.Value) == "null" {
				return nil, false, nil
			}
			return st.Value, true, nil
		}
	}
	return nil, false, nil
}

// SetSetting stores value under key
func (s *Store) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.readSettings()
	if err != nil {
		return err
	}
	replaced := false
	for i := range settings {
		if settings[i].Key == key {
			settings[i].Value = value
			replaced = true
			break
		}
	}
	if !replaced {
		settings = append(settings, domain.Setting{Key: key, Value: value})
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return WriteJSON(s.path(SettingsFile), settings)
}

// ---------- slug redirects ----------

// readRedirects accepts both the array layout and the older object layout
// mapping old slug to game id. The result is sorted by old slug.
func (s *Store) readRedirects() ([]domain.SlugRedirect, error) {
	data, err := s.readDocument(SlugRedirectsFile)
	if err != nil {
		return nil, err
	}
	redirects := []domain.SlugRedirect{}
	if len(data) == 0 {
		return redirects, nil
	}
	if err := json.Unmarshal(data, &redirects); err != nil {
		var legacy map[string]string
		if err := json.Unmarshal(data, &legacy); err != nil {
			s.logger.Warn("unreadable document treated as empty", "file", SlugRedirectsFile, "error", err)
			return []domain.SlugRedirect{}, nil
		}
		redirects = redirects[:0]
		for oldSlug, gameID := range legacy {
			redirects = append(redirects, domain.SlugRedirect{OldSlug: oldSlug, GameID: gameID})
		}
	}
	sort.Slice(redirects, func(i, j int) bool { return redirects[i].OldSlug < redirects[j].OldSlug })
	return redirects, nil
}

func (s *Store) writeRedirects(redirects []domain.SlugRedirect) error {
	sort.Slice(redirects, func(i, j int) bool { return redirects[i].OldSlug < redirects[j].OldSlug })
	return WriteJSON(s.path(SlugRedirectsFile), redirects)
}

// PutSlugRedirect maps oldSlug to gameID, overwriting an existing mapping.
// The game id is not checked against the games document.
func (s *Store) PutSlugRedirect(ctx context.Context, oldSlug, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	redirects, err := s.readRedirects()
	if err != nil {
		return err
	}
	replaced := false
	for i := range redirects {
		if redirects[i].OldSlug == oldSlug {
			redirects[i].GameID = gameID
			replaced = true
			break
		}
	}
	if !replaced {
		redirects = append(redirects, domain.SlugRedirect{OldSlug: oldSlug, GameID: gameID})
	}
	return s.writeRedirects(redirects)
}

// GetSlugRedirect returns the game id an old slug points at
func (s *Store) GetSlugRedirect(ctx context.Context, oldSlug string) (string, bool, error) {
	redirects, err := s.readRedirects()
	if err != nil {
		return "", false, err
	}
	for _, r := range redirects {
		if r.OldSlug == oldSlug {
			return r.GameID, true, nil
		}
	}
	return "", false, nil
}

// ListSlugRedirects returns redirects sorted by old slug
func (s *Store) ListSlugRedirects(ctx context.Context) ([]domain.SlugRedirect, error) {
	return s.readRedirects()
}

// DeleteSlugRedirect removes the redirect for oldSlug
func (s *Store) DeleteSlugRedirect(ctx context.Context, oldSlug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	redirects, err := s.readRedirects()
	if err != nil {
		return false, err
	}
	for i := range redirects {
		if redirects[i].OldSlug == oldSlug {
			redirects = append(redirects[:i], redirects[i+1:]...)
			if err := s.writeRedirects(redirects); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
