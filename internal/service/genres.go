package service

import (
	"context"
	"sort"
	"strings"

	"github.com/arcade-catalog/internal/domain"
)

const (
	defaultGenreName = "Unnamed"
	maxEmojiRunes    = 8
)

// GenreIndex maps raw genre strings to canonical names, case-insensitively.
// Later mappings override earlier ones for the same key.
type GenreIndex struct {
	canonical map[string]string
	emoji     map[string]string
}

// NewGenreIndex builds an index from mappings in order
func NewGenreIndex(mappings []domain.GenreMapping) *GenreIndex {
	idx := &GenreIndex{
		canonical: make(map[string]string),
		emoji:     make(map[string]string),
	}
	for _, m := range mappings {
		for _, inc := range m.Includes {
			key := strings.ToLower(strings.TrimSpace(inc))
			if key == "" {
				continue
			}
			idx.canonical[key] = m.Name
		}
		if name := strings.TrimSpace(m.Name); name != "" {
			idx.canonical[strings.ToLower(name)] = m.Name
			if e := strings.TrimSpace(m.Emoji); e != "" {
				idx.emoji[m.Name] = e
			}
		}
	}
	return idx
}

// Canonical returns the display name for a raw genre, or the trimmed raw
// value when no mapping covers it
func (idx *GenreIndex) Canonical(raw string) string {
	raw = strings.TrimSpace(raw)
	if name, ok := idx.canonical[strings.ToLower(raw)]; ok {
		return name
	}
	return raw
}

// Genres returns a game's canonical genres, deduplicated in first-seen order
func (idx *GenreIndex) Genres(game domain.Game) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range game.Genre {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		name := idx.Canonical(raw)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Emoji returns the emoji configured for a canonical genre name, falling
// back to one picked from keywords in the name
func (idx *GenreIndex) Emoji(name string) string {
	if e := idx.emoji[name]; e != "" {
		return e
	}
	return FallbackEmoji(name)
}

// fallbackEmojis is checked in order; the first entry with a keyword
// contained in the lowercased name wins
var fallbackEmojis = []struct {
	keywords []string
	emoji    string
}{
	{[]string{"mahjong"}, "🀄"},
	{[]string{"solitaire", "klondike", "card"}, "🃏"},
	{[]string{"puzzle", "match"}, "🧩"},
	{[]string{"hidden"}, "🔎"},
	{[]string{"bubble"}, "🫧"},
	{[]string{"pinball"}, "🎱"},
	{[]string{"arcade"}, "🕹️"},
	{[]string{"brain"}, "🧠"},
	{[]string{"skill"}, "🎯"},
	{[]string{"idle", "incremental", "clicker"}, "⏱️"},
	{[]string{"management", "simulation", "craft", "building"}, "⚙️"},
}

const defaultGenreEmoji = "🏷️"

// FallbackEmoji picks an emoji for a genre without one configured. Blank
// names get none.
func FallbackEmoji(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	for _, f := range fallbackEmojis {
		for _, kw := range f.keywords {
			if strings.Contains(n, kw) {
				return f.emoji
			}
		}
	}
	return defaultGenreEmoji
}

func sanitizeEmoji(input string) string {
	s := strings.TrimSpace(input)
	if r := []rune(s); len(r) > maxEmojiRunes {
		s = string(r[:maxEmojiRunes])
	}
	return s
}

func normalizeMapping(id string, req domain.GenreMappingRequest) domain.GenreMapping {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultGenreName
	}
	includes := domain.CleanList(req.Includes)
	if includes == nil {
		includes = []string{}
	}
	return domain.GenreMapping{
		ID:       id,
		Name:     name,
		Includes: includes,
		Emoji:    sanitizeEmoji(req.Emoji),
	}
}

// ListGenreMappings returns every genre mapping
func (s *CatalogService) ListGenreMappings(ctx context.Context) ([]domain.GenreMapping, error) {
	return s.store.ListGenreMappings(ctx)
}

// CreateGenreMapping stores a new mapping. A missing or already used id is
// replaced with the next generated one.
func (s *CatalogService) CreateGenreMapping(ctx context.Context, req domain.GenreMappingRequest) (*domain.GenreMapping, error) {
	existing, err := s.store.ListGenreMappings(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(existing))
	for _, m := range existing {
		ids = append(ids, m.ID)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" || containsID(ids, id) {
		id = nextID(s.config.GenreIDPrefix, s.config.IDWidth, ids)
	}

	return s.saveGenreMapping(ctx, normalizeMapping(id, req))
}

// PutGenreMapping creates or replaces the mapping with the given id
func (s *CatalogService) PutGenreMapping(ctx context.Context, id string, req domain.GenreMappingRequest) (*domain.GenreMapping, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.saveGenreMapping(ctx, normalizeMapping(id, req))
}

func (s *CatalogService) saveGenreMapping(ctx context.Context, item domain.GenreMapping) (*domain.GenreMapping, error) {
	saved, err := s.store.UpsertGenreMapping(ctx, item)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventGenreUpserted, domain.TopicGenres, saved.ID, saved)
	return saved, nil
}

// DeleteGenreMapping removes a mapping
func (s *CatalogService) DeleteGenreMapping(ctx context.Context, id string) error {
	ok, err := s.store.DeleteGenreMapping(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrGenreMappingNotFound
	}
	s.publish(ctx, domain.EventGenreDeleted, domain.TopicGenres, id, nil)
	return nil
}

// CanonicalGenres returns the canonical genres of a game under the current
// mappings
func (s *CatalogService) CanonicalGenres(ctx context.Context, game domain.Game) ([]string, error) {
	mappings, err := s.store.ListGenreMappings(ctx)
	if err != nil {
		return nil, err
	}
	return NewGenreIndex(mappings).Genres(game), nil
}

// GenreCounts counts games per canonical genre, most populated first and
// ties broken by name
func (s *CatalogService) GenreCounts(ctx context.Context) ([]domain.GenreCount, error) {
	mappings, err := s.store.ListGenreMappings(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}

	idx := NewGenreIndex(mappings)
	counts := make(map[string]int)
	for _, g := range games {
		for _, name := range idx.Genres(g) {
			counts[name]++
		}
	}

	out := make([]domain.GenreCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.GenreCount{Name: name, Count: n, Emoji: idx.Emoji(name)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
