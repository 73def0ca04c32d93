package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arcade-catalog/internal/domain"
	"github.com/arcade-catalog/internal/storage"
)

// ExportBackup returns the whole catalog in backup form
func (s *CatalogService) ExportBackup(ctx context.Context) (*domain.Backup, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Backup{Games: games}, nil
}

// ParseBackup accepts either a bare array of games or {"games": [...]}.
// Items are decoded loosely: entries without a string id and title are
// dropped, and other fields are coerced where possible.
func ParseBackup(data []byte) ([]domain.Game, error) {
	data = bytes.TrimSpace(data)
	var items []map[string]interface{}

	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
	} else {
		var wrapped struct {
			Games []map[string]interface{} `json:"games"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
		if wrapped.Games == nil {
			return nil, fmt.Errorf("%w: expected an array or {games: []}", domain.ErrInvalidRequest)
		}
		items = wrapped.Games
	}

	games := make([]domain.Game, 0, len(items))
	for _, item := range items {
		if g, ok := gameFromLoose(item); ok {
			games = append(games, g)
		}
	}
	return games, nil
}

func gameFromLoose(m map[string]interface{}) (domain.Game, bool) {
	id, idOK := m["id"].(string)
	title, titleOK := m["title"].(string)
	if !idOK || !titleOK {
		return domain.Game{}, false
	}
	return domain.Game{
		ID:          id,
		Slug:        looseString(m["slug"]),
		Title:       title,
		Featured:    looseBool(m["featured"]),
		Genre:       looseList(m["genre"]),
		Platforms:   looseList(m["platforms"]),
		Mobile:      looseBool(m["mobile"]),
		Height:      looseFloat(m["height"]),
		Width:       looseFloat(m["width"]),
		Rating:      looseFloat(m["rating"]),
		Released:    looseString(m["released"]),
		Thumbnail:   looseString(m["thumbnail"]),
		Description: looseString(m["description"]),
		Tags:        looseList(m["tags"]),
		URL:         looseString(m["url"]),
	}, true
}

func looseString(v interface{}) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func looseBool(v interface{}) *bool {
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case string:
		switch x {
		case "true":
			b = true
		case "false":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

func looseFloat(v interface{}) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func looseList(v interface{}) []string {
	switch x := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case nil:
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return domain.CleanList(out)
	case string:
		return domain.CleanList(strings.FieldsFunc(x, func(r rune) bool {
			return r == ',' || r == '\n'
		}))
	}
	return nil
}

// normalizeImported trims ids and titles, drops entries missing either and
// derives slugs from titles where absent
func normalizeImported(games []domain.Game) []domain.Game {
	out := make([]domain.Game, 0, len(games))
	for _, g := range games {
		g.ID = strings.TrimSpace(g.ID)
		if g.ID == "" || strings.TrimSpace(g.Title) == "" {
			continue
		}
		if strings.TrimSpace(g.Slug) == "" {
			g.Slug = storage.Slugify(g.Title)
		}
		g.UpdatedAt = nil
		out = append(out, g)
	}
	return out
}

// RestoreBackup upserts every valid game from a backup and returns how many
// were written
func (s *CatalogService) RestoreBackup(ctx context.Context, games []domain.Game) (int, error) {
	return s.importGames(ctx, games, "restore")
}

// ImportGames upserts a batch of games arriving from a feed
func (s *CatalogService) ImportGames(ctx context.Context, games []domain.Game) (int, error) {
	return s.importGames(ctx, games, "feed")
}

func (s *CatalogService) importGames(ctx context.Context, games []domain.Game, source string) (int, error) {
	normalized := normalizeImported(games)
	n, err := s.store.UpsertMany(ctx, normalized)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("games imported", "source", source, "count", n, "skipped", len(games)-len(normalized))
		s.publish(ctx, domain.EventGamesImported, domain.TopicGames, "", map[string]interface{}{
			"source": source,
			"count":  n,
		})
	}
	return n, nil
}
