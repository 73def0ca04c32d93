package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/domain"
)

// Store provides PostgreSQL-based catalog persistence
type Store struct {
	pool      *pgxpool.Pool
	logger    *slog.Logger
	schema    *schemaState
	chunkSize int
}

// NewStore creates a connection pool for databaseURL and verifies it
func NewStore(ctx context.Context, databaseURL string, cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{
		pool:      pool,
		logger:    logger,
		schema:    newSchemaState(),
		chunkSize: maxRowsPerStatement(cfg.UpsertChunkSize),
	}, nil
}

// Close closes the database connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UsingDatabase is always true for this backend
func (s *Store) UsingDatabase() bool {
	return true
}

// scanGame reads one row selected with gameColumns
func scanGame(row pgx.Row) (*domain.Game, error) {
	var (
		g                                               domain.Game
		slug, released, thumbnail, description, gameURL *string
	)
	err := row.Scan(
		&g.ID, &slug, &g.Title, &g.Featured, &g.Genre, &g.Platforms, &g.Mobile,
		&g.Height, &g.Width, &g.Rating, &released, &thumbnail, &description,
		&g.Tags, &gameURL, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Slug = deref(slug)
	g.Released = deref(released)
	g.Thumbnail = deref(thumbnail)
	g.Description = deref(description)
	g.URL = deref(gameURL)
	return &g, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// queryGame runs a single-row game query, mapping no rows to absence
func (s *Store) queryGame(ctx context.Context, query string, args ...interface{}) (*domain.Game, bool, error) {
	game, err := scanGame(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return game, true, nil
}

// ListGames returns every game ordered by id
func (s *Store) ListGames(ctx context.Context) ([]domain.Game, error) {
	if err := s.ensure(ctx, kindGames); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT `+gameColumns+` FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	games := []domain.Game{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating games: %w", err)
	}
	return games, nil
}

// GetGame returns the game with the given id
func (s *Store) GetGame(ctx context.Context, id string) (*domain.Game, bool, error) {
	if err := s.ensure(ctx, kindGames); err != nil {
		return nil, false, err
	}
	game, ok, err := s.queryGame(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	if err != nil {
		return nil, false, fmt.Errorf("getting game: %w", err)
	}
	return game, ok, nil
}

// GetGameBySlug returns the game currently carrying slug
func (s *Store) GetGameBySlug(ctx context.Context, slug string) (*domain.Game, bool, error) {
	if slug == "" {
		return nil, false, nil
	}
	if err := s.ensure(ctx, kindGames); err != nil {
		return nil, false, err
	}
	game, ok, err := s.queryGame(ctx, `SELECT `+gameColumns+` FROM games WHERE slug = $1 LIMIT 1`, slug)
	if err != nil {
		return nil, false, fmt.Errorf("getting game by slug: %w", err)
	}
	return game, ok, nil
}

// SlugExists reports whether a game other than excludeID carries slug
func (s *Store) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	if err := s.ensure(ctx, kindGames); err != nil {
		return false, err
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM games WHERE slug = $1 AND ($2 = '' OR id <> $2))`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return exists, nil
}

// PutGame inserts the game or replaces the row with the same id
func (s *Store) PutGame(ctx context.Context, game domain.Game) (*domain.Game, error) {
	if err := s.ensure(ctx, kindGames); err != nil {
		return nil, err
	}

	query := buildUpsertQuery(1) + ` RETURNING ` + gameColumns
	saved, err := scanGame(s.pool.QueryRow(ctx, query, gameArgs(game)...))
	if err != nil {
		return nil, fmt.Errorf("inserting game: %w", err)
	}
	return saved, nil
}

// PatchGame updates only the fields present in patch
func (s *Store) PatchGame(ctx context.Context, id string, patch domain.GamePatch) (*domain.Game, bool, error) {
	if err := s.ensure(ctx, kindGames); err != nil {
		return nil, false, err
	}

	query, args := buildPatchQuery(id, patch)
	game, ok, err := s.queryGame(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("updating game: %w", err)
	}
	return game, ok, nil
}

// DeleteGame removes a game and returns the removed row
func (s *Store) DeleteGame(ctx context.Context, id string) (*domain.Game, bool, error) {
	if err := s.ensure(ctx, kindGames); err != nil {
		return nil, false, err
	}
	game, ok, err := s.queryGame(ctx, `DELETE FROM games WHERE id = $1 RETURNING `+gameColumns, id)
	if err != nil {
		return nil, false, fmt.Errorf("deleting game: %w", err)
	}
	return game, ok, nil
}

// UpsertGames inserts or replaces games by id in one transaction and
// returns the number of input items
func (s *Store) UpsertGames(ctx context.Context, games []domain.Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}
	if err := s.ensure(ctx, kindGames); err != nil {
		return 0, err
	}

	rows := dedupeGames(games)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(rows); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		args := make([]interface{}, 0, len(chunk)*len(gameInsertColumns))
		for _, g := range chunk {
			args = append(args, gameArgs(g)...)
		}
		if _, err := tx.Exec(ctx, buildUpsertQuery(len(chunk)), args...); err != nil {
			return 0, fmt.Errorf("upserting games %d-%d: %w", start, end, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Info("games upserted", "count", len(games), "distinct", len(rows))
	return len(games), nil
}

// DeleteAllGames removes every game and returns the number removed
func (s *Store) DeleteAllGames(ctx context.Context) (int, error) {
	if err := s.ensure(ctx, kindGames); err != nil {
		return 0, err
	}

	var count int
	err := s.pool.QueryRow(ctx,
		`WITH deleted AS (DELETE FROM games RETURNING 1) SELECT COUNT(*) FROM deleted`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("deleting games: %w", err)
	}
	return count, nil
}

// ListGenreMappings returns every genre mapping ordered by id
func (s *Store) ListGenreMappings(ctx context.Context) ([]domain.GenreMapping, error) {
	if err := s.ensure(ctx, kindGenreMappings); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT id, name, includes, emoji FROM genre_mappings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying genre mappings: %w", err)
	}
	defer rows.Close()

	items := []domain.GenreMapping{}
	for rows.Next() {
		var (
			item  domain.GenreMapping
			emoji *string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Includes, &emoji); err != nil {
			return nil, fmt.Errorf("scanning genre mapping: %w", err)
		}
		if item.Includes == nil {
			item.Includes = []string{}
		}
		item.Emoji = deref(emoji)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating genre mappings: %w", err)
	}
	return items, nil
}

// UpsertGenreMapping inserts or replaces a genre mapping by id
func (s *Store) UpsertGenreMapping(ctx context.Context, item domain.GenreMapping) (*domain.GenreMapping, error) {
	if err := s.ensure(ctx, kindGenreMappings); err != nil {
		return nil, err
	}
	if item.Includes == nil {
		item.Includes = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO genre_mappings (id, name, includes, emoji)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			includes = EXCLUDED.includes,
			emoji = EXCLUDED.emoji
	`, item.ID, item.Name, item.Includes, nullIfEmpty(item.Emoji))
	if err != nil {
		return nil, fmt.Errorf("upserting genre mapping: %w", err)
	}
	return &item, nil
}

// DeleteGenreMapping removes a genre mapping, reporting whether it existed
func (s *Store) DeleteGenreMapping(ctx context.Context, id string) (bool, error) {
	if err := s.ensure(ctx, kindGenreMappings); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM genre_mappings WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting genre mapping: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetSetting returns the JSON value stored under key
func (s *Store) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if err := s.ensure(ctx, kindSettings); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting setting: %w", err)
	}
	raw, ok := settingValue(value)
	return raw, ok, nil
}

// SetSetting stores value under key
func (s *Store) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	if err := s.ensure(ctx, kindSettings); err != nil {
		return err
	}
	if value == nil {
		value = json.RawMessage("null")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_settings (key, value) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("setting value: %w", err)
	}
	return nil
}

// PutSlugRedirect maps oldSlug to gameID. The row is only written while the
// game exists; deleting the game later leaves the redirect in place.
func (s *Store) PutSlugRedirect(ctx context.Context, oldSlug, gameID string) error {
	if err := s.ensure(ctx, kindGames, kindSlugRedirects); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO slug_redirects (old_slug, game_id)
		SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM games WHERE id = $2)
		ON CONFLICT (old_slug) DO UPDATE SET game_id = EXCLUDED.game_id
	`, oldSlug, gameID)
	if err != nil {
		return fmt.Errorf("inserting slug redirect: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("redirect target %s: %w", gameID, domain.ErrGameNotFound)
	}
	return nil
}

// GetSlugRedirect resolves oldSlug to a game id
func (s *Store) GetSlugRedirect(ctx context.Context, oldSlug string) (string, bool, error) {
	if err := s.ensure(ctx, kindSlugRedirects); err != nil {
		return "", false, err
	}

	var gameID string
	err := s.pool.QueryRow(ctx, `SELECT game_id FROM slug_redirects WHERE old_slug = $1`, oldSlug).Scan(&gameID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting slug redirect: %w", err)
	}
	return gameID, true, nil
}

// ListSlugRedirects returns every redirect ordered by old slug
func (s *Store) ListSlugRedirects(ctx context.Context) ([]domain.SlugRedirect, error) {
	if err := s.ensure(ctx, kindSlugRedirects); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT old_slug, game_id FROM slug_redirects ORDER BY old_slug`)
	if err != nil {
		return nil, fmt.Errorf("querying slug redirects: %w", err)
	}
	defer rows.Close()

	items := []domain.SlugRedirect{}
	for rows.Next() {
		var item domain.SlugRedirect
		if err := rows.Scan(&item.OldSlug, &item.GameID); err != nil {
			return nil, fmt.Errorf("scanning slug redirect: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slug redirects: %w", err)
	}
	return items, nil
}

// DeleteSlugRedirect removes a redirect, reporting whether it existed
func (s *Store) DeleteSlugRedirect(ctx context.Context, oldSlug string) (bool, error) {
	if err := s.ensure(ctx, kindSlugRedirects); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM slug_redirects WHERE old_slug = $1`, oldSlug)
	if err != nil {
		return false, fmt.Errorf("deleting slug redirect: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
