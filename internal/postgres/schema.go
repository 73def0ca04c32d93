package postgres

import (
	"context"
	"fmt"
	"sync"
)

// entityKind names a table group provisioned together
type entityKind string

const (
	kindGames         entityKind = "games"
	kindGenreMappings entityKind = "genre_mappings"
	kindSettings      entityKind = "app_settings"
	kindSlugRedirects entityKind = "slug_redirects"
)

var allKinds = []entityKind{kindGames, kindGenreMappings, kindSettings, kindSlugRedirects}

// schemaStatements are idempotent; later entries add columns and indexes
// that older deployments may be missing.
var schemaStatements = map[entityKind][]string{
	kindGames: {
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			slug TEXT,
			title TEXT NOT NULL,
			featured BOOLEAN,
			genre TEXT[],
			platforms TEXT[],
			mobile BOOLEAN,
			height INT,
			width INT,
			rating NUMERIC,
			released TEXT,
			thumbnail TEXT,
			description TEXT,
			tags TEXT[],
			url TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`ALTER TABLE games ADD COLUMN IF NOT EXISTS slug TEXT`,
		`ALTER TABLE games ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ DEFAULT NOW()`,
		`CREATE INDEX IF NOT EXISTS games_slug_idx ON games (slug)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS games_slug_unique ON games (slug) WHERE slug IS NOT NULL`,
	},
	kindGenreMappings: {
		`CREATE TABLE IF NOT EXISTS genre_mappings (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			includes TEXT[] NOT NULL DEFAULT '{}',
			emoji TEXT
		)`,
		`ALTER TABLE genre_mappings ADD COLUMN IF NOT EXISTS emoji TEXT`,
	},
	kindSettings: {
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value JSONB
		)`,
	},
	kindSlugRedirects: {
		`CREATE TABLE IF NOT EXISTS slug_redirects (
			old_slug TEXT PRIMARY KEY,
			game_id TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS slug_redirects_game_id_idx ON slug_redirects (game_id)`,
	},
}

// schemaState remembers which entity kinds have been provisioned by this
// Store. A kind is marked only after all its statements succeed, so a
// failed attempt is retried on the next call.
type schemaState struct {
	mu      sync.Mutex
	ensured map[entityKind]bool
}

func newSchemaState() *schemaState {
	return &schemaState{ensured: make(map[entityKind]bool)}
}

func (st *schemaState) reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.ensured = make(map[entityKind]bool)
}

func (st *schemaState) isEnsured(kind entityKind) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.ensured[kind]
}

// ensure provisions the tables behind the given kinds on first use
func (s *Store) ensure(ctx context.Context, kinds ...entityKind) error {
	s.schema.mu.Lock()
	defer s.schema.mu.Unlock()

	for _, kind := range kinds {
		if s.schema.ensured[kind] {
			continue
		}
		for _, stmt := range schemaStatements[kind] {
			if _, err := s.pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("provisioning %s: %w", kind, err)
			}
		}
		s.schema.ensured[kind] = true
		s.logger.Info("database schema ensured", "table", string(kind))
	}
	return nil
}

// EnsureSchema provisions every table up front. Calling it is optional;
// each operation provisions what it touches on first use.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.ensure(ctx, allKinds...)
}

// ResetSchemaState forgets which tables were provisioned so the next
// operation checks again
func (s *Store) ResetSchemaState() {
	s.schema.reset()
}
