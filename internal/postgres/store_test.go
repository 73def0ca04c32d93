package postgres

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/domain"
)

// testDatabaseURLEnv points the integration suite at a disposable database
const testDatabaseURLEnv = "CATALOG_TEST_DATABASE_URL"

type StoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
}

func TestStore(t *testing.T) {
	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseURLEnv)
	}

	cfg := config.DefaultConfig().Postgres
	cfg.UpsertChunkSize = 2
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	store, err := NewStore(context.Background(), url, &cfg, logger)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer store.Close()

	suite.Run(t, &StoreTestSuite{ctx: context.Background(), store: store})
}

func (s *StoreTestSuite) SetupTest() {
	s.store.ResetSchemaState()
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
	for _, table := range []string{"games", "genre_mappings", "app_settings", "slug_redirects"} {
		_, err := s.store.pool.Exec(s.ctx, "TRUNCATE "+table)
		s.Require().NoError(err)
	}
}

func (s *StoreTestSuite) TestEnsureMarksKinds() {
	s.store.ResetSchemaState()
	s.False(s.store.schema.isEnsured(kindGames))

	_, err := s.store.ListGames(s.ctx)
	s.Require().NoError(err)

	s.True(s.store.schema.isEnsured(kindGames))
	s.False(s.store.schema.isEnsured(kindSettings))
}

func (s *StoreTestSuite) TestPutGetAndPatchGame() {
	rating := 4.25
	saved, err := s.store.PutGame(s.ctx, domain.Game{ID: "g-0001", Slug: "foo", Title: "Foo", Rating: &rating, Genre: []string{"Puzzle"}})
	s.Require().NoError(err)
	s.Equal("foo", saved.Slug)
	s.Require().NotNil(saved.UpdatedAt)
	s.Require().NotNil(saved.Rating)
	s.InDelta(4.25, *saved.Rating, 0.0001)

	bySlug, ok, err := s.store.GetGameBySlug(s.ctx, "foo")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("g-0001", bySlug.ID)

	title := "Foo Game"
	patched, ok, err := s.store.PatchGame(s.ctx, "g-0001", domain.GamePatch{Title: &title})
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("Foo Game", patched.Title)
	s.Equal("foo", patched.Slug)
	s.Equal([]string{"Puzzle"}, patched.Genre)
	s.False(patched.UpdatedAt.Before(*saved.UpdatedAt))

	_, ok, err = s.store.PatchGame(s.ctx, "missing", domain.GamePatch{Title: &title})
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreTestSuite) TestSlugExistsExcludesOwnID() {
	_, err := s.store.PutGame(s.ctx, domain.Game{ID: "a", Slug: "puzzle", Title: "A"})
	s.Require().NoError(err)

	taken, err := s.store.SlugExists(s.ctx, "puzzle", "")
	s.Require().NoError(err)
	s.True(taken)

	taken, err = s.store.SlugExists(s.ctx, "puzzle", "a")
	s.Require().NoError(err)
	s.False(taken)
}

func (s *StoreTestSuite) TestUpsertGamesAcrossChunks() {
	games := []domain.Game{
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B"},
		{ID: "c", Title: "C"},
		{ID: "a", Title: "A2"},
	}

	n, err := s.store.UpsertGames(s.ctx, games)
	s.Require().NoError(err)
	s.Equal(4, n)

	n, err = s.store.UpsertGames(s.ctx, games)
	s.Require().NoError(err)
	s.Equal(4, n)

	all, err := s.store.ListGames(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("A2", all[0].Title)

	removed, err := s.store.DeleteAllGames(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, removed)

	removed, err = s.store.DeleteAllGames(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, removed)
}

func (s *StoreTestSuite) TestRedirectRequiresExistingGame() {
	err := s.store.PutSlugRedirect(s.ctx, "old", "missing")
	s.ErrorIs(err, domain.ErrGameNotFound)

	_, err = s.store.PutGame(s.ctx, domain.Game{ID: "g-0001", Title: "Foo"})
	s.Require().NoError(err)
	s.Require().NoError(s.store.PutSlugRedirect(s.ctx, "old", "g-0001"))

	_, ok, err := s.store.DeleteGame(s.ctx, "g-0001")
	s.Require().NoError(err)
	s.True(ok)

	id, ok, err := s.store.GetSlugRedirect(s.ctx, "old")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("g-0001", id)

	deleted, err := s.store.DeleteSlugRedirect(s.ctx, "old")
	s.Require().NoError(err)
	s.True(deleted)
}

func (s *StoreTestSuite) TestSettingsAndGenres() {
	s.Require().NoError(s.store.SetSetting(s.ctx, "grid", json.RawMessage(`"two"`)))
	value, ok, err := s.store.GetSetting(s.ctx, "grid")
	s.Require().NoError(err)
	s.True(ok)
	s.JSONEq(`"two"`, string(value))

	_, ok, err = s.store.GetSetting(s.ctx, "missing")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.SetSetting(s.ctx, "cleared", json.RawMessage(`null`)))
	_, ok, err = s.store.GetSetting(s.ctx, "cleared")
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.store.UpsertGenreMapping(s.ctx, domain.GenreMapping{ID: "gm-0001", Name: "Puzzle"})
	s.Require().NoError(err)
	items, err := s.store.ListGenreMappings(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal([]string{}, items[0].Includes)
}
