package storage

import (
	"context"
	"errors"
	"io"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arcade-catalog/internal/domain"
	"github.com/arcade-catalog/internal/filestore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newFileStore(t *testing.T) *Store {
	t.Helper()
	backend, err := filestore.NewStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	return NewStore(backend, testLogger())
}

func strPtr(s string) *string { return &s }

func TestStore_RoundTripWithSlugChange(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	_, err := store.AddGame(ctx, domain.Game{ID: "g-0001", Title: "Foo", URL: "https://x", Thumbnail: "https://y"})
	require.NoError(t, err)

	game, ok, err := store.GetGameByID(ctx, "g-0001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "foo", game.Slug)
	assert.True(t, game.IsPlayable())

	_, ok, err = store.UpdateGame(ctx, "g-0001", domain.GamePatch{Slug: strPtr("foo-game")})
	require.NoError(t, err)
	require.True(t, ok)

	id, ok, err := store.GetGameIDByOldSlug(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "g-0001", id)

	_, ok, err = store.GetGameByID(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, ok)

	game, ok, err = store.GetGameByID(ctx, "foo-game")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "g-0001", game.ID)
}

func TestStore_CollidingSlugGetsSuffix(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	a, err := store.AddGame(ctx, domain.Game{ID: "a", Slug: "puzzle", Title: "A"})
	require.NoError(t, err)
	b, err := store.AddGame(ctx, domain.Game{ID: "b", Slug: "puzzle", Title: "B"})
	require.NoError(t, err)

	assert.Equal(t, "puzzle", a.Slug)
	assert.Equal(t, "puzzle-2", b.Slug)

	got, ok, err := store.GetGameByID(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "puzzle", got.Slug)
}

func TestStore_SlugsStayDistinct(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := store.AddGame(ctx, domain.Game{ID: id, Title: "Same Title"})
		require.NoError(t, err)
	}
	_, _, err := store.UpdateGame(ctx, "d", domain.GamePatch{Slug: strPtr("same-title")})
	require.NoError(t, err)

	games, err := store.ListGames(ctx)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, g := range games {
		require.NotEmpty(t, g.Slug)
		assert.False(t, seen[g.Slug], "duplicate slug %s", g.Slug)
		seen[g.Slug] = true
	}
}

func TestStore_AddGameKeepsOwnSlugOnReplace(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	_, err := store.AddGame(ctx, domain.Game{ID: "a", Title: "Foo"})
	require.NoError(t, err)
	saved, err := store.AddGame(ctx, domain.Game{ID: "a", Title: "Foo", Description: "again"})
	require.NoError(t, err)

	assert.Equal(t, "foo", saved.Slug)
	games, err := store.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "again", games[0].Description)
}

func TestStore_AddGameReplaceWithNewSlugRecordsRedirect(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	_, err := store.AddGame(ctx, domain.Game{ID: "g-1", Title: "Foo"})
	require.NoError(t, err)
	saved, err := store.AddGame(ctx, domain.Game{ID: "g-1", Title: "Bar"})
	require.NoError(t, err)
	assert.Equal(t, "bar", saved.Slug)

	id, ok, err := store.GetGameIDByOldSlug(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "g-1", id)

	game, ok, err := store.GetGameByID(ctx, "bar")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "g-1", game.ID)
}

func TestStore_ConcurrentAddsGetDistinctSlugs(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.AddGame(ctx, domain.Game{ID: fmt.Sprintf("g-%02d", i), Title: "Puzzle"})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	games, err := store.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, n)
	seen := make(map[string]bool, n)
	for _, g := range games {
		assert.False(t, seen[g.Slug], "duplicate slug %q", g.Slug)
		seen[g.Slug] = true
	}
	assert.True(t, seen["puzzle"])
}

func TestStore_RedirectCreationRule(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	_, err := store.UpsertMany(ctx, []domain.Game{
		{ID: "g-1", Slug: "foo", Title: "Foo"},
		{ID: "g-2", Title: "No Slug"},
	})
	require.NoError(t, err)

	_, _, err = store.UpdateGame(ctx, "g-1", domain.GamePatch{Slug: strPtr("bar")})
	require.NoError(t, err)
	_, _, err = store.UpdateGame(ctx, "g-2", domain.GamePatch{Slug: strPtr("baz")})
	require.NoError(t, err)
	_, _, err = store.UpdateGame(ctx, "g-1", domain.GamePatch{Title: strPtr("Renamed")})
	require.NoError(t, err)
	_, _, err = store.UpdateGame(ctx, "g-1", domain.GamePatch{Slug: strPtr("bar")})
	require.NoError(t, err)

	redirects, err := store.ListSlugRedirects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SlugRedirect{{OldSlug: "foo", GameID: "g-1"}}, redirects)
}

func TestStore_PartialPatchKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	_, err := store.AddGame(ctx, domain.Game{ID: "g-1", Title: "Foo", Description: "keep me", Tags: []string{"a"}})
	require.NoError(t, err)

	rating := 4.5
	updated, ok, err := store.UpdateGame(ctx, "g-1", domain.GamePatch{Rating: &rating})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, []string{"a"}, updated.Tags)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 4.5, *updated.Rating)
}

func TestStore_UpdateMissingGame(t *testing.T) {
	store := newFileStore(t)

	_, ok, err := store.UpdateGame(context.Background(), "missing", domain.GamePatch{Title: strPtr("x")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	rating := 3.0
	g := domain.Game{ID: "g-1", Slug: "foo", Title: "Foo", Rating: &rating, Genre: []string{"Arcade"}}

	for i := 0; i < 2; i++ {
		n, err := store.UpsertMany(ctx, []domain.Game{g})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	games, err := store.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, g, games[0])
}

func TestStore_UpsertEmptyBatch(t *testing.T) {
	backend := new(MockBackend)
	store := NewStore(backend, testLogger())

	n, err := store.UpsertMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	backend.AssertNotCalled(t, "UpsertGames", mock.Anything, mock.Anything)
}

func TestStore_DeleteAllCount(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	_, err := store.UpsertMany(ctx, []domain.Game{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}, {ID: "3", Title: "C"}})
	require.NoError(t, err)

	n, err := store.DeleteAllGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	games, err := store.ListGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestStore_DeleteKeepsRedirects(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	_, err := store.AddGame(ctx, domain.Game{ID: "g-1", Title: "Foo"})
	require.NoError(t, err)
	_, _, err = store.UpdateGame(ctx, "g-1", domain.GamePatch{Slug: strPtr("bar")})
	require.NoError(t, err)

	removed, ok, err := store.DeleteGame(ctx, "g-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bar", removed.Slug)

	id, ok, err := store.GetGameIDByOldSlug(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "g-1", id)

	_, ok, err = store.DeleteGame(ctx, "g-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RedirectFailureDoesNotFailUpdate(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	store := NewStore(backend, testLogger())

	current := &domain.Game{ID: "g-1", Slug: "foo", Title: "Foo"}
	updated := &domain.Game{ID: "g-1", Slug: "bar", Title: "Foo"}
	backend.On("GetGame", ctx, "g-1").Return(current, true, nil)
	backend.On("SlugExists", ctx, "bar", "g-1").Return(false, nil)
	backend.On("PatchGame", ctx, "g-1", mock.Anything).Return(updated, true, nil)
	backend.On("PutSlugRedirect", ctx, "foo", "g-1").Return(errors.New("disk full"))

	got, ok, err := store.UpdateGame(ctx, "g-1", domain.GamePatch{Slug: strPtr("bar")})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bar", got.Slug)
	backend.AssertExpectations(t)
}

func TestStore_AddSlugRedirectRejectsEmpty(t *testing.T) {
	backend := new(MockBackend)
	store := NewStore(backend, testLogger())

	assert.False(t, store.AddSlugRedirect(context.Background(), "", "g-1"))
	assert.False(t, store.AddSlugRedirect(context.Background(), "foo", ""))
	backend.AssertNotCalled(t, "PutSlugRedirect", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_BackendErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	store := NewStore(backend, testLogger())

	backend.On("ListGames", ctx).Return([]domain.Game(nil), errors.New("connection refused"))

	_, err := store.ListGames(ctx)
	assert.ErrorContains(t, err, "connection refused")
}

func TestStore_GenreMappingsAndSettings(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	saved, err := store.UpsertGenreMapping(ctx, domain.GenreMapping{ID: "gm-0001", Name: "Puzzle"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, saved.Includes)

	items, err := store.ListGenreMappings(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	ok, err := store.DeleteGenreMapping(ctx, "gm-0001")
	require.NoError(t, err)
	assert.True(t, ok)

	mode, err := SettingAs(ctx, store, "gridVariation", "three")
	require.NoError(t, err)
	assert.Equal(t, "three", mode)

	require.NoError(t, store.SetSetting(ctx, "gridVariation", "two"))
	mode, err = SettingAs(ctx, store, "gridVariation", "three")
	require.NoError(t, err)
	assert.Equal(t, "two", mode)
}
