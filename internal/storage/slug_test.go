package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// takenSlugs is a SlugChecker over a fixed slug -> owner id table
type takenSlugs map[string]string

func (t takenSlugs) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	owner, ok := t[slug]
	if !ok {
		return false, nil
	}
	return excludeID == "" || owner != excludeID, nil
}

type failingChecker struct{}

func (failingChecker) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestEnsureUniqueSlug(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		taken     takenSlugs
		candidate string
		excludeID string
		want      string
	}{
		{name: "free", taken: takenSlugs{}, candidate: "puzzle", want: "puzzle"},
		{name: "first collision", taken: takenSlugs{"puzzle": "a"}, candidate: "puzzle", want: "puzzle-2"},
		{name: "skips taken suffixes", taken: takenSlugs{"puzzle": "a", "puzzle-2": "b"}, candidate: "puzzle", want: "puzzle-3"},
		{name: "continues numeric suffix", taken: takenSlugs{"level-7": "a"}, candidate: "level-7", want: "level-8"},
		{name: "own slug is free", taken: takenSlugs{"puzzle": "a"}, candidate: "puzzle", excludeID: "a", want: "puzzle"},
		{name: "trims", taken: takenSlugs{}, candidate: "  puzzle ", want: "puzzle"},
		{name: "empty stays empty", taken: takenSlugs{}, candidate: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EnsureUniqueSlug(ctx, tt.taken, tt.candidate, tt.excludeID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnsureUniqueSlug_FallsBackToTimestamp(t *testing.T) {
	taken := takenSlugs{"puzzle": "a"}
	for i := 2; i < 2+maxSlugAttempts; i++ {
		taken[fmt.Sprintf("puzzle-%d", i)] = "a"
	}

	pinned := time.UnixMilli(1700000000000)
	now = func() time.Time { return pinned }
	defer func() { now = time.Now }()

	got, err := EnsureUniqueSlug(context.Background(), taken, "puzzle", "")
	require.NoError(t, err)
	assert.Equal(t, "puzzle-1700000000000", got)
}

func TestEnsureUniqueSlug_PropagatesCheckerError(t *testing.T) {
	_, err := EnsureUniqueSlug(context.Background(), failingChecker{}, "puzzle", "")
	assert.ErrorContains(t, err, "connection refused")
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Foo":                   "foo",
		"  Super Mario Bros.  ": "super-mario-bros",
		"Café Déjà Vu":          "cafe-deja-vu",
		"Tic--Tac   Toe!":       "tic-tac-toe",
		"---":                   "",
		"2048":                  "2048",
		"Rock & Roll Racing":    "rock-roll-racing",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestSlugify_TruncatesToEightyCharacters(t *testing.T) {
	title := ""
	for i := 0; i < 30; i++ {
		title += "abc "
	}
	got := Slugify(title)
	assert.LessOrEqual(t, len(got), maxSlugLength)
	assert.NotEqual(t, '-', rune(got[len(got)-1]))
}

func TestSanitizeSlug(t *testing.T) {
	assert.Equal(t, "foo-game", SanitizeSlug("  Foo-Game "))
	assert.Equal(t, "foogame", SanitizeSlug("foo game"))
	assert.Equal(t, "a-b", SanitizeSlug("--a---b--"))
	assert.Equal(t, "", SanitizeSlug("!!!"))
}
