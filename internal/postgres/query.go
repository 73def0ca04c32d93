package postgres

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/arcade-catalog/internal/domain"
)

// maxParams is the PostgreSQL bind parameter limit per statement
const maxParams = 65535

// gameColumns is the select list shared by every query returning games.
// rating is NUMERIC and the dimensions INT in the table, all cast so
// they scan into float64.
const gameColumns = `id, slug, title, featured, genre, platforms, mobile, height::float8, width::float8, rating::float8, released, thumbnail, description, tags, url, updated_at`

// gameInsertColumns are the caller-supplied columns in insert order
var gameInsertColumns = []string{
	"id", "slug", "title", "featured", "genre", "platforms", "mobile",
	"height", "width", "rating", "released", "thumbnail", "description", "tags", "url",
}

// gameConflictUpdate replaces every column of an existing row
var gameConflictUpdate = func() string {
	sets := make([]string, 0, len(gameInsertColumns))
	for _, col := range gameInsertColumns[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	sets = append(sets, "updated_at = NOW()")
	return strings.Join(sets, ", ")
}()

// nullIfEmpty maps an unset optional string to SQL NULL
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullIfEmptyList maps an unset list to SQL NULL
func nullIfEmptyList(l []string) interface{} {
	if len(l) == 0 {
		return nil
	}
	return l
}

// roundDimension maps a pixel dimension to the INT column, nil staying NULL
func roundDimension(f *float64) interface{} {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	return int64(math.Round(*f))
}

// gameArgs returns the bind values for one game in gameInsertColumns order
func gameArgs(g domain.Game) []interface{} {
	return []interface{}{
		g.ID,
		nullIfEmpty(g.Slug),
		g.Title,
		g.Featured,
		nullIfEmptyList(g.Genre),
		nullIfEmptyList(g.Platforms),
		g.Mobile,
		roundDimension(g.Height),
		roundDimension(g.Width),
		g.Rating,
		nullIfEmpty(g.Released),
		nullIfEmpty(g.Thumbnail),
		nullIfEmpty(g.Description),
		nullIfEmptyList(g.Tags),
		nullIfEmpty(g.URL),
	}
}

// placeholders returns "$offset+1,...,$offset+n"
func placeholders(n, offset int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return strings.Join(parts, ",")
}

// buildUpsertQuery returns one multi-row insert for rows games that
// replaces existing rows by id
func buildUpsertQuery(rows int) string {
	cols := len(gameInsertColumns)
	values := make([]string, rows)
	for i := 0; i < rows; i++ {
		values[i] = fmt.Sprintf("(%s, NOW())", placeholders(cols, i*cols))
	}
	return fmt.Sprintf(
		`INSERT INTO games (%s, updated_at) VALUES %s ON CONFLICT (id) DO UPDATE SET %s`,
		strings.Join(gameInsertColumns, ", "),
		strings.Join(values, ", "),
		gameConflictUpdate,
	)
}

// maxRowsPerStatement caps a chunk so it stays under the parameter limit
func maxRowsPerStatement(chunkSize int) int {
	limit := maxParams / len(gameInsertColumns)
	if chunkSize <= 0 || chunkSize > limit {
		return limit
	}
	return chunkSize
}

// dedupeGames keeps the last occurrence of each id at the position of its
// first occurrence. ON CONFLICT cannot touch the same row twice in one
// statement, so duplicates must be folded first.
func dedupeGames(games []domain.Game) []domain.Game {
	pos := make(map[string]int, len(games))
	out := make([]domain.Game, 0, len(games))
	for _, g := range games {
		if i, ok := pos[g.ID]; ok {
			out[i] = g
			continue
		}
		pos[g.ID] = len(out)
		out = append(out, g)
	}
	return out
}

// buildPatchQuery builds an UPDATE touching only the fields present in
// patch. updated_at is always refreshed.
func buildPatchQuery(id string, patch domain.GamePatch) (string, []interface{}) {
	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Slug != nil {
		add("slug", nullIfEmpty(*patch.Slug))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Featured != nil {
		add("featured", *patch.Featured)
	}
	if patch.Genre != nil {
		add("genre", nullIfEmptyList(domain.CleanList(*patch.Genre)))
	}
	if patch.Platforms != nil {
		add("platforms", nullIfEmptyList(domain.CleanList(*patch.Platforms)))
	}
	if patch.Mobile != nil {
		add("mobile", *patch.Mobile)
	}
	if patch.Height != nil {
		add("height", roundDimension(patch.Height))
	}
	if patch.Width != nil {
		add("width", roundDimension(patch.Width))
	}
	if patch.Rating != nil {
		add("rating", *patch.Rating)
	}
	if patch.Released != nil {
		add("released", nullIfEmpty(*patch.Released))
	}
	if patch.Thumbnail != nil {
		add("thumbnail", nullIfEmpty(*patch.Thumbnail))
	}
	if patch.Description != nil {
		add("description", nullIfEmpty(*patch.Description))
	}
	if patch.Tags != nil {
		add("tags", nullIfEmptyList(domain.CleanList(*patch.Tags)))
	}
	if patch.URL != nil {
		add("url", nullIfEmpty(*patch.URL))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE games SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), gameColumns,
	)
	return query, args
}

// settingValue treats SQL NULL and a stored JSON null as an unset setting
func settingValue(value []byte) (json.RawMessage, bool) {
	if v := bytes.TrimSpace(value); len(v) == 0 || string(v) == "null" {
		return nil, false
	}
	return json.RawMessage(value), true
}
