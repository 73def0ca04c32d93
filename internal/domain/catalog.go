package domain

import "encoding/json"

// GenreMapping groups raw genre strings under one display category
type GenreMapping struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Includes []string `json:"includes"`
	Emoji    string   `json:"emoji,omitempty"`
}

// SlugRedirect points a historical slug at the game that used to carry it
type SlugRedirect struct {
	OldSlug string `json:"oldSlug"`
	GameID  string `json:"gameId"`
}

// RedirectInfo is a SlugRedirect enriched with the target game's current state
type RedirectInfo struct {
	OldSlug     string  `json:"oldSlug"`
	GameID      string  `json:"gameId"`
	CurrentSlug *string `json:"currentSlug"`
	Title       *string `json:"title"`
}

// Setting is a site-wide key/value toggle
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Backup is the export/restore document
type Backup struct {
	Games []Game `json:"games"`
}

// ResolvedGame is a game found by id, current slug or historical slug.
// RedirectedFrom holds the historical slug when one was followed.
type ResolvedGame struct {
	Game           Game   `json:"game"`
	RedirectedFrom string `json:"redirectedFrom,omitempty"`
}

// GenreMappingRequest represents a request to create or replace a genre mapping
type GenreMappingRequest struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name"`
	Includes StringList `json:"includes"`
	Emoji    string     `json:"emoji,omitempty"`
}

// GenreCount is a canonical genre with the number of games in it
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Emoji string `json:"emoji,omitempty"`
}

// BackfillResult reports how many redirects a backfill created
type BackfillResult struct {
	Created int `json:"created"`
}
