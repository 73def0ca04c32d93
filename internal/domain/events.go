package domain

import "time"

// Event types published on every catalog mutation
const (
	EventGameCreated     = "game.created"
	EventGameUpdated     = "game.updated"
	EventGameDeleted     = "game.deleted"
	EventGamesImported   = "games.imported"
	EventGamesCleared    = "games.cleared"
	EventGenreUpserted   = "genre.upserted"
	EventGenreDeleted    = "genre.deleted"
	EventRedirectCreated = "redirect.created"
	EventRedirectDeleted = "redirect.deleted"
	EventSettingChanged  = "setting.changed"
)

// Event topics clients can subscribe to
const (
	TopicGames     = "games"
	TopicGenres    = "genres"
	TopicRedirects = "redirects"
	TopicSettings  = "settings"
)

// CatalogEvent describes a change to catalog state
type CatalogEvent struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Topic     string      `json:"topic"`
	EntityID  string      `json:"entityId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
