package domain

import (
	"strings"
	"time"
)

// Game represents a playable catalog entry
type Game struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug,omitempty"`
	Title       string     `json:"title"`
	Featured    *bool      `json:"featured,omitempty"`
	Genre       []string   `json:"genre,omitempty"`
	Platforms   []string   `json:"platforms,omitempty"`
	Mobile      *bool      `json:"mobile,omitempty"`
	Height      *float64   `json:"height,omitempty"`
	Width       *float64   `json:"width,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	Released    string     `json:"released,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	URL         string     `json:"url,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// IsPlayable reports whether the game can be listed on public pages
func (g *Game) IsPlayable() bool {
	return g.ID != "" && strings.TrimSpace(g.Thumbnail) != "" && strings.TrimSpace(g.URL) != ""
}

// GamePatch is a partial update of a game. Nil fields are left untouched.
// The id is never part of a patch.
type GamePatch struct {
	Slug        *string     `json:"slug,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Featured    *bool       `json:"featured,omitempty"`
	Genre       *StringList `json:"genre,omitempty"`
	Platforms   *StringList `json:"platforms,omitempty"`
	Mobile      *bool       `json:"mobile,omitempty"`
	Height      *float64    `json:"height,omitempty"`
	Width       *float64    `json:"width,omitempty"`
	Rating      *float64    `json:"rating,omitempty"`
	Released    *string     `json:"released,omitempty"`
	Thumbnail   *string     `json:"thumbnail,omitempty"`
	Description *string     `json:"description,omitempty"`
	Tags        *StringList `json:"tags,omitempty"`
	URL         *string     `json:"url,omitempty"`
}

// IsEmpty reports whether the patch carries no fields
func (p *GamePatch) IsEmpty() bool {
	return p.Slug == nil && p.Title == nil && p.Featured == nil && p.Genre == nil &&
		p.Platforms == nil && p.Mobile == nil && p.Height == nil && p.Width == nil &&
		p.Rating == nil && p.Released == nil && p.Thumbnail == nil &&
		p.Description == nil && p.Tags == nil && p.URL == nil
}

// Apply merges the patch onto a copy of g and returns it
func (p *GamePatch) Apply(g Game) Game {
	if p.Slug != nil {
		g.Slug = *p.Slug
	}
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Featured != nil {
		g.Featured = p.Featured
	}
	if p.Genre != nil {
		g.Genre = CleanList(*p.Genre)
	}
	if p.Platforms != nil {
		g.Platforms = CleanList(*p.Platforms)
	}
	if p.Mobile != nil {
		g.Mobile = p.Mobile
	}
	if p.Height != nil {
		g.Height = p.Height
	}
	if p.Width != nil {
		g.Width = p.Width
	}
	if p.Rating != nil {
		g.Rating = p.Rating
	}
	if p.Released != nil {
		g.Released = *p.Released
	}
	if p.Thumbnail != nil {
		g.Thumbnail = *p.Thumbnail
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Tags != nil {
		g.Tags = CleanList(*p.Tags)
	}
	if p.URL != nil {
		g.URL = *p.URL
	}
	return g
}

// CreateGameRequest represents a request to add a game to the catalog
type CreateGameRequest struct {
	ID          string     `json:"id,omitempty"`
	Slug        string     `json:"slug,omitempty"`
	Title       string     `json:"title"`
	Featured    *bool      `json:"featured,omitempty"`
	Genre       StringList `json:"genre,omitempty"`
	Platforms   StringList `json:"platforms,omitempty"`
	Mobile      *bool      `json:"mobile,omitempty"`
	Height      *float64   `json:"height,omitempty"`
	Width       *float64   `json:"width,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	Released    string     `json:"released,omitempty"`
	Thumbnail   string     `json:"thumbnail"`
	Description string     `json:"description,omitempty"`
	Tags        StringList `json:"tags,omitempty"`
	URL         string     `json:"url"`
}

// ToGame converts the request to a Game, trimming string fields
func (r *CreateGameRequest) ToGame() Game {
	return Game{
		ID:          strings.TrimSpace(r.ID),
		Slug:        strings.TrimSpace(r.Slug),
		Title:       strings.TrimSpace(r.Title),
		Featured:    r.Featured,
		Genre:       CleanList(r.Genre),
		Platforms:   CleanList(r.Platforms),
		Mobile:      r.Mobile,
		Height:      r.Height,
		Width:       r.Width,
		Rating:      r.Rating,
		Released:    strings.TrimSpace(r.Released),
		Thumbnail:   strings.TrimSpace(r.Thumbnail),
		Description: strings.TrimSpace(r.Description),
		Tags:        CleanList(r.Tags),
		URL:         strings.TrimSpace(r.URL),
	}
}

// CleanList trims every entry and drops blanks. A list that ends up empty
// becomes nil so it is omitted when serialized.
func CleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
