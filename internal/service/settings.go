package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/arcade-catalog/internal/domain"
	"github.com/arcade-catalog/internal/storage"
)

// ChoiceSetting is a setting restricted to a fixed set of string values
type ChoiceSetting struct {
	// Name is the route segment, Key the storage key, Field the JSON field
	// the value travels in.
	Name    string
	Key     string
	Field   string
	Allowed []string
	Default string
}

func (c ChoiceSetting) allows(v string) bool {
	for _, a := range c.Allowed {
		if a == v {
			return true
		}
	}
	return false
}

// Built-in choice settings
var (
	GridVariation = ChoiceSetting{
		Name:    "grid-variation",
		Key:     "gridVariationMode",
		Field:   "mode",
		Allowed: []string{"two", "three"},
		Default: "three",
	}
	ConfettiProfile = ChoiceSetting{
		Name:    "confetti",
		Key:     "confettiProfile",
		Field:   "profile",
		Allowed: []string{"subtle", "celebration", "low-power"},
		Default: "celebration",
	}
	MobileCardAspect = ChoiceSetting{
		Name:    "mobile-aspect",
		Key:     "mobileCardAspect",
		Field:   "value",
		Allowed: []string{"square", "video"},
		Default: "square",
	}
)

var choiceSettings = map[string]ChoiceSetting{
	GridVariation.Name:    GridVariation,
	ConfettiProfile.Name:  ConfettiProfile,
	MobileCardAspect.Name: MobileCardAspect,
}

// LookupChoiceSetting finds a built-in choice setting by route name
func LookupChoiceSetting(name string) (ChoiceSetting, bool) {
	c, ok := choiceSettings[name]
	return c, ok
}

// GetSetting returns the raw JSON stored under key
func (s *CatalogService) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrInvalidRequest
	}
	value, ok, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	return value, nil
}

// SetSetting stores an arbitrary JSON value under key
func (s *CatalogService) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if key == "" || len(value) == 0 || !json.Valid(value) {
		return domain.ErrInvalidSetting
	}
	if err := s.store.SetSetting(ctx, key, value); err != nil {
		return err
	}
	s.publish(ctx, domain.EventSettingChanged, domain.TopicSettings, key, value)
	return nil
}

// GetChoice returns the stored value of a choice setting. Unset, malformed
// or unreadable values fall back to the default.
func (s *CatalogService) GetChoice(ctx context.Context, c ChoiceSetting) string {
	v, err := storage.SettingAs(ctx, s.store, c.Key, c.Default)
	if err != nil {
		s.logger.Warn("failed to read setting, using default", "key", c.Key, "error", err)
		return c.Default
	}
	if !c.allows(v) {
		return c.Default
	}
	return v
}

// SetChoice stores a choice setting after checking it is allowed
func (s *CatalogService) SetChoice(ctx context.Context, c ChoiceSetting, value string) error {
	if !c.allows(value) {
		return domain.ErrInvalidSetting
	}
	if err := s.store.SetSetting(ctx, c.Key, value); err != nil {
		return err
	}
	s.publish(ctx, domain.EventSettingChanged, domain.TopicSettings, c.Key, map[string]string{c.Field: value})
	return nil
}

// GridVariationMode returns the home grid layout, "two" or "three"
func (s *CatalogService) GridVariationMode(ctx context.Context) string {
	return s.GetChoice(ctx, GridVariation)
}

// SetGridVariationMode stores the home grid layout
func (s *CatalogService) SetGridVariationMode(ctx context.Context, mode string) error {
	return s.SetChoice(ctx, GridVariation, mode)
}
