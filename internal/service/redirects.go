package service

import (
	"context"

	"github.com/arcade-catalog/internal/domain"
)

// ListRedirects returns every redirect with the target game's current slug
// and title. Both are null when the game no longer exists.
func (s *CatalogService) ListRedirects(ctx context.Context) ([]domain.RedirectInfo, error) {
	redirects, err := s.store.ListSlugRedirects(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Game, len(games))
	for i := range games {
		byID[games[i].ID] = &games[i]
	}

	out := make([]domain.RedirectInfo, 0, len(redirects))
	for _, r := range redirects {
		info := domain.RedirectInfo{OldSlug: r.OldSlug, GameID: r.GameID}
		if g, ok := byID[r.GameID]; ok {
			if g.Slug != "" {
				slug := g.Slug
				info.CurrentSlug = &slug
			}
			if g.Title != "" {
				title := g.Title
				info.Title = &title
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// ResolveRedirect returns the id a historical slug points at
func (s *CatalogService) ResolveRedirect(ctx context.Context, oldSlug string) (string, error) {
	id, ok, err := s.store.GetGameIDByOldSlug(ctx, oldSlug)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrRedirectNotFound
	}
	return id, nil
}

// DeleteRedirect removes a redirect
func (s *CatalogService) DeleteRedirect(ctx context.Context, oldSlug string) error {
	ok, err := s.store.DeleteSlugRedirect(ctx, oldSlug)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrRedirectNotFound
	}
	s.publish(ctx, domain.EventRedirectDeleted, domain.TopicRedirects, oldSlug, nil)
	return nil
}

// BackfillRedirects records a redirect for every game in an older backup
// whose slug has since changed. Games missing from the catalog, or without
// a slug then or now, are skipped.
func (s *CatalogService) BackfillRedirects(ctx context.Context, oldGames []domain.Game) (*domain.BackfillResult, error) {
	if len(oldGames) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	current, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(current))
	for _, g := range current {
		byID[g.ID] = g.Slug
	}

	result := &domain.BackfillResult{}
	for _, old := range oldGames {
		if old.ID == "" || old.Slug == "" {
			continue
		}
		curSlug, ok := byID[old.ID]
		if !ok || curSlug == "" || curSlug == old.Slug {
			continue
		}
		if s.store.AddSlugRedirect(ctx, old.Slug, old.ID) {
			result.Created++
			s.publish(ctx, domain.EventRedirectCreated, domain.TopicRedirects, old.Slug,
				domain.SlugRedirect{OldSlug: old.Slug, GameID: old.ID})
		}
	}

	s.logger.Info("redirects backfilled", "candidates", len(oldGames), "created", result.Created)
	return result, nil
}
