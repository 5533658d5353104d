package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/fallback"
)

// ─────────────────────────────────────────────────────────────
// Content Service: marketing copy and navigation
// ─────────────────────────────────────────────────────────────

var contentKeyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,190}$`)

// ContentService manages editable copy and the navigation links.
type ContentService struct {
	store    domain.ContentStore
	fallback *fallback.Source
	emitter  EventEmitter
	log      *zap.Logger
}

func NewContentService(store domain.ContentStore, fb *fallback.Source, emitter EventEmitter, log *zap.Logger) *ContentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContentService{store: store, fallback: fb, emitter: emitter, log: log}
}

// ContentMap returns every copy entry as key → value. Stored entries
// override the fallback copy; when the store fails only the fallback is
// returned and fromFallback is true.
func (s *ContentService) ContentMap(ctx context.Context) (map[string]string, bool, error) {
	out := map[string]string{}
	if s.fallback != nil {
		out = s.fallback.Data().ContentMap()
	}
	entries, err := s.store.ListContent(ctx)
	if err != nil {
		if s.fallback == nil {
			return nil, false, fmt.Errorf("list content: %w", err)
		}
		s.log.Warn("content store unavailable, serving fallback", zap.Error(err))
		return out, true, nil
	}
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, false, nil
}

// ListEntries returns the stored entries only.
func (s *ContentService) ListEntries(ctx context.Context) ([]domain.ContentEntry, error) {
	entries, err := s.store.ListContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	if entries == nil {
		entries = []domain.ContentEntry{}
	}
	return entries, nil
}

func (s *ContentService) SetContent(ctx context.Context, key, value string) (*domain.ContentEntry, error) {
	if !contentKeyRe.MatchString(key) {
		return nil, fmt.Errorf("invalid content key %q: %w", key, domain.ErrInvalidInput)
	}
	e := &domain.ContentEntry{Key: key, Value: value}
	if err := s.store.UpsertContent(ctx, e); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	s.emitter.Emit(ctx, EventContentChanged, map[string]string{"key": key})
	return e, nil
}

func (s *ContentService) DeleteContent(ctx context.Context, key string) error {
	if err := s.store.DeleteContent(ctx, key); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventContentChanged, map[string]string{"key": key})
	return nil
}

// ── Navigation ─────────────────────────────────────────────

// NavLinkInput holds the editable fields of a navigation link.
type NavLinkInput struct {
	Label     string `json:"label"`
	Href      string `json:"href"`
	SortOrder int    `json:"sortOrder"`
	External  bool   `json:"external"`
	Visible   bool   `json:"visible"`
}

func (in *NavLinkInput) normalize() error {
	in.Label = strings.TrimSpace(in.Label)
	in.Href = strings.TrimSpace(in.Href)
	if in.Label == "" {
		return fmt.Errorf("label is required: %w", domain.ErrInvalidInput)
	}
	switch {
	case strings.HasPrefix(in.Href, "/"), strings.HasPrefix(in.Href, "#"):
	case isHTTPURL(in.Href):
		in.External = true
	default:
		return fmt.Errorf("href must be a path or an http(s) URL: %w", domain.ErrInvalidInput)
	}
	return nil
}

// PublicNav returns the visible links in order, from the fallback when
// the store fails.
func (s *ContentService) PublicNav(ctx context.Context) ([]domain.NavLink, bool, error) {
	links, err := s.store.ListNavLinks(ctx)
	if err != nil {
		if s.fallback == nil {
			return nil, false, fmt.Errorf("list nav links: %w", err)
		}
		s.log.Warn("nav store unavailable, serving fallback", zap.Error(err))
		return s.fallback.Data().VisibleNav(), true, nil
	}
	visible := []domain.NavLink{}
	for _, l := range links {
		if l.Visible {
			visible = append(visible, l)
		}
	}
	return visible, false, nil
}

func (s *ContentService) ListNav(ctx context.Context) ([]domain.NavLink, error) {
	links, err := s.store.ListNavLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nav links: %w", err)
	}
	if links == nil {
		links = []domain.NavLink{}
	}
	return links, nil
}

func (s *ContentService) CreateNavLink(ctx context.Context, in NavLinkInput) (*domain.NavLink, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	l := &domain.NavLink{
		ID:        uuid.NewString(),
		Label:     in.Label,
		Href:      in.Href,
		SortOrder: in.SortOrder,
		External:  in.External,
		Visible:   in.Visible,
	}
	if err := s.store.CreateNavLink(ctx, l); err != nil {
		return nil, fmt.Errorf("create nav link: %w", err)
	}
	s.emitter.Emit(ctx, EventNavChanged, map[string]string{"id": l.ID})
	return l, nil
}

func (s *ContentService) UpdateNavLink(ctx context.Context, id string, in NavLinkInput) (*domain.NavLink, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	l := &domain.NavLink{
		ID:        id,
		Label:     in.Label,
		Href:      in.Href,
		SortOrder: in.SortOrder,
		External:  in.External,
		Visible:   in.Visible,
	}
	if err := s.store.UpdateNavLink(ctx, l); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventNavChanged, map[string]string{"id": id})
	return l, nil
}

func (s *ContentService) DeleteNavLink(ctx context.Context, id string) error {
	if err := s.store.DeleteNavLink(ctx, id); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventNavChanged, map[string]string{"id": id})
	return nil
}

// ReorderNav assigns sort orders following ids. Every id must exist;
// links not listed keep their order after the listed ones.
func (s *ContentService) ReorderNav(ctx context.Context, ids []string) ([]domain.NavLink, error) {
	links, err := s.store.ListNavLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nav links: %w", err)
	}
	byID := make(map[string]domain.NavLink, len(links))
	for _, l := range links {
		byID[l.ID] = l
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("nav link %s: %w", id, domain.ErrNotFound)
		}
		if seen[id] {
			return nil, fmt.Errorf("nav link %s listed twice: %w", id, domain.ErrInvalidInput)
		}
		seen[id] = true
	}

	order := 1
	apply := func(l domain.NavLink) error {
		if l.SortOrder != order {
			l.SortOrder = order
			if err := s.store.UpdateNavLink(ctx, &l); err != nil {
				return fmt.Errorf("reorder nav link %s: %w", l.ID, err)
			}
		}
		order++
		return nil
	}
	for _, id := range ids {
		if err := apply(byID[id]); err != nil {
			return nil, err
		}
	}
	for _, l := range links {
		if !seen[l.ID] {
			if err := apply(l); err != nil {
				return nil, err
			}
		}
	}
	s.emitter.Emit(ctx, EventNavChanged, map[string]any{"reordered": ids})
	return s.ListNav(ctx)
}
