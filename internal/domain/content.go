package domain

import (
	"context"
	"time"
)

// ContentEntry is one piece of editable marketing copy.
type ContentEntry struct {
	Key       string    `json:"key" yaml:"key"`
	Value     string    `json:"value" yaml:"value"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// NavLink is an entry of the site navigation.
type NavLink struct {
	ID        string `json:"id" yaml:"id"`
	Label     string `json:"label" yaml:"label"`
	Href      string `json:"href" yaml:"href"`
	SortOrder int    `json:"sortOrder" yaml:"sortOrder"`
	External  bool   `json:"external" yaml:"external"`
	Visible   bool   `json:"visible" yaml:"visible"`
}

type ContentStore interface {
	ListContent(ctx context.Context) ([]ContentEntry, error)
	UpsertContent(ctx context.Context, e *ContentEntry) error
	DeleteContent(ctx context.Context, key string) error

	ListNavLinks(ctx context.Context) ([]NavLink, error)
	GetNavLink(ctx context.Context, id string) (*NavLink, error)
	CreateNavLink(ctx context.Context, l *NavLink) error
	UpdateNavLink(ctx context.Context, l *NavLink) error
	DeleteNavLink(ctx context.Context, id string) error
}
