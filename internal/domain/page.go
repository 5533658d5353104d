package domain

import (
	"context"
	"time"
)

// Page is a marketing page whose body is edited with the page builder.
type Page struct {
	ID        string      `json:"id" yaml:"id"`
	Slug      string      `json:"slug" yaml:"slug"`
	Title     string      `json:"title" yaml:"title"`
	Content   PageContent `json:"content" yaml:"content"`
	Published bool        `json:"published" yaml:"published"`
	CreatedAt time.Time   `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time   `json:"updatedAt" yaml:"-"`
}

// HistoryState is the persisted form of a page-builder history buffer.
type HistoryState struct {
	Entries []PageContent `json:"entries"`
	Cursor  int           `json:"cursor"`
	// Dirty is set while the live tree holds edits not yet saved to the page.
	Dirty bool `json:"dirty"`
}

type PageStore interface {
	CreatePage(ctx context.Context, p *Page) error
	GetPage(ctx context.Context, id string) (*Page, error)
	GetPageBySlug(ctx context.Context, slug string) (*Page, error)
	ListPages(ctx context.Context) ([]Page, error)
	UpdatePage(ctx context.Context, p *Page) error
	DeletePage(ctx context.Context, id string) error
}

// HistoryStore persists page-builder history between editing sessions.
type HistoryStore interface {
	LoadHistory(ctx context.Context, pageID string) (*HistoryState, error)
	// SaveHistory replaces the whole buffer of a page.
	SaveHistory(ctx context.Context, pageID string, state HistoryState) error
	// RecordHistory drops the entries after the cursor and appends entry
	// as the current one.
	RecordHistory(ctx context.Context, pageID string, entry PageContent, dirty bool) error
	// MoveHistoryCursor moves the cursor delta entries, clamped to the
	// buffer. A zero delta only updates dirty.
	MoveHistoryCursor(ctx context.Context, pageID string, delta int, dirty bool) error
	ClearHistory(ctx context.Context, pageID string) error
}
