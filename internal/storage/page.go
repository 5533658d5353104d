package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/domain"
)

// PageStore implements domain.PageStore on SQL.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

const pageColumns = `id, slug, title, content_json, published, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*domain.Page, error) {
	p := &domain.Page{}
	var contentJSON string
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &contentJSON, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(contentJSON), &p.Content); err != nil {
		return nil, fmt.Errorf("decode page %s content: %w", p.ID, err)
	}
	if p.Content.Elements == nil {
		p.Content.Elements = []domain.PageElement{}
	}
	return p, nil
}

func (s *PageStore) CreatePage(ctx context.Context, p *domain.Page) error {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return fmt.Errorf("encode page content: %w", err)
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err = s.db.exec(ctx,
		`INSERT INTO pages (`+pageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Title, string(content), p.Published, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (s *PageStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	p, err := scanPage(s.db.queryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "page", id)
	}
	return p, nil
}

func (s *PageStore) GetPageBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	p, err := scanPage(s.db.queryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = ?`, slug))
	if err != nil {
		return nil, notFound(err, "page", slug)
	}
	return p, nil
}

func (s *PageStore) ListPages(ctx context.Context) ([]domain.Page, error) {
	rows, err := s.db.query(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY created_at ASC, slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

func (s *PageStore) UpdatePage(ctx context.Context, p *domain.Page) error {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return fmt.Errorf("encode page content: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.exec(ctx,
		`UPDATE pages SET slug = ?, title = ?, content_json = ?, published = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.Title, string(content), p.Published, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return affected(res, "page", p.ID)
}

func (s *PageStore) DeletePage(ctx context.Context, id string) error {
	res, err := s.db.exec(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return affected(res, "page", id)
}
