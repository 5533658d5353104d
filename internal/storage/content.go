package storage

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
)

// ContentStore implements domain.ContentStore on SQL.
type ContentStore struct {
	db *DB
}

func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

func (s *ContentStore) ListContent(ctx context.Context) ([]domain.ContentEntry, error) {
	rows, err := s.db.query(ctx, `SELECT content_key, content_value, updated_at FROM site_content ORDER BY content_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	var entries []domain.ContentEntry
	for rows.Next() {
		var e domain.ContentEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *ContentStore) UpsertContent(ctx context.Context, e *domain.ContentEntry) error {
	e.UpdatedAt = time.Now().UTC()
	_, err := s.db.exec(ctx,
		`INSERT INTO site_content (content_key, content_value, updated_at) VALUES (?, ?, ?)`+
			s.db.dialect.Upsert([]string{"content_key"}, []string{"content_value", "updated_at"}),
		e.Key, e.Value, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert content: %w", err)
	}
	return nil
}

func (s *ContentStore) DeleteContent(ctx context.Context, key string) error {
	res, err := s.db.exec(ctx, `DELETE FROM site_content WHERE content_key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return affected(res, "content", key)
}

const navColumns = `id, label, href, sort_order, external, visible`

func scanNavLink(row rowScanner) (*domain.NavLink, error) {
	l := &domain.NavLink{}
	if err := row.Scan(&l.ID, &l.Label, &l.Href, &l.SortOrder, &l.External, &l.Visible); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ContentStore) ListNavLinks(ctx context.Context) ([]domain.NavLink, error) {
	rows, err := s.db.query(ctx, `SELECT `+navColumns+` FROM nav_links ORDER BY sort_order ASC, label ASC`)
	if err != nil {
		return nil, fmt.Errorf("list nav links: %w", err)
	}
	defer rows.Close()

	var links []domain.NavLink
	for rows.Next() {
		l, err := scanNavLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nav link: %w", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (s *ContentStore) GetNavLink(ctx context.Context, id string) (*domain.NavLink, error) {
	l, err := scanNavLink(s.db.queryRow(ctx, `SELECT `+navColumns+` FROM nav_links WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "nav link", id)
	}
	return l, nil
}

func (s *ContentStore) CreateNavLink(ctx context.Context, l *domain.NavLink) error {
	_, err := s.db.exec(ctx,
		`INSERT INTO nav_links (`+navColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Label, l.Href, l.SortOrder, l.External, l.Visible,
	)
	if err != nil {
		return fmt.Errorf("insert nav link: %w", err)
	}
	return nil
}

func (s *ContentStore) UpdateNavLink(ctx context.Context, l *domain.NavLink) error {
	res, err := s.db.exec(ctx,
		`UPDATE nav_links SET label = ?, href = ?, sort_order = ?, external = ?, visible = ? WHERE id = ?`,
		l.Label, l.Href, l.SortOrder, l.External, l.Visible, l.ID,
	)
	if err != nil {
		return fmt.Errorf("update nav link: %w", err)
	}
	return affected(res, "nav link", l.ID)
}

func (s *ContentStore) DeleteNavLink(ctx context.Context, id string) error {
	res, err := s.db.exec(ctx, `DELETE FROM nav_links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete nav link: %w", err)
	}
	return affected(res, "nav link", id)
}
