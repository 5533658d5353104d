package storage

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
)

// SubscriberStore implements domain.SubscriberStore on SQL.
type SubscriberStore struct {
	db *DB
}

func NewSubscriberStore(db *DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

func (s *SubscriberStore) AddSubscriber(ctx context.Context, sub *domain.Subscriber) (bool, error) {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	prefix, suffix := s.db.dialect.InsertIgnore("email")
	res, err := s.db.exec(ctx,
		prefix+` subscribers (email, source, synced, created_at) VALUES (?, ?, ?, ?)`+suffix,
		sub.Email, sub.Source, sub.Synced, sub.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert subscriber: %w", err)
	}
	return n > 0, nil
}

func (s *SubscriberStore) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	return s.list(ctx, `SELECT email, source, synced, created_at FROM subscribers ORDER BY created_at ASC, email ASC`)
}

func (s *SubscriberStore) ListUnsynced(ctx context.Context, limit int) ([]domain.Subscriber, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(ctx,
		`SELECT email, source, synced, created_at FROM subscribers WHERE synced = ? ORDER BY created_at ASC, email ASC LIMIT ?`,
		false, limit,
	)
}

func (s *SubscriberStore) list(ctx context.Context, q string, args ...any) ([]domain.Subscriber, error) {
	rows, err := s.db.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		var sub domain.Subscriber
		if err := rows.Scan(&sub.Email, &sub.Source, &sub.Synced, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SubscriberStore) MarkSynced(ctx context.Context, email string) error {
	res, err := s.db.exec(ctx, `UPDATE subscribers SET synced = ? WHERE email = ?`, true, email)
	if err != nil {
		return fmt.Errorf("mark subscriber synced: %w", err)
	}
	return affected(res, "subscriber", email)
}
