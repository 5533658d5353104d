package domain

import (
	"context"
	"time"
)

type Subscriber struct {
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	Synced    bool      `json:"synced"`
	CreatedAt time.Time `json:"createdAt"`
}

type SubscriberStore interface {
	// AddSubscriber inserts s; an existing email is left untouched and
	// reported through created=false.
	AddSubscriber(ctx context.Context, s *Subscriber) (created bool, err error)
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
	ListUnsynced(ctx context.Context, limit int) ([]Subscriber, error)
	MarkSynced(ctx context.Context, email string) error
}
