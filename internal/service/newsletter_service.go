package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
)

// Subscriber pushes an address to the newsletter provider.
type Subscriber interface {
	Enabled() bool
	Subscribe(ctx context.Context, email, source string) error
}

// ─────────────────────────────────────────────────────────────
// Newsletter Service: local-first subscriptions
// ─────────────────────────────────────────────────────────────

// NewsletterService stores subscribers locally and syncs them to the
// provider, inline when possible and later from SyncPending.
type NewsletterService struct {
	store    domain.SubscriberStore
	provider Subscriber
	emitter  EventEmitter
	log      *zap.Logger
}

func NewNewsletterService(store domain.SubscriberStore, provider Subscriber, emitter EventEmitter, log *zap.Logger) *NewsletterService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NewsletterService{store: store, provider: provider, emitter: emitter, log: log}
}

// NormalizeEmail trims and lower-cases an address and checks it is a bare
// addr-spec with a dotted domain.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > 254 {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", domain.ErrInvalidEmail
	}
	at := strings.LastIndexByte(email, '@')
	host := email[at+1:]
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

// Subscribe records the address. Subscribing twice is not an error;
// created reports whether the address is new.
func (s *NewsletterService) Subscribe(ctx context.Context, rawEmail, source string) (created bool, err error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return false, err
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "site"
	}
	source = truncate(source, 128)

	created, err = s.store.AddSubscriber(ctx, &domain.Subscriber{Email: email, Source: source})
	if err != nil {
		return false, fmt.Errorf("add subscriber: %w", err)
	}
	if !created {
		return false, nil
	}
	s.emitter.Emit(ctx, EventSubscribed, map[string]string{"source": source})

	if s.provider != nil && s.provider.Enabled() {
		syncCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.sync(syncCtx, email, source); err != nil {
			s.log.Warn("newsletter sync deferred", zap.Error(err))
		}
	}
	return true, nil
}

func (s *NewsletterService) sync(ctx context.Context, email, source string) error {
	if err := s.provider.Subscribe(ctx, email, source); err != nil {
		return err
	}
	return s.store.MarkSynced(ctx, email)
}

// SyncPending pushes up to batch unsynced subscribers to the provider and
// returns how many were synced. Individual failures are logged and left
// for the next run.
func (s *NewsletterService) SyncPending(ctx context.Context, batch int) (int, error) {
	if s.provider == nil || !s.provider.Enabled() {
		return 0, nil
	}
	pending, err := s.store.ListUnsynced(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("list unsynced subscribers: %w", err)
	}
	synced := 0
	for _, sub := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := s.sync(ctx, sub.Email, sub.Source); err != nil {
			s.log.Warn("newsletter sync failed", zap.Error(err))
			continue
		}
		synced++
	}
	if synced > 0 {
		s.log.Info("newsletter subscribers synced", zap.Int("synced", synced), zap.Int("pending", len(pending)))
	}
	return synced, ctx.Err()
}

func (s *NewsletterService) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	subs, err := s.store.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	if subs == nil {
		subs = []domain.Subscriber{}
	}
	return subs, nil
}
