package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/feed"
)

// ─────────────────────────────────────────────────────────────
// Feed Service: product feed imports
// ─────────────────────────────────────────────────────────────

// feedTimeout bounds a single import.
const feedTimeout = 5 * time.Minute

// FeedService imports the configured product feeds into the catalog.
type FeedService struct {
	engine  *feed.Engine
	jobs    map[string]feed.Job
	emitter EventEmitter
	log     *zap.Logger
	running runningJobsGuard
}

// NewFeedService validates the feed definitions. Names must be unique and
// sources registered.
func NewFeedService(catalog *CatalogService, jobs []feed.Job, emitter EventEmitter, log *zap.Logger) (*FeedService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &FeedService{
		engine:  &feed.Engine{Dest: catalog, Log: log},
		jobs:    make(map[string]feed.Job, len(jobs)),
		emitter: emitter,
		log:     log,
	}
	for _, j := range jobs {
		if j.Name == "" {
			return nil, fmt.Errorf("feed without a name")
		}
		if _, dup := s.jobs[j.Name]; dup {
			return nil, fmt.Errorf("duplicate feed %q", j.Name)
		}
		if _, err := feed.GetSource(j.Source); err != nil {
			return nil, fmt.Errorf("feed %s: %w", j.Name, err)
		}
		s.jobs[j.Name] = j
	}
	return s, nil
}

// Feeds returns the configured feed names.
func (s *FeedService) Feeds() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run imports one configured feed.
func (s *FeedService) Run(ctx context.Context, name string) (*feed.Result, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("feed %q: %w", name, domain.ErrNotFound)
	}
	return s.Import(ctx, job)
}

// Import runs a feed job, configured or ad hoc. A second import of the
// same feed name while one is running fails with ErrJobRunning.
func (s *FeedService) Import(ctx context.Context, job feed.Job) (*feed.Result, error) {
	if !s.running.TryLock(job.Name) {
		return nil, fmt.Errorf("feed %s: %w", job.Name, ErrJobRunning)
	}
	defer s.running.Unlock(job.Name)

	runCtx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	res, err := s.engine.Run(runCtx, job)
	fields := []zap.Field{
		zap.String("feed", job.Name),
		zap.String("status", res.Status),
		zap.Int("read", res.RowsRead),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
		zap.Duration("took", res.Duration),
	}
	if err != nil {
		s.log.Warn("feed import failed", append(fields, zap.Error(err))...)
		return res, err
	}
	s.log.Info("feed imported", fields...)
	s.emitter.Emit(ctx, EventFeedImported, res)
	return res, nil
}

// RunAll imports every configured feed in name order and joins the
// failures.
func (s *FeedService) RunAll(ctx context.Context) error {
	var errs []error
	for _, name := range s.Feeds() {
		if _, err := s.Run(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
