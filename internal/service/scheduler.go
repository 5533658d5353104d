package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

// Job names.
const (
	JobClickRollup    = "click-rollup"
	JobClickPrune     = "click-prune"
	JobNewsletterSync = "newsletter-sync"
	JobFeedImport     = "feed-import"
)

// ErrJobRunning is returned by RunJob when the job is already in flight.
var ErrJobRunning = errors.New("job already running")

// ScheduleConfig holds the cron expressions of the background jobs. An
// empty expression disables the job.
type ScheduleConfig struct {
	ClickRollup    string
	ClickPrune     string
	NewsletterSync string
	FeedImport     string
	ClickRetention time.Duration
	SyncBatch      int
}

// ─────────────────────────────────────────────────────────────
// Scheduler: periodic maintenance jobs
// ─────────────────────────────────────────────────────────────

// Scheduler runs the catalog and newsletter jobs on cron schedules.
type Scheduler struct {
	cfg   ScheduleConfig
	log   *zap.Logger
	jobs  map[string]func(ctx context.Context) error
	extra map[string]string
	guard runningJobsGuard
}

func NewScheduler(catalog *CatalogService, newsletter *NewsletterService, cfg ScheduleConfig, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ClickRetention <= 0 {
		cfg.ClickRetention = 90 * 24 * time.Hour
	}
	if cfg.SyncBatch <= 0 {
		cfg.SyncBatch = 100
	}
	s := &Scheduler{cfg: cfg, log: log, extra: map[string]string{}}
	s.jobs = map[string]func(ctx context.Context) error{
		JobClickRollup: func(ctx context.Context) error {
			_, err := catalog.RollupClicks(ctx)
			return err
		},
		JobClickPrune: func(ctx context.Context) error {
			_, err := catalog.PruneClicks(ctx, s.cfg.ClickRetention)
			return err
		},
		JobNewsletterSync: func(ctx context.Context) error {
			_, err := newsletter.SyncPending(ctx, s.cfg.SyncBatch)
			return err
		},
	}
	return s
}

// Jobs returns the known job names.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunJob runs one job now. It returns ErrJobRunning instead of waiting
// when the job is already in flight.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q: %w", name, domain.ErrNotFound)
	}
	if !s.guard.TryLock(name) {
		return ErrJobRunning
	}
	defer s.guard.Unlock(name)

	start := time.Now()
	err := job(ctx)
	if err != nil {
		s.log.Warn("job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	return nil
}

// Register adds a job run on schedule. Must be called before Run.
func (s *Scheduler) Register(name, schedule string, job func(ctx context.Context) error) {
	s.jobs[name] = job
	s.extra[name] = schedule
}

func (s *Scheduler) schedules() map[string]string {
	out := map[string]string{
		JobClickRollup:    s.cfg.ClickRollup,
		JobClickPrune:     s.cfg.ClickPrune,
		JobNewsletterSync: s.cfg.NewsletterSync,
	}
	for name, expr := range s.extra {
		out[name] = expr
	}
	return out
}

// Run schedules the enabled jobs and blocks until ctx is cancelled, then
// waits (bounded) for running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	scheduled := 0
	for name, expr := range s.schedules() {
		if expr == "" {
			continue
		}
		job := name
		if _, err := c.AddFunc(expr, func() {
			if err := s.RunJob(ctx, job); errors.Is(err, ErrJobRunning) {
				s.log.Info("job still running, tick skipped", zap.String("job", job))
			}
		}); err != nil {
			return fmt.Errorf("invalid schedule %q for job %s: %w", expr, job, err)
		}
		scheduled++
	}
	c.Start()
	s.log.Info("scheduler started", zap.Int("jobs", scheduled))

	<-ctx.Done()

	stopped := c.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	select {
	case <-stopped.Done():
	case <-waitCtx.Done():
	}
	s.guard.WaitAll(waitCtx)
	s.log.Info("scheduler stopped")
	return nil
}
