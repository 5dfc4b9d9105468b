// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"learnhub/backend/progress"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
)

const (
	DefaultExpiryCron = "5 0 * * *"
	jobTimeout        = time.Minute
	evictEvery        = 10 // minutes
)

type Options struct {
	Location *time.Location
	// ExpiryCron is a standard five-field cron expression evaluated in Location.
	ExpiryCron string
	// IdleAfter is how long an unused learner state is kept. Zero disables eviction.
	IdleAfter time.Duration
	Now       func() time.Time
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	cron     *gocron.Scheduler
	stats    store.StatsRepo
	registry *progress.Registry
	log      *utils.Logger
	opts     Options
}

func New(stats store.StatsRepo, registry *progress.Registry, log *utils.Logger, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ExpiryCron == "" {
		opts.ExpiryCron = DefaultExpiryCron
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = utils.NopLogger()
	}
	cron := gocron.NewScheduler(opts.Location)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:     cron,
		stats:    stats,
		registry: registry,
		log:      log.With("service", "Scheduler"),
		opts:     opts,
	}
}

// Start registers the jobs and runs them in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.Cron(s.opts.ExpiryCron).Do(s.runExpireStreaks); err != nil {
		return errors.Wrapf(err, "schedule streak expiry %q", s.opts.ExpiryCron)
	}
	if s.registry != nil && s.opts.IdleAfter > 0 {
		if _, err := s.cron.Every(evictEvery).Minutes().Do(s.runEvictIdle); err != nil {
			return errors.Wrap(err, "schedule state eviction")
		}
	}
	s.cron.StartAsync()
	s.log.Info("scheduler started", "streak_expiry", s.opts.ExpiryCron, "jobs", len(s.cron.Jobs()))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// ExpireStreaks zeroes the current streak of everyone whose last activity is older than yesterday.
func (s *Scheduler) ExpireStreaks(ctx context.Context) (int64, error) {
	now := s.opts.Now().In(s.opts.Location)
	y, m, d := now.Date()
	before := progress.DateKey(time.Date(y, m, d-1, 0, 0, 0, 0, s.opts.Location))
	return s.stats.ExpireStreaks(ctx, nil, before)
}

func (s *Scheduler) runExpireStreaks() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.ExpireStreaks(ctx)
	if err != nil {
		s.log.Error("streak expiry failed", "error", err)
		return
	}
	s.log.Info("streaks expired", "users", n)
}

func (s *Scheduler) runEvictIdle() {
	if n := s.registry.EvictIdle(s.opts.IdleAfter); n > 0 {
		s.log.Debug("evicted idle learner states", "count", n)
	}
}
