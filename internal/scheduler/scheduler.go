package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
)

// ErrNotBusinessDay is returned by Trigger when the calendar skips the day.
var ErrNotBusinessDay = errors.New("not a business day")

// Runner performs one reward run.
type Runner interface {
	Run(ctx context.Context, asOf time.Time) (accrual.RunReport, error)
}

type Config struct {
	Schedule  string
	Location  *time.Location
	Predicate DayPredicate
}

// Scheduler fires the reward run on a cron schedule. Overlapping ticks are
// skipped while a run is still in progress.
type Scheduler struct {
	cron      *cron.Cron
	runner    Runner
	predicate DayPredicate
	loc       *time.Location
	log       *logrus.Logger
	now       func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	stopOnce sync.Once
}

func New(cfg Config, runner Runner, log *logrus.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	predicate := cfg.Predicate
	if predicate == nil {
		predicate = EveryDay
	}

	cronLog := cron.PrintfLogger(log)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	s := &Scheduler{
		cron:      c,
		runner:    runner,
		predicate: predicate,
		loc:       loc,
		log:       log,
		now:       time.Now,
		ctx:       context.Background(),
	}

	if _, err := c.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid reward schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start begins firing on schedule until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.log.WithField("next_run", s.Next()).Info("Reward scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts the schedule and waits for a running job to finish. Safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		s.log.Info("Reward scheduler stopped")
	})
}

// Next returns the next scheduled fire time, zero if not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Trigger runs the rewards for today, subject to the calendar.
func (s *Scheduler) Trigger(ctx context.Context) (accrual.RunReport, error) {
	asOf := s.now().In(s.loc)
	if !s.predicate(asOf) {
		return accrual.RunReport{AsOf: asOf}, fmt.Errorf("%w: %s", ErrNotBusinessDay, asOf.Format(time.DateOnly))
	}
	return s.runner.Run(ctx, asOf)
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	report, err := s.Trigger(ctx)
	if err != nil {
		if errors.Is(err, ErrNotBusinessDay) {
			s.log.WithField("as_of", report.AsOf.Format(time.DateOnly)).Info("Skipping reward run on non-business day")
			return
		}
		s.log.WithError(err).Error("Scheduled reward run failed")
		return
	}

	s.log.WithFields(logrus.Fields{
		"as_of":     report.AsOf.Format(time.DateOnly),
		"processed": report.Processed,
		"failures":  len(report.Failures),
	}).Info("Scheduled reward run finished")
}
