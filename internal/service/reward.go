package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
)

var (
	ErrRewardsPaused   = errors.New("reward runs are paused")
	ErrRunInProgress   = errors.New("a reward run is already in progress")
	ErrRunNotAvailable = errors.New("no reward run has completed yet")
)

type rewardRunner interface {
	RunOnce(ctx context.Context, asOf time.Time) accrual.RunReport
}

type pauseChecker interface {
	RewardsPaused(ctx context.Context) (bool, error)
}

// RewardService guards reward runs: it honours the pause switch, refuses to
// overlap runs and remembers the last report.
type RewardService struct {
	engine   rewardRunner
	settings pauseChecker
	log      *logrus.Logger

	running sync.Mutex

	mu   sync.RWMutex
	last *accrual.RunReport
}

func NewRewardService(engine rewardRunner, settings pauseChecker, log *logrus.Logger) *RewardService {
	return &RewardService{engine: engine, settings: settings, log: log}
}

// Run credits every eligible subscription for asOf. Failures of individual
// subscriptions are reported, not returned; the error is set only when the
// run did not happen or could not load its candidates.
func (s *RewardService) Run(ctx context.Context, asOf time.Time) (accrual.RunReport, error) {
	paused, err := s.settings.RewardsPaused(ctx)
	if err != nil {
		return accrual.RunReport{AsOf: asOf}, fmt.Errorf("failed to read pause setting: %w", err)
	}
	if paused {
		s.log.WithField("as_of", asOf.Format(time.DateOnly)).Warn("Reward run requested while paused")
		return accrual.RunReport{AsOf: asOf}, ErrRewardsPaused
	}

	if !s.running.TryLock() {
		return accrual.RunReport{AsOf: asOf}, ErrRunInProgress
	}
	defer s.running.Unlock()

	report := s.engine.RunOnce(ctx, asOf)

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	return report, report.Err
}

func (s *RewardService) LastRun() (accrual.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return accrual.RunReport{}, ErrRunNotAvailable
	}
	return *s.last, nil
}
