package scheduler

import (
	"context"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/config"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/service"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/robfig/cron/v3"
)

// Scheduler owns the cron runner for the time-triggered sweeps. All specs
// run in UTC so the H-1 calendar windows the sweeps compute line up with
// the tick that computes them.
type Scheduler struct {
	cron   *cron.Cron
	jobs   service.JobsService
	cfg    config.SchedulerConfig
	logger *logger.Logger
}

func New(cfg config.SchedulerConfig, jobs service.JobsService, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		jobs:   jobs,
		cfg:    cfg,
		logger: log,
	}
}

// Start registers the sweeps and begins ticking. Registration errors are
// configuration bugs (bad cron spec) and are returned rather than logged.
func (s *Scheduler) Start() error {
	if err := s.add("trial_ending", s.cfg.TrialEndingSpec, s.jobs.TrialEndingSweep); err != nil {
		return err
	}
	if err := s.add("past_due", s.cfg.PastDueSpec, s.jobs.PastDueSweep); err != nil {
		return err
	}
	if err := s.add("enterprise_ending", s.cfg.EnterpriseEndingSpec, s.jobs.EnterpriseEndingSweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Infow("scheduler started",
		"trial_ending", s.cfg.TrialEndingSpec,
		"past_due", s.cfg.PastDueSpec,
		"enterprise_ending", s.cfg.EnterpriseEndingSpec)
	return nil
}

// Stop stops the ticker and waits for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Infow("scheduler stopped")
}

func (s *Scheduler) add(name, spec string, sweep func(context.Context) (types.SweepResult, error)) error {
	_, err := s.cron.AddFunc(spec, func() {
		result, err := sweep(context.Background())
		if err != nil {
			s.logger.Errorw("sweep failed", "job", name, "error", err)
			return
		}
		s.logger.Infow("sweep finished",
			"job", name,
			"candidates", result.Candidates,
			"succeeded", result.Succeeded)
	})
	return err
}
