package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is the work run on every tick
type Job func(ctx context.Context) error

// Service defines the public interface for the scheduler
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	log     logrus.FieldLogger
	cfg     *Config
	job     Job
	elector LeaderElector

	cron    *cron.Cron
	running sync.Mutex
	ctx     context.Context //nolint:containedctx // cancels in-flight jobs on Stop
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a scheduler running job on cfg.Schedule. With a nil elector every tick
// runs; otherwise only the leader's ticks do.
func NewService(log logrus.FieldLogger, cfg *Config, job Job, elector LeaderElector) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &service{
		log:     log.WithField("service", "scheduler"),
		cfg:     cfg,
		job:     job,
		elector: elector,
	}, nil
}

func (s *service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.elector != nil {
		if err := s.elector.Start(s.ctx); err != nil {
			return err
		}
	}

	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cron.PrintfLogger(s.log)),
	)

	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.tick); err != nil {
		s.cancel()
		return err
	}

	s.cron.Start()

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			if s.elector != nil {
				if err := s.elector.WaitForLeadership(s.ctx); err != nil {
					return
				}
			}

			s.tick()
		}()
	}

	s.log.WithField("schedule", s.cfg.Schedule).Info("Scheduler started")

	return nil
}

func (s *service) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()

	if s.elector != nil {
		if err := s.elector.Stop(); err != nil {
			s.log.WithError(err).Warn("Failed to stop leader election")
		}
	}

	s.log.Info("Scheduler stopped")

	return nil
}

func (s *service) tick() {
	if s.elector != nil && !s.elector.IsLeader() {
		s.log.Debug("Not the leader, skipping scheduled run")
		return
	}

	if !s.running.TryLock() {
		s.log.Warn("Previous run still in progress, skipping")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()

	if err := s.job(ctx); err != nil {
		s.log.WithError(err).Error("Scheduled run failed")
		return
	}

	s.log.WithField("duration", time.Since(start)).Info("Scheduled run completed")
}
