package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"dataorch/internal/dispatch"
	"dataorch/internal/models"
	"dataorch/internal/store"
)

const (
	DefaultInterval     = 60 * time.Second
	DefaultStuckTimeout = 24 * time.Hour
)

const updatedBy = "scheduler"

// Dispatcher hands a ready instance to the queue transport. The boolean result
// keeps one failed dispatch from interrupting the tick loop.
type Dispatcher interface {
	Enqueue(ctx context.Context, instanceID, jobID int64, queueName string) bool
}

// Scheduler is the periodic control loop: evaluate due schedules, materialize
// instances, dispatch them, and sweep stuck instances.
type Scheduler struct {
	jobs      store.JobStore
	schedules store.ScheduleStore
	instances store.InstanceStore

	dispatcher   Dispatcher
	logger       *zap.SugaredLogger
	interval     time.Duration
	stuckTimeout time.Duration

	// now is replaceable in tests.
	now func() time.Time

	cron *cron.Cron
}

func New(
	jobs store.JobStore,
	schedules store.ScheduleStore,
	instances store.InstanceStore,
	dispatcher Dispatcher,
	interval time.Duration,
	stuckTimeout time.Duration,
	logger *zap.SugaredLogger,
) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if stuckTimeout <= 0 {
		stuckTimeout = DefaultStuckTimeout
	}
	return &Scheduler{
		jobs:         jobs,
		schedules:    schedules,
		instances:    instances,
		dispatcher:   dispatcher,
		logger:       logger,
		interval:     interval,
		stuckTimeout: stuckTimeout,
		now:          time.Now,
	}
}

// Run drives Tick on the configured interval until the context is cancelled.
// Ticks never overlap; cancellation takes effect between ticks, not mid-tick.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		// A started tick runs to completion even during shutdown.
		s.Tick(context.WithoutCancel(ctx))
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Infow("scheduler started", "interval", s.interval, "stuck_timeout", s.stuckTimeout)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// Tick runs one evaluation pass plus the stuck sweep.
func (s *Scheduler) Tick(ctx context.Context) {
	s.fireDue(ctx)
	s.sweepStuck(ctx)
}

func (s *Scheduler) fireDue(ctx context.Context) {
	schedules, err := s.schedules.FetchRunnable(ctx)
	if err != nil {
		s.logger.Errorw("failed to fetch runnable schedules", "error", err)
		return
	}

	now := s.now()
	for i := range schedules {
		sched := &schedules[i]
		if !Due(sched, now) {
			continue
		}

		job, err := s.jobs.FindByID(ctx, sched.JobID)
		if err != nil {
			s.logger.Errorw("failed to load job for due schedule",
				"schedule_id", sched.ID, "job_id", sched.JobID, "error", err)
			continue
		}
		if !job.Enabled {
			continue
		}

		instanceID, err := s.instances.Create(ctx, sched.ID, nil, true, updatedBy)
		if err != nil {
			s.logger.Errorw("failed to create instance",
				"schedule_id", sched.ID, "job_id", job.ID, "error", err)
			continue
		}

		queueName := s.resolveQueueName(ctx, job)
		s.logger.Infow("schedule fired",
			"schedule_id", sched.ID, "job_id", job.ID, "instance_id", instanceID, "queue", queueName)

		if !s.dispatcher.Enqueue(ctx, instanceID, job.ID, queueName) {
			// Never delivered: error the instance now instead of leaving it
			// in-process until the stuck sweep finds it.
			if err := s.instances.MarkError(ctx, instanceID, updatedBy); err != nil {
				s.logger.Errorw("failed to mark undelivered instance errored",
					"instance_id", instanceID, "error", err)
			}
		}
	}
}

func (s *Scheduler) resolveQueueName(ctx context.Context, job *models.Job) string {
	if job.JobQueueID != nil {
		name, err := s.jobs.QueueNameByID(ctx, *job.JobQueueID)
		if err == nil && name != "" {
			return name
		}
		s.logger.Warnw("failed to resolve assigned queue, using environment default",
			"job_id", job.ID, "job_queue_id", *job.JobQueueID, "error", err)
	}
	return dispatch.ResolveQueueName(job.Environment)
}

func (s *Scheduler) sweepStuck(ctx context.Context) {
	swept, err := s.instances.SweepStuck(ctx, s.stuckTimeout, updatedBy)
	if err != nil {
		s.logger.Errorw("stuck sweep failed", "error", err)
		return
	}
	if swept > 0 {
		s.logger.Warnw("errored stuck instances", "count", swept, "older_than", s.stuckTimeout)
	}
}
