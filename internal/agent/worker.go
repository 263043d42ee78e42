package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"dataorch/internal/models"
	"dataorch/internal/queue"
	"dataorch/internal/runner"
	"dataorch/internal/state"
	"dataorch/internal/store"
)

const DefaultMaxConcurrent = 5

// SettingsProvider serves the application settings JSON handed to job code.
type SettingsProvider interface {
	Get(ctx context.Context) string
}

// Worker is one agent replica: it consumes dispatch messages from a single
// queue, claims the instance, executes the job's code through the runner
// registry, and writes results back to the store. A failing job never takes
// the worker down.
type Worker struct {
	id        string
	queueName string

	transport queue.Transport
	jobs      store.JobStore
	schedules store.ScheduleStore
	instances store.InstanceStore
	data      store.DatumStore
	runners   *runner.Registry
	settings  SettingsProvider
	logger    *zap.SugaredLogger

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// now is replaceable in tests.
	now func() time.Time
}

func NewWorker(
	id string,
	queueName string,
	transport queue.Transport,
	jobs store.JobStore,
	schedules store.ScheduleStore,
	instances store.InstanceStore,
	data store.DatumStore,
	runners *runner.Registry,
	settings SettingsProvider,
	maxConcurrent int64,
	logger *zap.SugaredLogger,
) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Worker{
		id:        id,
		queueName: queueName,
		transport: transport,
		jobs:      jobs,
		schedules: schedules,
		instances: instances,
		data:      data,
		runners:   runners,
		settings:  settings,
		logger:    logger,
		sem:       semaphore.NewWeighted(maxConcurrent),
		now:       time.Now,
	}
}

// Run consumes until the context is cancelled, then waits for in-flight
// executions to finish or fail cleanly.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.transport.Consume(ctx, w.queueName)
	if err != nil {
		return err
	}
	w.logger.Infow("agent started", "agent_id", w.id, "queue", w.queueName)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Infow("agent stopped", "agent_id", w.id)
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				w.wg.Wait()
				return nil
			}
			if err := w.sem.Acquire(ctx, 1); err != nil {
				delivery.Nack()
				w.wg.Wait()
				return err
			}
			w.wg.Add(1)
			go func(delivery queue.Delivery) {
				defer w.sem.Release(1)
				defer w.wg.Done()
				// In-flight work survives shutdown.
				w.Process(context.WithoutCancel(ctx), delivery)
			}(delivery)
		}
	}
}

// Process handles one delivery end to end. The message is acked once the
// instance has reached a terminal state; store failures nack for redelivery.
func (w *Worker) Process(ctx context.Context, delivery queue.Delivery) {
	msg, err := queue.DecodeMessage(delivery.Body)
	if err != nil {
		// Poisonous payload, discard rather than redeliver forever.
		w.logger.Errorw("dropping undecodable dispatch message", "error", err)
		delivery.Ack()
		return
	}

	instance, err := w.instances.FindByID(ctx, msg.JobInstanceID)
	if err != nil {
		w.logger.Errorw("failed to load instance", "instance_id", msg.JobInstanceID, "error", err)
		delivery.Nack()
		return
	}
	status := state.Of(instance.InProcess, instance.HasError, instance.AgentID != nil)
	if !state.IsValidTransition(status, state.StatusClaimed) {
		// Redelivered after completion; at-least-once tolerance.
		w.logger.Debugw("instance not claimable, skipping",
			"instance_id", instance.ID, "status", status)
		delivery.Ack()
		return
	}

	claimed, err := w.instances.Claim(ctx, instance.ID, w.id)
	if err != nil {
		w.logger.Errorw("failed to claim instance", "instance_id", instance.ID, "error", err)
		delivery.Nack()
		return
	}
	if !claimed {
		delivery.Ack()
		return
	}

	schedule, err := w.schedules.FindByID(ctx, instance.JobScheduleID)
	if err != nil {
		w.logger.Errorw("failed to load schedule", "schedule_id", instance.JobScheduleID, "error", err)
		delivery.Nack()
		return
	}
	job, err := w.jobs.FindByID(ctx, schedule.JobID)
	if err != nil {
		w.logger.Errorw("failed to load job", "job_id", schedule.JobID, "error", err)
		delivery.Nack()
		return
	}

	w.execute(ctx, job, schedule, instance)
	delivery.Ack()
}

// execute runs the job code and persists the outcome. It never returns an
// error: every failure path ends with the instance errored and a datum row.
func (w *Worker) execute(ctx context.Context, job *models.Job, schedule *models.JobSchedule, instance *models.JobInstance) {
	runnable, err := w.runners.Lookup(job.CodeLanguage)
	if err != nil {
		w.recordError(ctx, job.ID, instance.ID, err.Error(), "")
		return
	}

	var webhookParameter string
	if instance.WebhookParameter != nil {
		webhookParameter = *instance.WebhookParameter
	}

	logs, runErr := runnable.Execute(ctx, runner.RunContext{
		AppSettingsJSON:  w.settings.Get(ctx),
		AgentID:          w.id,
		JobID:            job.ID,
		JobInstanceID:    instance.ID,
		JobScheduleID:    schedule.ID,
		WebhookParameter: webhookParameter,
		CodeRef:          job.CodeRef,
	})

	if runErr != nil {
		trace := ""
		var re *runner.RunError
		if errors.As(runErr, &re) {
			trace = re.Trace
		}
		w.logger.Warnw("job execution failed",
			"job_id", job.ID, "instance_id", instance.ID, "error", runErr)
		w.recordError(ctx, job.ID, instance.ID, runErr.Error(), trace)
		return
	}

	now := w.now().UTC()
	for _, line := range logs {
		if err := w.data.AppendString(ctx, job.ID, models.LogInfoKey(now), line, w.id); err != nil {
			w.logger.Errorw("failed to persist log line", "job_id", job.ID, "error", err)
		}
	}
	if err := w.data.UpsertLastRunTime(ctx, job.ID, now, w.id); err != nil {
		w.logger.Errorw("failed to upsert last run time", "job_id", job.ID, "error", err)
	}
	if err := w.instances.Complete(ctx, instance.ID, w.id); err != nil {
		w.logger.Errorw("failed to complete instance", "instance_id", instance.ID, "error", err)
		return
	}
	w.logger.Infow("job completed",
		"job_id", job.ID, "instance_id", instance.ID, "log_lines", len(logs))
}

func (w *Worker) recordError(ctx context.Context, jobID, instanceID int64, message, trace string) {
	text := message
	if trace != "" {
		text = message + "\n" + trace
	}
	if err := w.data.AppendString(ctx, jobID, models.ErrorKey(w.now().UTC()), text, w.id); err != nil {
		w.logger.Errorw("failed to persist error datum", "job_id", jobID, "error", err)
	}
	if err := w.instances.MarkError(ctx, instanceID, w.id); err != nil {
		w.logger.Errorw("failed to mark instance errored", "instance_id", instanceID, "error", err)
	}
}
