package store

import (
	"context"
	"time"

	"dataorch/internal/models"
)

// JobStore reads job rows and resolves their dispatch destination.
type JobStore interface {
	FindByID(ctx context.Context, id int64) (*models.Job, error)
	// FindEnabledByWebhookGUID returns nil, sql.ErrNoRows-wrapped error when no
	// enabled job carries the GUID.
	FindEnabledByWebhookGUID(ctx context.Context, guid string) (*models.Job, error)
	// QueueNameByID resolves an explicitly assigned JobQueue row.
	QueueNameByID(ctx context.Context, queueID int64) (string, error)
	Close() error
}

// ScheduleStore reads and maintains recurrence rules.
type ScheduleStore interface {
	// FetchRunnable returns enabled, not-in-process, non-webhook schedules.
	FetchRunnable(ctx context.Context) ([]models.JobSchedule, error)
	FindByID(ctx context.Context, id int64) (*models.JobSchedule, error)
	// FindOrCreateWebhookSchedule returns the job's synthetic webhook schedule,
	// creating it on first use. The row is disabled and never clock-fired.
	FindOrCreateWebhookSchedule(ctx context.Context, jobID int64, createdBy string) (*models.JobSchedule, error)
	Close() error
}

// InstanceStore owns the authoritative instance rows. Every mutation also
// refreshes the cached flags on the owning schedule and job in the same
// transaction, so the mirrors never drift from the instance state.
type InstanceStore interface {
	// Create inserts an instance (in_process=true, has_error=false) for the
	// schedule, marking the schedule in-process and the job queued. When
	// touchLastRun is set the schedule's last_run is advanced to now.
	Create(ctx context.Context, scheduleID int64, webhookParameter *string, touchLastRun bool, createdBy string) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.JobInstance, error)
	// Claim stamps the agent onto a still-in-process instance. Returns false
	// when the instance is already terminal (redelivered message).
	Claim(ctx context.Context, id int64, agentID string) (bool, error)
	Complete(ctx context.Context, id int64, agentID string) error
	MarkError(ctx context.Context, id int64, updatedBy string) error
	// SweepStuck errors every in-process instance whose last write is older
	// than the cutoff, clearing any stale claim. Returns the number swept.
	SweepStuck(ctx context.Context, olderThan time.Duration, updatedBy string) (int64, error)
	Close() error
}

// DatumStore appends log/error rows and maintains the single last-run-time row.
type DatumStore interface {
	AppendString(ctx context.Context, jobID int64, fieldDescription, value, createdBy string) error
	UpsertLastRunTime(ctx context.Context, jobID int64, at time.Time, by string) error
	FindString(ctx context.Context, jobID int64, fieldDescription string) (string, error)
	Close() error
}
