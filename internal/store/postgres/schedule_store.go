package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dataorch/internal/models"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const scheduleColumns = `
	id,
	job_id,
	enabled,
	run_every_hours,
	start_hour,
	stop_hour,
	monday,
	tuesday,
	wednesday,
	thursday,
	friday,
	saturday,
	sunday,
	last_run,
	in_process,
	had_error,
	is_webhook,
	created_date,
	created_by,
	updated_date,
	updated_by`

func (s *ScheduleStore) FetchRunnable(ctx context.Context) ([]models.JobSchedule, error) {
	query := `SELECT` + scheduleColumns + `
		FROM ` + schema + `.job_schedules
		WHERE enabled = true AND in_process = false AND is_webhook = false
		ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch runnable schedules: %w", err)
	}
	defer rows.Close()

	var schedules []models.JobSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

func (s *ScheduleStore) FindByID(ctx context.Context, id int64) (*models.JobSchedule, error) {
	query := `SELECT` + scheduleColumns + `
		FROM ` + schema + `.job_schedules
		WHERE id = $1`

	sched, err := scanSchedule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find schedule %d: %w", id, err)
	}
	return sched, nil
}

// FindOrCreateWebhookSchedule relies on the partial unique index on
// (job_id) WHERE is_webhook, so concurrent first triggers converge on one row.
func (s *ScheduleStore) FindOrCreateWebhookSchedule(ctx context.Context, jobID int64, createdBy string) (*models.JobSchedule, error) {
	insert := `
		INSERT INTO ` + schema + `.job_schedules (job_id, enabled, is_webhook, created_date, created_by)
		VALUES ($1, false, true, now(), $2)
		ON CONFLICT (job_id) WHERE is_webhook DO NOTHING`

	if _, err := s.db.ExecContext(ctx, insert, jobID, createdBy); err != nil {
		return nil, fmt.Errorf("create webhook schedule for job %d: %w", jobID, err)
	}

	query := `SELECT` + scheduleColumns + `
		FROM ` + schema + `.job_schedules
		WHERE job_id = $1 AND is_webhook = true`

	sched, err := scanSchedule(s.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		return nil, fmt.Errorf("find webhook schedule for job %d: %w", jobID, err)
	}
	return sched, nil
}

func (s *ScheduleStore) Close() error {
	return s.db.Close()
}

func scanSchedule(row rowScanner) (*models.JobSchedule, error) {
	var sched models.JobSchedule
	err := row.Scan(
		&sched.ID,
		&sched.JobID,
		&sched.Enabled,
		&sched.RunEveryHours,
		&sched.StartHour,
		&sched.StopHour,
		&sched.Monday,
		&sched.Tuesday,
		&sched.Wednesday,
		&sched.Thursday,
		&sched.Friday,
		&sched.Saturday,
		&sched.Sunday,
		&sched.LastRun,
		&sched.InProcess,
		&sched.HadError,
		&sched.IsWebhook,
		&sched.CreatedDate,
		&sched.CreatedBy,
		&sched.UpdatedDate,
		&sched.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &sched, nil
}
