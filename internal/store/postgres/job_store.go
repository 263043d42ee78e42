package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dataorch/internal/models"
)

const schema = "dataorch"

type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `
	id,
	organization_id,
	name,
	environment,
	enabled,
	queued,
	in_process,
	in_error,
	code_language,
	code_ref,
	webhook_guid,
	job_queue_id,
	created_date,
	created_by,
	updated_date,
	updated_by`

func (s *JobStore) FindByID(ctx context.Context, id int64) (*models.Job, error) {
	query := `SELECT` + jobColumns + `
		FROM ` + schema + `.jobs
		WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("find job %d: %w", id, err)
	}
	return job, nil
}

func (s *JobStore) FindEnabledByWebhookGUID(ctx context.Context, guid string) (*models.Job, error) {
	query := `SELECT` + jobColumns + `
		FROM ` + schema + `.jobs
		WHERE webhook_guid = $1 AND enabled = true`

	row := s.db.QueryRowContext(ctx, query, guid)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("find job by webhook guid: %w", err)
	}
	return job, nil
}

func (s *JobStore) QueueNameByID(ctx context.Context, queueID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM `+schema+`.job_queues WHERE id = $1`, queueID,
	).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("find job queue %d: %w", queueID, err)
	}
	return name, nil
}

func (s *JobStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	err := row.Scan(
		&job.ID,
		&job.OrganizationID,
		&job.Name,
		&job.Environment,
		&job.Enabled,
		&job.Queued,
		&job.InProcess,
		&job.InError,
		&job.CodeLanguage,
		&job.CodeRef,
		&job.WebhookGUID,
		&job.JobQueueID,
		&job.CreatedDate,
		&job.CreatedBy,
		&job.UpdatedDate,
		&job.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
