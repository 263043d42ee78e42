package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"dataorch/internal/models"
)

// InstanceStore writes the authoritative instance rows. The cached flags on the
// owning schedule and job are refreshed inside the same transaction as every
// instance mutation, never on their own.
type InstanceStore struct {
	db *sql.DB
}

func NewInstanceStore(db *sql.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

func (s *InstanceStore) Create(ctx context.Context, scheduleID int64, webhookParameter *string, touchLastRun bool, createdBy string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create instance: %w", err)
	}
	defer tx.Rollback()

	var instanceID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO `+schema+`.job_instances (
			job_schedule_id, in_process, has_error, webhook_parameter, created_date, created_by
		)
		VALUES ($1, true, false, $2, now(), $3)
		RETURNING id
	`, scheduleID, webhookParameter, createdBy).Scan(&instanceID)
	if err != nil {
		return 0, fmt.Errorf("insert instance for schedule %d: %w", scheduleID, err)
	}

	scheduleUpdate := `
		UPDATE ` + schema + `.job_schedules
		SET in_process = true,
		    updated_date = now(),
		    updated_by = $2
		WHERE id = $1`
	if touchLastRun {
		scheduleUpdate = `
		UPDATE ` + schema + `.job_schedules
		SET in_process = true,
		    last_run = now(),
		    updated_date = now(),
		    updated_by = $2
		WHERE id = $1`
	}
	if _, err := tx.ExecContext(ctx, scheduleUpdate, scheduleID, createdBy); err != nil {
		return 0, fmt.Errorf("mark schedule %d in process: %w", scheduleID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+schema+`.jobs
		SET queued = true,
		    updated_date = now(),
		    updated_by = $2
		WHERE id = (SELECT job_id FROM `+schema+`.job_schedules WHERE id = $1)
	`, scheduleID, createdBy)
	if err != nil {
		return 0, fmt.Errorf("mark job queued for schedule %d: %w", scheduleID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create instance: %w", err)
	}
	return instanceID, nil
}

func (s *InstanceStore) FindByID(ctx context.Context, id int64) (*models.JobInstance, error) {
	var inst models.JobInstance
	err := s.db.QueryRowContext(ctx, `
		SELECT id, job_schedule_id, in_process, has_error, agent_id, webhook_parameter,
		       created_date, created_by, updated_date, updated_by
		FROM `+schema+`.job_instances
		WHERE id = $1
	`, id).Scan(
		&inst.ID,
		&inst.JobScheduleID,
		&inst.InProcess,
		&inst.HasError,
		&inst.AgentID,
		&inst.WebhookParameter,
		&inst.CreatedDate,
		&inst.CreatedBy,
		&inst.UpdatedDate,
		&inst.UpdatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("find instance %d: %w", id, err)
	}
	return &inst, nil
}

func (s *InstanceStore) Claim(ctx context.Context, id int64, agentID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("claim instance %d: %w", id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE `+schema+`.job_instances
		SET agent_id = $1,
		    updated_date = now(),
		    updated_by = $1
		WHERE id = $2 AND in_process = true
	`, agentID, id)
	if err != nil {
		return false, fmt.Errorf("claim instance %d: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		// Already terminal; redelivered message, nothing to claim.
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+schema+`.jobs
		SET queued = false,
		    in_process = true,
		    updated_date = now(),
		    updated_by = $2
		WHERE id = (
			SELECT s.job_id
			FROM `+schema+`.job_schedules s
			JOIN `+schema+`.job_instances i ON i.job_schedule_id = s.id
			WHERE i.id = $1
		)
	`, id, agentID)
	if err != nil {
		return false, fmt.Errorf("mirror claim of instance %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("claim instance %d: %w", id, err)
	}
	return true, nil
}

func (s *InstanceStore) Complete(ctx context.Context, id int64, agentID string) error {
	return s.finish(ctx, id, agentID, false)
}

func (s *InstanceStore) MarkError(ctx context.Context, id int64, updatedBy string) error {
	return s.finish(ctx, id, updatedBy, true)
}

func (s *InstanceStore) finish(ctx context.Context, id int64, by string, hasError bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish instance %d: %w", id, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE `+schema+`.job_instances
		SET in_process = false,
		    has_error = $2,
		    updated_date = now(),
		    updated_by = $3
		WHERE id = $1
	`, id, hasError, by)
	if err != nil {
		return fmt.Errorf("finish instance %d: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+schema+`.job_schedules
		SET in_process = false,
		    had_error = $2,
		    updated_date = now(),
		    updated_by = $3
		WHERE id = (SELECT job_schedule_id FROM `+schema+`.job_instances WHERE id = $1)
	`, id, hasError, by)
	if err != nil {
		return fmt.Errorf("mirror schedule for instance %d: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+schema+`.jobs
		SET queued = false,
		    in_process = false,
		    in_error = $2,
		    updated_date = now(),
		    updated_by = $3
		WHERE id = (
			SELECT s.job_id
			FROM `+schema+`.job_schedules s
			JOIN `+schema+`.job_instances i ON i.job_schedule_id = s.id
			WHERE i.id = $1
		)
	`, id, hasError, by)
	if err != nil {
		return fmt.Errorf("mirror job for instance %d: %w", id, err)
	}

	return tx.Commit()
}

func (s *InstanceStore) SweepStuck(ctx context.Context, olderThan time.Duration, updatedBy string) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sweep stuck instances: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, job_schedule_id
		FROM `+schema+`.job_instances
		WHERE in_process = true
		  AND COALESCE(updated_date, created_date) < $1
		FOR UPDATE SKIP LOCKED
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("select stuck instances: %w", err)
	}

	var instanceIDs, scheduleIDs []int64
	for rows.Next() {
		var instanceID, scheduleID int64
		if err := rows.Scan(&instanceID, &scheduleID); err != nil {
			rows.Close()
			return 0, err
		}
		instanceIDs = append(instanceIDs, instanceID)
		scheduleIDs = append(scheduleIDs, scheduleID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(instanceIDs) == 0 {
		return 0, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+schema+`.job_instances
		SET has_error = true,
		    in_process = false,
		    agent_id = NULL,
		    updated_date = now(),
		    updated_by = $2
		WHERE id = ANY($1)
	`, pq.Array(instanceIDs), updatedBy)
	if err != nil {
		return 0, fmt.Errorf("mark stuck instances errored: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+schema+`.job_schedules
		SET in_process = false,
		    had_error = true,
		    updated_date = now(),
		    updated_by = $2
		WHERE id = ANY($1)
	`, pq.Array(scheduleIDs), updatedBy)
	if err != nil {
		return 0, fmt.Errorf("mirror schedules for stuck instances: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE `+schema+`.jobs
		SET queued = false,
		    in_process = false,
		    in_error = true,
		    updated_date = now(),
		    updated_by = $2
		WHERE id IN (SELECT job_id FROM `+schema+`.job_schedules WHERE id = ANY($1))
	`, pq.Array(scheduleIDs), updatedBy)
	if err != nil {
		return 0, fmt.Errorf("mirror jobs for stuck instances: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sweep stuck instances: %w", err)
	}
	return int64(len(instanceIDs)), nil
}

func (s *InstanceStore) Close() error {
	return s.db.Close()
}
