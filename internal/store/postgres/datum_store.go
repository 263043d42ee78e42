package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dataorch/internal/models"
)

type DatumStore struct {
	db *sql.DB
}

func NewDatumStore(db *sql.DB) *DatumStore {
	return &DatumStore{db: db}
}

func (s *DatumStore) AppendString(ctx context.Context, jobID int64, fieldDescription, value, createdBy string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+schema+`.job_data (job_id, field_description, string_value, created_date, created_by)
		VALUES ($1, $2, $3, now(), $4)
	`, jobID, fieldDescription, value, createdBy)
	if err != nil {
		return fmt.Errorf("append datum %q for job %d: %w", fieldDescription, jobID, err)
	}
	return nil
}

// UpsertLastRunTime keeps at most one last-run row per job via the partial
// unique index on (job_id) WHERE field_description = 'Last Job Run Time'.
func (s *DatumStore) UpsertLastRunTime(ctx context.Context, jobID int64, at time.Time, by string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+schema+`.job_data (job_id, field_description, date_value, created_date, created_by)
		VALUES ($1, $2, $3, now(), $4)
		ON CONFLICT (job_id) WHERE field_description = 'Last Job Run Time'
		DO UPDATE SET date_value = EXCLUDED.date_value,
		              updated_date = now(),
		              updated_by = EXCLUDED.created_by
	`, jobID, models.FieldLastRunTime, at.UTC(), by)
	if err != nil {
		return fmt.Errorf("upsert last run time for job %d: %w", jobID, err)
	}
	return nil
}

func (s *DatumStore) FindString(ctx context.Context, jobID int64, fieldDescription string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT string_value
		FROM `+schema+`.job_data
		WHERE job_id = $1 AND field_description = $2
		ORDER BY id DESC
		LIMIT 1
	`, jobID, fieldDescription).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("find datum %q for job %d: %w", fieldDescription, jobID, err)
	}
	return value.String, nil
}

func (s *DatumStore) Close() error {
	return s.db.Close()
}
