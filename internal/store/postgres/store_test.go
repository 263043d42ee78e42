package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataorch/internal/models"
)

func jobRows(guid string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "name", "environment", "enabled",
		"queued", "in_process", "in_error", "code_language", "code_ref",
		"webhook_guid", "job_queue_id", "created_date", "created_by",
		"updated_date", "updated_by",
	}).AddRow(
		int64(3), int64(1), "nightly-sync", "production", true,
		false, false, false, "python", "jobs/sync.py",
		guid, nil, time.Now(), "ui", nil, nil,
	)
}

func TestJobStore_FindEnabledByWebhookGUID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	guid := "3b8656f7-9072-4a5b-a3e1-36db42692c13"
	mock.ExpectQuery("SELECT .* FROM dataorch.jobs WHERE webhook_guid = .* AND enabled = true").
		WithArgs(guid).
		WillReturnRows(jobRows(guid))

	store := NewJobStore(db)
	job, err := store.FindEnabledByWebhookGUID(context.Background(), guid)
	require.NoError(t, err)

	assert.Equal(t, int64(3), job.ID)
	assert.Equal(t, "nightly-sync", job.Name)
	assert.Equal(t, "production", job.Environment)
	require.NotNil(t, job.WebhookGUID)
	assert.Equal(t, guid, *job.WebhookGUID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstanceStore_Create_MirrorsScheduleAndJobFlags(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO dataorch.job_instances").
		WithArgs(int64(7), nil, "scheduler").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("UPDATE dataorch.job_schedules SET in_process = true, last_run = now").
		WithArgs(int64(7), "scheduler").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE dataorch.jobs SET queued = true").
		WithArgs(int64(7), "scheduler").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewInstanceStore(db)
	instanceID, err := store.Create(context.Background(), 7, nil, true, "scheduler")
	require.NoError(t, err)
	assert.Equal(t, int64(42), instanceID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstanceStore_Claim_AlreadyTerminalReturnsFalse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE dataorch.job_instances SET agent_id").
		WithArgs("agent-1", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	store := NewInstanceStore(db)
	claimed, err := store.Claim(context.Background(), 42, "agent-1")
	require.NoError(t, err)
	assert.False(t, claimed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstanceStore_Claim_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE dataorch.job_instances SET agent_id").
		WithArgs("agent-1", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE dataorch.jobs SET queued = false, in_process = true").
		WithArgs(int64(42), "agent-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewInstanceStore(db)
	claimed, err := store.Claim(context.Background(), 42, "agent-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstanceStore_SweepStuck_NothingToSweep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, job_schedule_id FROM dataorch.job_instances").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_schedule_id"}))
	mock.ExpectCommit()

	store := NewInstanceStore(db)
	swept, err := store.SweepStuck(context.Background(), 24*time.Hour, "scheduler")
	require.NoError(t, err)
	assert.Zero(t, swept)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstanceStore_SweepStuck_ErrorsStaleInstances(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, job_schedule_id FROM dataorch.job_instances").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_schedule_id"}).
			AddRow(int64(42), int64(7)).
			AddRow(int64(43), int64(8)))
	mock.ExpectExec("UPDATE dataorch.job_instances SET has_error = true").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE dataorch.job_schedules SET in_process = false, had_error = true").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE dataorch.jobs SET queued = false, in_process = false, in_error = true").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	store := NewInstanceStore(db)
	swept, err := store.SweepStuck(context.Background(), 24*time.Hour, "scheduler")
	require.NoError(t, err)
	assert.Equal(t, int64(2), swept)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func scheduleRows(id, jobID int64, isWebhook bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "job_id", "enabled", "run_every_hours", "start_hour", "stop_hour",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"last_run", "in_process", "had_error", "is_webhook",
		"created_date", "created_by", "updated_date", "updated_by",
	}).AddRow(
		id, jobID, false, nil, nil, nil,
		false, false, false, false, false, false, false,
		nil, false, false, isWebhook,
		time.Now(), "webhook", nil, nil,
	)
}

func TestScheduleStore_FindOrCreateWebhookSchedule(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO dataorch.job_schedules .* ON CONFLICT").
		WithArgs(int64(3), "webhook").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .* FROM dataorch.job_schedules WHERE job_id = .* AND is_webhook = true").
		WithArgs(int64(3)).
		WillReturnRows(scheduleRows(99, 3, true))

	store := NewScheduleStore(db)
	sched, err := store.FindOrCreateWebhookSchedule(context.Background(), 3, "webhook")
	require.NoError(t, err)

	assert.Equal(t, int64(99), sched.ID)
	assert.Equal(t, int64(3), sched.JobID)
	assert.True(t, sched.IsWebhook)
	assert.False(t, sched.Enabled)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatumStore_UpsertLastRunTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO dataorch.job_data .* ON CONFLICT").
		WithArgs(int64(3), models.FieldLastRunTime, at, "agent-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewDatumStore(db)
	require.NoError(t, store.UpsertLastRunTime(context.Background(), 3, at, "agent-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatumStore_AppendAndFindString(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO dataorch.job_data").
		WithArgs(int64(3), "Log_Info_20240101100000_abcd1234", "Job started", "agent-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT string_value FROM dataorch.job_data").
		WithArgs(int64(3), "Log_Info_20240101100000_abcd1234").
		WillReturnRows(sqlmock.NewRows([]string{"string_value"}).AddRow("Job started"))

	store := NewDatumStore(db)
	require.NoError(t, store.AppendString(context.Background(), 3, "Log_Info_20240101100000_abcd1234", "Job started", "agent-1"))

	value, err := store.FindString(context.Background(), 3, "Log_Info_20240101100000_abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "Job started", value)

	assert.NoError(t, mock.ExpectationsWereMet())
}
