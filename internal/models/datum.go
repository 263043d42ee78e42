package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FieldLastRunTime is the well-known datum key holding a job's last successful
// run time; at most one row per job carries it.
const FieldLastRunTime = "Last Job Run Time"

// JobDatum is one key/value row in the per-job data store. Log lines and error
// reports use string_value; the last-run marker uses date_value.
type JobDatum struct {
	ID               int64
	JobID            int64
	FieldDescription string
	StringValue      *string
	DateValue        *time.Time

	CreatedDate time.Time
	CreatedBy   string
	UpdatedDate *time.Time
	UpdatedBy   *string
}

// LogInfoKey builds a unique datum key for one log line. The timestamp keeps
// keys sortable; the random suffix keeps two lines in the same second distinct.
func LogInfoKey(at time.Time) string {
	return fmt.Sprintf("Log_Info_%s_%s", at.UTC().Format("20060102150405"), uuid.NewString()[:8])
}

// ErrorKey builds a unique datum key for one error report.
func ErrorKey(at time.Time) string {
	return fmt.Sprintf("Error_%s_%s", at.UTC().Format("20060102150405"), uuid.NewString()[:8])
}
