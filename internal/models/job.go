package models

import "time"

// Job is the unit of schedulable work: a reference to executable code plus the
// cached lifecycle flags mirrored from its instances.
type Job struct {
	ID             int64
	OrganizationID int64
	Name           string
	Environment    string
	Enabled        bool

	// Cached from the active instance; authoritative state lives on the
	// instance rows.
	Queued    bool
	InProcess bool
	InError   bool

	CodeLanguage string
	CodeRef      string

	WebhookGUID *string
	JobQueueID  *int64

	CreatedDate time.Time
	CreatedBy   string
	UpdatedDate *time.Time
	UpdatedBy   *string
}

type Organization struct {
	ID          int64
	Name        string
	CreatedDate time.Time
	CreatedBy   string
	UpdatedDate *time.Time
	UpdatedBy   *string
}

// JobGroup is an organizational grouping of jobs; membership lives in the
// job_job_group join table.
type JobGroup struct {
	ID          int64
	Name        string
	Active      bool
	CreatedDate time.Time
	CreatedBy   string
	UpdatedDate *time.Time
	UpdatedBy   *string
}

// JobQueue names a dedicated dispatch destination a job can be pinned to,
// overriding the environment-derived queue.
type JobQueue struct {
	ID          int64
	Name        string
	CreatedDate time.Time
	CreatedBy   string
	UpdatedDate *time.Time
	UpdatedBy   *string
}
