package models

import "time"

// JobInstance is one materialized run of a schedule. The in_process/has_error
// columns plus agent_id are the authoritative lifecycle state; the flags on the
// job and schedule are caches of these.
type JobInstance struct {
	ID            int64
	JobScheduleID int64

	InProcess bool
	HasError  bool

	AgentID          *string
	WebhookParameter *string

	CreatedDate time.Time
	CreatedBy   string
	UpdatedDate *time.Time
	UpdatedBy   *string
}
