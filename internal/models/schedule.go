package models

import "time"

// JobSchedule describes when a job fires. Interval mode uses RunEveryHours
// (optionally bounded by the hour window); window mode uses the day flags plus
// StartHour/StopHour. A webhook schedule is a synthetic disabled row that only
// anchors ad-hoc instances.
type JobSchedule struct {
	ID      int64
	JobID   int64
	Enabled bool

	RunEveryHours *int
	StartHour     *int
	StopHour      *int

	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool

	LastRun   *time.Time
	InProcess bool
	HadError  bool
	IsWebhook bool

	CreatedDate time.Time
	CreatedBy   string
	UpdatedDate *time.Time
	UpdatedBy   *string
}

// DayEnabled reports whether the schedule's flag for the given weekday is set.
func (s *JobSchedule) DayEnabled(day time.Weekday) bool {
	switch day {
	case time.Monday:
		return s.Monday
	case time.Tuesday:
		return s.Tuesday
	case time.Wednesday:
		return s.Wednesday
	case time.Thursday:
		return s.Thursday
	case time.Friday:
		return s.Friday
	case time.Saturday:
		return s.Saturday
	case time.Sunday:
		return s.Sunday
	}
	return false
}

// HasAnyDay reports whether at least one day flag is set.
func (s *JobSchedule) HasAnyDay() bool {
	return s.Monday || s.Tuesday || s.Wednesday || s.Thursday ||
		s.Friday || s.Saturday || s.Sunday
}
