package scheduler

import (
	"time"

	"dataorch/internal/models"
)

// Due evaluates whether a schedule should fire at the given instant.
//
// Interval mode (RunEveryHours set): due once the configured number of hours
// has elapsed since the last run, optionally restricted to the hour-of-day
// window when both StartHour and StopHour are set. A schedule that never ran
// fires immediately.
//
// Window mode: due when today's day flag is set, the current hour falls within
// [StartHour, StopHour], and the schedule has not already fired today. A
// schedule with no day flags is never due.
func Due(s *models.JobSchedule, now time.Time) bool {
	if s.RunEveryHours != nil && *s.RunEveryHours > 0 {
		return dueByInterval(s, now)
	}
	return dueByWindow(s, now)
}

func dueByInterval(s *models.JobSchedule, now time.Time) bool {
	if s.StartHour != nil && s.StopHour != nil && !withinWindow(now.Hour(), *s.StartHour, *s.StopHour) {
		return false
	}
	if s.LastRun == nil {
		return true
	}
	elapsed := now.Sub(*s.LastRun)
	return elapsed >= time.Duration(*s.RunEveryHours)*time.Hour
}

func dueByWindow(s *models.JobSchedule, now time.Time) bool {
	if !s.HasAnyDay() || !s.DayEnabled(now.Weekday()) {
		return false
	}
	if s.StartHour == nil || s.StopHour == nil {
		return false
	}
	if !withinWindow(now.Hour(), *s.StartHour, *s.StopHour) {
		return false
	}
	// One firing per day: the window would otherwise re-fire on every tick
	// after the previous instance completes.
	if s.LastRun != nil && sameDay(*s.LastRun, now) {
		return false
	}
	return true
}

func withinWindow(hour, start, stop int) bool {
	return hour >= start && hour <= stop
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
