package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dataorch/internal/models"
)

func intPtr(v int) *int              { return &v }
func timePtr(t time.Time) *time.Time { return &t }
func mondayAt(hour int) time.Time    { return time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC) }
func tuesdayAt(hour int) time.Time   { return time.Date(2024, 1, 2, hour, 0, 0, 0, time.UTC) }

func TestDue_WindowMode_MondayInWindow(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:   true,
		Monday:    true,
		StartHour: intPtr(9),
		StopHour:  intPtr(17),
	}

	assert.True(t, Due(sched, mondayAt(10)))
}

func TestDue_WindowMode_WrongDay(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:   true,
		Monday:    true,
		StartHour: intPtr(9),
		StopHour:  intPtr(17),
	}

	assert.False(t, Due(sched, tuesdayAt(10)))
}

func TestDue_WindowMode_OutsideHours(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:   true,
		Monday:    true,
		StartHour: intPtr(9),
		StopHour:  intPtr(17),
	}

	assert.False(t, Due(sched, mondayAt(8)))
	assert.False(t, Due(sched, mondayAt(18)))
	assert.True(t, Due(sched, mondayAt(9)))
	assert.True(t, Due(sched, mondayAt(17)))
}

func TestDue_WindowMode_AlreadyFiredToday(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:   true,
		Monday:    true,
		StartHour: intPtr(9),
		StopHour:  intPtr(17),
		LastRun:   timePtr(mondayAt(9)),
	}

	assert.False(t, Due(sched, mondayAt(10)))
}

func TestDue_NoDayFlags_NeverDue(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:   true,
		StartHour: intPtr(0),
		StopHour:  intPtr(23),
	}

	assert.False(t, Due(sched, mondayAt(10)))
}

func TestDue_WindowMode_MissingHours(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled: true,
		Monday:  true,
	}

	assert.False(t, Due(sched, mondayAt(10)))
}

func TestDue_IntervalMode_FirstRun(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:       true,
		RunEveryHours: intPtr(4),
	}

	assert.True(t, Due(sched, mondayAt(10)))
}

func TestDue_IntervalMode_ElapsedAndNotElapsed(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:       true,
		RunEveryHours: intPtr(4),
		LastRun:       timePtr(mondayAt(6)),
	}

	assert.True(t, Due(sched, mondayAt(10)))
	assert.False(t, Due(sched, mondayAt(9)))
}

func TestDue_IntervalMode_RespectsWindow(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:       true,
		RunEveryHours: intPtr(1),
		StartHour:     intPtr(9),
		StopHour:      intPtr(17),
		LastRun:       timePtr(mondayAt(6)),
	}

	assert.False(t, Due(sched, mondayAt(8)))
	assert.True(t, Due(sched, mondayAt(9)))
}

// No window shorter than the interval fires twice: after a fire last_run
// advances, so the next due point is a full interval away.
func TestDue_IntervalMode_NoDoubleFireWithinInterval(t *testing.T) {
	sched := &models.JobSchedule{
		Enabled:       true,
		RunEveryHours: intPtr(2),
	}

	fired := mondayAt(10)
	assert.True(t, Due(sched, fired))

	sched.LastRun = timePtr(fired)
	for minutes := 1; minutes < 120; minutes += 10 {
		assert.False(t, Due(sched, fired.Add(time.Duration(minutes)*time.Minute)),
			"fired again %d minutes after last run", minutes)
	}
	assert.True(t, Due(sched, fired.Add(2*time.Hour)))
}
