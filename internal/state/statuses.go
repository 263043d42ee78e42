package state

// InstanceStatus describes where a JobInstance sits in its lifecycle. The status
// is derived from the in_process/has_error/agent_id columns rather than stored;
// the columns stay authoritative.
type InstanceStatus string

const (
	StatusCreated   InstanceStatus = "created"
	StatusClaimed   InstanceStatus = "claimed"
	StatusCompleted InstanceStatus = "completed"
	StatusErrored   InstanceStatus = "errored"
)

func (s InstanceStatus) String() string {
	return string(s)
}

var AllStatuses = []InstanceStatus{
	StatusCreated,
	StatusClaimed,
	StatusCompleted,
	StatusErrored,
}

// Terminal reports whether no further transition is legal.
func (s InstanceStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusErrored
}

type Transition struct {
	From InstanceStatus
	To   InstanceStatus
}

var ValidTransitions = []Transition{
	{From: StatusCreated, To: StatusClaimed},
	{From: StatusClaimed, To: StatusCompleted},
	{From: StatusClaimed, To: StatusErrored},
	// Stuck sweep errors an instance that was never claimed, or whose claim
	// went stale, without an agent completing the transition.
	{From: StatusCreated, To: StatusErrored},
}

func IsValidTransition(from, to InstanceStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// Of maps the authoritative instance columns onto a status.
func Of(inProcess, hasError, claimed bool) InstanceStatus {
	switch {
	case inProcess && claimed:
		return StatusClaimed
	case inProcess:
		return StatusCreated
	case hasError:
		return StatusErrored
	default:
		return StatusCompleted
	}
}
