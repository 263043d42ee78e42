package runner

import (
	"context"
	"fmt"
)

// RunContext is the fixed parameter contract handed to every executed job.
type RunContext struct {
	AppSettingsJSON  string
	AgentID          string
	JobID            int64
	JobInstanceID    int64
	JobScheduleID    int64
	WebhookParameter string
	// CodeRef points at the job's code artifact (script path or inline source).
	CodeRef string
}

// Runnable executes one job and returns its log lines, or an error when the
// job code signals failure.
type Runnable interface {
	Execute(ctx context.Context, rc RunContext) ([]string, error)
}

// RunError carries the failure message plus whatever trace output the sandbox
// produced; the agent persists both as an error datum.
type RunError struct {
	Message string
	Trace   string
}

func (e *RunError) Error() string {
	return e.Message
}

// Registry maps a job's code language tag to its sandbox.
type Registry struct {
	runners map[string]Runnable
}

func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]Runnable)}
}

func (r *Registry) Register(language string, runnable Runnable) {
	r.runners[language] = runnable
}

func (r *Registry) Lookup(language string) (Runnable, error) {
	runnable, ok := r.runners[language]
	if !ok {
		return nil, fmt.Errorf("no runner registered for language %q", language)
	}
	return runnable, nil
}
