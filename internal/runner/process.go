package runner

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Minute

// ProcessRunner executes job code in a child process. Stdout lines are the
// job's log lines; a non-zero exit becomes a RunError with stderr as the trace.
// The standard parameter contract is passed as positional arguments after the
// code artifact: appSettingsJson, agentId, jobId, instanceId, scheduleId,
// webhookParameter.
type ProcessRunner struct {
	command string
	args    []string
	timeout time.Duration
}

func NewPythonRunner(timeout time.Duration) *ProcessRunner {
	return newProcessRunner("python3", nil, timeout)
}

func NewNodeRunner(timeout time.Duration) *ProcessRunner {
	return newProcessRunner("node", nil, timeout)
}

func NewShellRunner(timeout time.Duration) *ProcessRunner {
	return newProcessRunner("sh", nil, timeout)
}

func newProcessRunner(command string, args []string, timeout time.Duration) *ProcessRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProcessRunner{command: command, args: args, timeout: timeout}
}

func (p *ProcessRunner) Execute(ctx context.Context, rc RunContext) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append([]string{}, p.args...)
	args = append(args,
		rc.CodeRef,
		rc.AppSettingsJSON,
		rc.AgentID,
		strconv.FormatInt(rc.JobID, 10),
		strconv.FormatInt(rc.JobInstanceID, 10),
		strconv.FormatInt(rc.JobScheduleID, 10),
		rc.WebhookParameter,
	)

	cmd := exec.CommandContext(ctx, p.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	logs := splitLines(stdout.String())

	if err != nil {
		return logs, &RunError{
			Message: err.Error(),
			Trace:   stderr.String(),
		}
	}
	return logs, nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimRight(line, "\r"); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
