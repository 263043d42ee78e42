package dispatch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"dataorch/internal/queue"
)

const (
	DefaultQueueName = "dataorch-jobs"

	DefaultRetryCount = 3
	DefaultRetryDelay = 5 * time.Second
)

// recognized environment tags; anything else falls back to the default queue.
var environmentQueues = map[string]string{
	"production":  "dataorch-jobs-production",
	"staging":     "dataorch-jobs-staging",
	"development": "dataorch-jobs-development",
}

// ResolveQueueName maps a job's environment tag to its dispatch destination.
func ResolveQueueName(environment string) string {
	if name, ok := environmentQueues[strings.ToLower(strings.TrimSpace(environment))]; ok {
		return name
	}
	return DefaultQueueName
}

// Dispatcher hands ready instances to the transport with bounded retry. All
// failures surface as a boolean so one bad dispatch never interrupts the
// scheduler's tick loop.
type Dispatcher struct {
	transport  queue.Transport
	retryCount int
	retryDelay time.Duration
	logger     *zap.SugaredLogger
}

func NewDispatcher(transport queue.Transport, retryCount int, retryDelay time.Duration, logger *zap.SugaredLogger) *Dispatcher {
	if retryCount <= 0 {
		retryCount = DefaultRetryCount
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Dispatcher{
		transport:  transport,
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Enqueue publishes the dispatch message, retrying transient transport errors
// with a fixed delay. Exhaustion logs and returns false; it never panics and
// never returns an error.
func (d *Dispatcher) Enqueue(ctx context.Context, instanceID, jobID int64, queueName string) bool {
	msg := queue.Message{
		JobInstanceID:  instanceID,
		JobID:          jobID,
		QueueName:      queueName,
		ScheduledAtUTC: time.Now().UTC(),
	}

	payload, err := msg.Encode()
	if err != nil {
		d.logger.Errorw("failed to encode dispatch message",
			"instance_id", instanceID, "job_id", jobID, "error", err)
		return false
	}

	var lastErr error
	for attempt := 1; attempt <= d.retryCount; attempt++ {
		if err := d.transport.Publish(ctx, queueName, payload); err == nil {
			return true
		} else {
			lastErr = err
		}

		if attempt < d.retryCount {
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				d.logger.Warnw("dispatch cancelled",
					"instance_id", instanceID, "queue", queueName)
				return false
			}
		}
	}

	d.logger.Errorw("dispatch exhausted all attempts",
		"instance_id", instanceID,
		"job_id", jobID,
		"queue", queueName,
		"attempts", d.retryCount,
		"error", lastErr)
	return false
}
