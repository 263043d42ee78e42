package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dataorch/internal/store"
)

const createdBy = "webhook"

// Dispatcher hands the freshly created instance to the queue transport.
type Dispatcher interface {
	Enqueue(ctx context.Context, instanceID, jobID int64, queueName string) bool
}

// QueueResolver maps a job to its dispatch destination. The scheduler and the
// webhook trigger share one implementation.
type QueueResolver func(ctx context.Context, jobID int64) (string, error)

// Server exposes the webhook trigger: an opaque per-job GUID creates an ad-hoc
// instance immediately, bypassing the schedule clock. Every call creates a new
// instance; callers needing de-duplication pass their own key through the
// parameter string.
type Server struct {
	jobs       store.JobStore
	schedules  store.ScheduleStore
	instances  store.InstanceStore
	dispatcher Dispatcher
	resolve    QueueResolver
	logger     *zap.SugaredLogger
}

func NewServer(
	jobs store.JobStore,
	schedules store.ScheduleStore,
	instances store.InstanceStore,
	dispatcher Dispatcher,
	resolve QueueResolver,
	logger *zap.SugaredLogger,
) *Server {
	return &Server{
		jobs:       jobs,
		schedules:  schedules,
		instances:  instances,
		dispatcher: dispatcher,
		resolve:    resolve,
		logger:     logger,
	}
}

type triggerResponse struct {
	Success       bool   `json:"success"`
	JobID         int64  `json:"jobId"`
	JobName       string `json:"jobName"`
	JobInstanceID int64  `json:"jobInstanceId"`
	Message       string `json:"message"`
	TriggeredAt   string `json:"triggeredAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/webhook/health", s.handleHealth)
	r.Get("/webhook/{guid}", s.handleTrigger)
	r.Post("/webhook/{guid}", s.handleTrigger)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	guid := chi.URLParam(r, "guid")
	if _, err := uuid.Parse(guid); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid webhook identifier"})
		return
	}

	job, err := s.jobs.FindEnabledByWebhookGUID(ctx, guid)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Webhook not found or job is disabled"})
		return
	}

	parameter := requestParameter(r)

	schedule, err := s.schedules.FindOrCreateWebhookSchedule(ctx, job.ID, createdBy)
	if err != nil {
		s.logger.Errorw("failed to resolve webhook schedule", "job_id", job.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to trigger job"})
		return
	}

	var parameterPtr *string
	if parameter != "" {
		parameterPtr = &parameter
	}
	instanceID, err := s.instances.Create(ctx, schedule.ID, parameterPtr, false, createdBy)
	if err != nil {
		s.logger.Errorw("failed to create webhook instance", "job_id", job.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to trigger job"})
		return
	}

	queueName, err := s.resolve(ctx, job.ID)
	if err != nil {
		s.logger.Errorw("failed to resolve queue for webhook job", "job_id", job.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to trigger job"})
		return
	}

	if !s.dispatcher.Enqueue(ctx, instanceID, job.ID, queueName) {
		if err := s.instances.MarkError(ctx, instanceID, createdBy); err != nil {
			s.logger.Errorw("failed to mark undelivered webhook instance errored",
				"instance_id", instanceID, "error", err)
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to dispatch job"})
		return
	}

	s.logger.Infow("webhook triggered",
		"job_id", job.ID, "instance_id", instanceID, "queue", queueName)

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:       true,
		JobID:         job.ID,
		JobName:       job.Name,
		JobInstanceID: instanceID,
		Message:       fmt.Sprintf("Job '%s' triggered successfully", job.Name),
		TriggeredAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

// requestParameter flattens the query string and request body into the
// free-form parameter string carried through to the executed code.
func requestParameter(r *http.Request) string {
	parameter := r.URL.RawQuery

	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
		if err == nil && len(body) > 0 {
			if parameter != "" {
				parameter = parameter + "&" + string(body)
			} else {
				parameter = string(body)
			}
		}
	}
	return parameter
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
