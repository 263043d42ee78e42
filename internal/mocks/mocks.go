// Package mocks provides hand-rolled test doubles for the store and transport
// interfaces. Unset function fields fall back to benign defaults.
package mocks

import (
	"context"
	"database/sql"
	"time"

	"dataorch/internal/models"
	"dataorch/internal/queue"
)

type MockJobStore struct {
	FindByIDFunc                 func(ctx context.Context, id int64) (*models.Job, error)
	FindEnabledByWebhookGUIDFunc func(ctx context.Context, guid string) (*models.Job, error)
	QueueNameByIDFunc            func(ctx context.Context, queueID int64) (string, error)
}

func (m *MockJobStore) FindByID(ctx context.Context, id int64) (*models.Job, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *MockJobStore) FindEnabledByWebhookGUID(ctx context.Context, guid string) (*models.Job, error) {
	if m.FindEnabledByWebhookGUIDFunc != nil {
		return m.FindEnabledByWebhookGUIDFunc(ctx, guid)
	}
	return nil, sql.ErrNoRows
}

func (m *MockJobStore) QueueNameByID(ctx context.Context, queueID int64) (string, error) {
	if m.QueueNameByIDFunc != nil {
		return m.QueueNameByIDFunc(ctx, queueID)
	}
	return "", sql.ErrNoRows
}

func (m *MockJobStore) Close() error { return nil }

type MockScheduleStore struct {
	FetchRunnableFunc               func(ctx context.Context) ([]models.JobSchedule, error)
	FindByIDFunc                    func(ctx context.Context, id int64) (*models.JobSchedule, error)
	FindOrCreateWebhookScheduleFunc func(ctx context.Context, jobID int64, createdBy string) (*models.JobSchedule, error)
}

func (m *MockScheduleStore) FetchRunnable(ctx context.Context) ([]models.JobSchedule, error) {
	if m.FetchRunnableFunc != nil {
		return m.FetchRunnableFunc(ctx)
	}
	return nil, nil
}

func (m *MockScheduleStore) FindByID(ctx context.Context, id int64) (*models.JobSchedule, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *MockScheduleStore) FindOrCreateWebhookSchedule(ctx context.Context, jobID int64, createdBy string) (*models.JobSchedule, error) {
	if m.FindOrCreateWebhookScheduleFunc != nil {
		return m.FindOrCreateWebhookScheduleFunc(ctx, jobID, createdBy)
	}
	return nil, sql.ErrNoRows
}

func (m *MockScheduleStore) Close() error { return nil }

type MockInstanceStore struct {
	CreateFunc     func(ctx context.Context, scheduleID int64, webhookParameter *string, touchLastRun bool, createdBy string) (int64, error)
	FindByIDFunc   func(ctx context.Context, id int64) (*models.JobInstance, error)
	ClaimFunc      func(ctx context.Context, id int64, agentID string) (bool, error)
	CompleteFunc   func(ctx context.Context, id int64, agentID string) error
	MarkErrorFunc  func(ctx context.Context, id int64, updatedBy string) error
	SweepStuckFunc func(ctx context.Context, olderThan time.Duration, updatedBy string) (int64, error)
}

func (m *MockInstanceStore) Create(ctx context.Context, scheduleID int64, webhookParameter *string, touchLastRun bool, createdBy string) (int64, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, scheduleID, webhookParameter, touchLastRun, createdBy)
	}
	return 1, nil
}

func (m *MockInstanceStore) FindByID(ctx context.Context, id int64) (*models.JobInstance, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *MockInstanceStore) Claim(ctx context.Context, id int64, agentID string) (bool, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, id, agentID)
	}
	return true, nil
}

func (m *MockInstanceStore) Complete(ctx context.Context, id int64, agentID string) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id, agentID)
	}
	return nil
}

func (m *MockInstanceStore) MarkError(ctx context.Context, id int64, updatedBy string) error {
	if m.MarkErrorFunc != nil {
		return m.MarkErrorFunc(ctx, id, updatedBy)
	}
	return nil
}

func (m *MockInstanceStore) SweepStuck(ctx context.Context, olderThan time.Duration, updatedBy string) (int64, error) {
	if m.SweepStuckFunc != nil {
		return m.SweepStuckFunc(ctx, olderThan, updatedBy)
	}
	return 0, nil
}

func (m *MockInstanceStore) Close() error { return nil }

type MockDatumStore struct {
	AppendStringFunc      func(ctx context.Context, jobID int64, fieldDescription, value, createdBy string) error
	UpsertLastRunTimeFunc func(ctx context.Context, jobID int64, at time.Time, by string) error
	FindStringFunc        func(ctx context.Context, jobID int64, fieldDescription string) (string, error)
}

func (m *MockDatumStore) AppendString(ctx context.Context, jobID int64, fieldDescription, value, createdBy string) error {
	if m.AppendStringFunc != nil {
		return m.AppendStringFunc(ctx, jobID, fieldDescription, value, createdBy)
	}
	return nil
}

func (m *MockDatumStore) UpsertLastRunTime(ctx context.Context, jobID int64, at time.Time, by string) error {
	if m.UpsertLastRunTimeFunc != nil {
		return m.UpsertLastRunTimeFunc(ctx, jobID, at, by)
	}
	return nil
}

func (m *MockDatumStore) FindString(ctx context.Context, jobID int64, fieldDescription string) (string, error) {
	if m.FindStringFunc != nil {
		return m.FindStringFunc(ctx, jobID, fieldDescription)
	}
	return "", sql.ErrNoRows
}

func (m *MockDatumStore) Close() error { return nil }

type MockTransport struct {
	PublishFunc func(ctx context.Context, queueName string, message []byte) error
	ConsumeFunc func(ctx context.Context, queueName string) (<-chan queue.Delivery, error)
}

func (m *MockTransport) Publish(ctx context.Context, queueName string, message []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, queueName, message)
	}
	return nil
}

func (m *MockTransport) Consume(ctx context.Context, queueName string) (<-chan queue.Delivery, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, queueName)
	}
	ch := make(chan queue.Delivery)
	close(ch)
	return ch, nil
}

func (m *MockTransport) Close() error { return nil }

// MockDispatcher satisfies both the scheduler's and the webhook's Dispatcher.
type MockDispatcher struct {
	EnqueueFunc func(ctx context.Context, instanceID, jobID int64, queueName string) bool
	Calls       []DispatchCall
}

type DispatchCall struct {
	InstanceID int64
	JobID      int64
	QueueName  string
}

func (m *MockDispatcher) Enqueue(ctx context.Context, instanceID, jobID int64, queueName string) bool {
	m.Calls = append(m.Calls, DispatchCall{InstanceID: instanceID, JobID: jobID, QueueName: queueName})
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, instanceID, jobID, queueName)
	}
	return true
}
