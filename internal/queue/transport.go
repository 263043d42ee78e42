package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Transport is a named, durable, at-least-once message queue. Queues are
// declared idempotently on first use by either side.
type Transport interface {
	Publish(ctx context.Context, queue string, message []byte) error
	Consume(ctx context.Context, queue string) (<-chan Delivery, error)
	Close() error
}

// Delivery is one received message. Ack must be called once the instance state
// has been persisted; Nack requeues for another worker.
type Delivery struct {
	Body []byte
	Ack  func() error
	Nack func() error
}

// Message is the flat dispatch payload handed from the scheduler or webhook
// trigger to whichever agent picks it up.
type Message struct {
	JobInstanceID  int64     `json:"JobInstanceId"`
	JobID          int64     `json:"JobId"`
	QueueName      string    `json:"QueueName"`
	ScheduledAtUTC time.Time `json:"ScheduledAtUtc"`
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func DecodeMessage(body []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(body, &m)
	return m, err
}
