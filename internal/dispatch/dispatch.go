// Package dispatch carries enrichment work from intake to the worker pool.
// Delivery is at-least-once: a message stays leased until it is acked,
// rejected or retried, and is redelivered if its consumer goes away.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

const contentTypeJSON = "application/json"

// Message asks the worker pool to enrich one job posting.
type Message struct {
	MessageID    string    `json:"message_id"`
	JobPostingID int64     `json:"job_posting_id"`
	Attempt      int       `json:"attempt"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// NewMessage creates the first-attempt message for a job posting.
func NewMessage(jobPostingID int64) Message {
	return Message{
		MessageID:    uuid.NewString(),
		JobPostingID: jobPostingID,
		EnqueuedAt:   time.Now().UTC(),
	}
}

// Next returns the message for the following attempt.
func (m Message) Next() Message {
	next := m
	next.Attempt++
	next.EnqueuedAt = time.Now().UTC()
	return next
}

// DecodeMessage parses a message body. Bodies without a positive job
// posting id are rejected.
func DecodeMessage(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: malformed dispatch message: %v", domain.ErrInvalidInput, err)
	}
	if msg.JobPostingID <= 0 {
		return Message{}, fmt.Errorf("%w: dispatch message has no job_posting_id", domain.ErrInvalidInput)
	}
	if msg.Attempt < 0 {
		msg.Attempt = 0
	}
	return msg, nil
}

// Enqueuer publishes enrichment requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobPostingID int64) error
}

// Delivery is a leased message. Exactly one of Ack, Reject, Retry or
// Requeue should be called; later calls are no-ops.
type Delivery interface {
	Message() Message
	// Ack settles the message as processed.
	Ack() error
	// Reject settles the message as permanently failed and dead-letters it.
	Reject() error
	// Retry republishes the message with Attempt+1 and settles this one.
	Retry(ctx context.Context) error
	// Requeue hands the message back unchanged, for work that never started.
	Requeue() error
}

// Source hands out leased deliveries until ctx is canceled, then closes
// the channel.
type Source interface {
	Consume(ctx context.Context) (<-chan Delivery, error)
}

// Queue is both ends of the dispatch path.
type Queue interface {
	Enqueuer
	Source
}
