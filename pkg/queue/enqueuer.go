package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for task creation
type EnqueuerRepository interface {
	CreateTask(ctx context.Context, task *Task) error
}

// Enqueuer handles task enqueueing
type Enqueuer struct {
	repo       EnqueuerRepository
	queue      string
	priority   Priority
	maxRetries int8
}

// EnqueuerOption configures an Enqueuer
type EnqueuerOption func(*Enqueuer)

// WithDefaultQueue sets the default queue name
func WithDefaultQueue(queue string) EnqueuerOption {
	return func(e *Enqueuer) {
		if queue != "" {
			e.queue = queue
		}
	}
}

// WithDefaultMaxRetries sets the retry budget for tasks without an explicit one (0-10)
func WithDefaultMaxRetries(n int8) EnqueuerOption {
	return func(e *Enqueuer) {
		if n >= 0 && n <= 10 {
			e.maxRetries = n
		}
	}
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	e := &Enqueuer{
		repo:       repo,
		queue:      DefaultQueueName,
		priority:   PriorityDefault,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*Task)

func WithQueue(queue string) EnqueueOption {
	return func(t *Task) {
		if queue != "" {
			t.Queue = queue
		}
	}
}

func WithPriority(priority Priority) EnqueueOption {
	return func(t *Task) {
		t.Priority = priority
	}
}

// WithMaxRetries sets the maximum number of retries (0-10)
func WithMaxRetries(maxRetries int8) EnqueueOption {
	return func(t *Task) {
		if maxRetries >= 0 && maxRetries <= 10 {
			t.MaxRetries = maxRetries
		}
	}
}

// WithDelay postpones the first attempt
func WithDelay(delay time.Duration) EnqueueOption {
	return func(t *Task) {
		if delay > 0 {
			t.ScheduledAt = t.ScheduledAt.Add(delay)
		}
	}
}

// Enqueue persists payload as a new pending task. The task is durable once
// Enqueue returns nil.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) error {
	if payload == nil {
		return ErrPayloadNil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	now := time.Now()
	task := &Task{
		ID:          uuid.New(),
		Queue:       e.queue,
		TaskName:    qualifiedStructName(payload),
		Payload:     body,
		Status:      TaskStatusPending,
		Priority:    e.priority,
		MaxRetries:  e.maxRetries,
		ScheduledAt: now,
		CreatedAt:   now,
	}
	for _, opt := range opts {
		opt(task)
	}

	if !task.Priority.Valid() {
		return ErrInvalidPriority
	}

	if err := e.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create task %q in queue %q: %w", task.TaskName, task.Queue, err)
	}
	return nil
}
