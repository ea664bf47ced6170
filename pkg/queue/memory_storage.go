package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements the queue repositories in process memory.
// Used by tests and by local runs without MongoDB.
type MemoryStorage struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	dlq   []*DeadLetter
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{tasks: make(map[uuid.UUID]*Task)}
}

func (ms *MemoryStorage) CreateTask(_ context.Context, task *Task) error {
	if task == nil {
		return ErrPayloadNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[task.ID]; exists {
		return ErrTaskExists
	}
	cp := *task
	ms.tasks[task.ID] = &cp
	return nil
}

// ClaimTask picks the highest-priority due task, oldest schedule first.
func (ms *MemoryStorage) ClaimTask(_ context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Task
	for _, task := range ms.tasks {
		if !slices.Contains(queues, task.Queue) || !claimable(task, now) {
			continue
		}
		if best == nil ||
			task.Priority > best.Priority ||
			(task.Priority == best.Priority && task.ScheduledAt.Before(best.ScheduledAt)) {
			best = task
		}
	}
	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = TaskStatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	cp := *best
	return &cp, nil
}

func claimable(task *Task, now time.Time) bool {
	switch task.Status {
	case TaskStatusPending:
		return !task.ScheduledAt.After(now)
	case TaskStatusProcessing:
		return task.LockedUntil != nil && task.LockedUntil.Before(now)
	}
	return false
}

func (ms *MemoryStorage) CompleteTask(_ context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, err := ms.processing(taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil
	return nil
}

func (ms *MemoryStorage) FailTask(_ context.Context, taskID uuid.UUID, errorMsg string, retryAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, err := ms.processing(taskID)
	if err != nil {
		return err
	}

	task.RetryCount++
	task.Error = &errorMsg
	task.Status = TaskStatusPending
	task.ScheduledAt = retryAt
	task.LockedUntil = nil
	task.LockedBy = nil
	return nil
}

func (ms *MemoryStorage) MoveToDLQ(_ context.Context, taskID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, ok := ms.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	task.Error = &errorMsg
	ms.dlq = append(ms.dlq, newDeadLetter(task))
	delete(ms.tasks, taskID)
	return nil
}

// Tasks returns a snapshot of queued tasks.
func (ms *MemoryStorage) Tasks() []Task {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]Task, 0, len(ms.tasks))
	for _, t := range ms.tasks {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// DeadLetters returns a snapshot of dead-lettered tasks.
func (ms *MemoryStorage) DeadLetters() []DeadLetter {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]DeadLetter, 0, len(ms.dlq))
	for _, d := range ms.dlq {
		out = append(out, *d)
	}
	return out
}

func (ms *MemoryStorage) processing(taskID uuid.UUID) (*Task, error) {
	task, ok := ms.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if task.Status != TaskStatusProcessing {
		return nil, ErrTaskNotClaimed
	}
	return task, nil
}
