package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkerRepository defines the interface for worker operations
type WorkerRepository interface {
	// ClaimTask atomically claims the next available task. Tasks whose lock
	// expired are claimable again.
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error)

	CompleteTask(ctx context.Context, taskID uuid.UUID) error

	// FailTask records the error, increments the retry count and reschedules
	// the task for retryAt.
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string, retryAt time.Time) error

	// MoveToDLQ removes the task from the queue and stores it as a dead letter.
	MoveToDLQ(ctx context.Context, taskID uuid.UUID, errorMsg string) error
}

// Worker processes tasks from the queue
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	cancel   context.CancelFunc

	queues       []string
	pullInterval time.Duration
	lockTimeout  time.Duration
	retryBackoff time.Duration
	logger       *slog.Logger
}

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*Worker)

// WithQueues sets which queues the worker should pull from
func WithQueues(queues ...string) WorkerOption {
	return func(w *Worker) {
		if len(queues) > 0 {
			w.queues = queues
		}
	}
}

// WithPullInterval sets how often the worker checks for new tasks
func WithPullInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pullInterval = d
		}
	}
}

// WithLockTimeout sets the lock duration for tasks, which is also the
// handler timeout
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.lockTimeout = d
		}
	}
}

// WithRetryBackoff sets the base of the linear retry backoff
func WithRetryBackoff(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d >= 0 {
			w.retryBackoff = d
		}
	}
}

// WithMaxConcurrentTasks sets the maximum number of concurrent tasks
func WithMaxConcurrentTasks(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.sem = make(chan struct{}, n)
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker creates a new task worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	w := &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		workerID:     uuid.New(),
		sem:          make(chan struct{}, 1),
		queues:       []string{DefaultQueueName},
		pullInterval: 5 * time.Second,
		lockTimeout:  5 * time.Minute,
		retryBackoff: 30 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(slog.String("component", "queue.worker"), slog.String("worker_id", w.workerID.String()))

	return w, nil
}

// RegisterHandler registers task handlers; nil handlers are ignored
func (w *Worker) RegisterHandler(handlers ...Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			w.handlers[h.Name()] = h
		}
	}
	return nil
}

// Start begins processing tasks in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerStarted
	}
	if len(w.handlers) == 0 {
		return ErrNoHandlers
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("worker started",
		slog.Any("queues", w.queues),
		slog.Int("max_concurrent", cap(w.sem)))
	return nil
}

// Stop cancels polling and waits for in-flight tasks to finish
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}
	w.cancel()
	w.cancel = nil
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("worker stopped")
	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		select {
		case w.sem <- struct{}{}:
		default:
			w.logger.Debug("all worker slots busy, skipping tick")
			continue
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()

			if err := w.pullAndProcess(ctx); err != nil && !errors.Is(err, ErrHandlerNotFound) {
				w.logger.Error("failed to process task", slog.String("error", err.Error()))
			}
		}()
	}
}

func (w *Worker) pullAndProcess(ctx context.Context) error {
	task, err := w.repo.ClaimTask(ctx, w.workerID, w.queues, w.lockTimeout)
	if err != nil {
		if errors.Is(err, ErrNoTaskToClaim) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to claim task: %w", err)
	}
	return w.processTask(task)
}

// processTask runs the handler detached from the worker context so that
// shutdown lets in-flight tasks complete.
func (w *Worker) processTask(task *Task) (retErr error) {
	start := time.Now()
	log := w.logger.With(
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
	)

	w.mu.Lock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	if !ok {
		log.Error("no handler registered for task type")
		if err := w.repo.MoveToDLQ(ctx, task.ID, ErrHandlerNotFound.Error()+": "+task.TaskName); err != nil {
			return fmt.Errorf("failed to move task %s to DLQ: %w", task.ID, err)
		}
		return ErrHandlerNotFound
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", slog.Any("panic", r))
			retErr = w.handleFailure(ctx, log, task, fmt.Errorf("panic in handler: %v", r), time.Since(start))
		}
	}()

	if err := handler.Handle(ctx, task.Payload); err != nil {
		return w.handleFailure(ctx, log, task, err, time.Since(start))
	}

	if err := w.repo.CompleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to mark task %s as completed: %w", task.ID, err)
	}
	log.Info("task completed", slog.Duration("duration", time.Since(start)))
	return nil
}

// handleFailure reschedules the task, or dead-letters it once RetryCount
// would exceed MaxRetries.
func (w *Worker) handleFailure(ctx context.Context, log *slog.Logger, task *Task, execErr error, duration time.Duration) error {
	log.Error("task failed",
		slog.Int("retry_count", int(task.RetryCount)),
		slog.Int("max_retries", int(task.MaxRetries)),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	if task.RetryCount >= task.MaxRetries {
		if err := w.repo.MoveToDLQ(ctx, task.ID, execErr.Error()); err != nil {
			return fmt.Errorf("failed to move task %s to DLQ after max retries: %w", task.ID, err)
		}
		log.Warn("task moved to dead letter queue")
		return nil
	}

	retryAt := time.Now().Add(retryDelay(w.retryBackoff, task.RetryCount+1))
	if err := w.repo.FailTask(ctx, task.ID, execErr.Error(), retryAt); err != nil {
		return fmt.Errorf("failed to update task %s status to failed: %w", task.ID, err)
	}
	return nil
}
