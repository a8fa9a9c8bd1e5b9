package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner manages background task processing
type TaskRunner struct {
	store      TaskStore
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	factories  map[string]Factory
	errHandler func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		store:      store,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		factories:  make(map[string]Factory),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// RegisterFactory sets the factory used to resume stored tasks of
// taskType. It must be called before Start.
func (r *TaskRunner) RegisterFactory(taskType string, factory Factory) {
	r.factories[taskType] = factory
}

// Submit saves a task as pending and queues it for execution.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if r.ctx.Err() != nil {
		return ErrRunnerStopped
	}

	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if !r.enqueue(task) {
		// Nothing will pick the task up in this process.
		if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, ErrQueueFull.Error()); err != nil {
			r.logger.Error("failed to mark rejected task as failed",
				"task_id", task.ID(),
				"error", err)
		}
		return ErrQueueFull
	}

	r.logger.Debug("task submitted", "task_id", task.ID(), "task_type", task.Type())
	return nil
}

// Get returns the stored state of a task.
func (r *TaskRunner) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.store.GetTask(ctx, id)
}

// Start recovers unfinished tasks and starts the workers
func (r *TaskRunner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop cancels running tasks and waits for the workers to exit. Tasks
// interrupted this way stay in processing state and are resumed by the next
// Recover.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
}

// Recover requeues pending tasks and resets tasks left in processing state
// by a previous run.
func (r *TaskRunner) Recover() error {
	ctx := r.ctx

	pendingTasks, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Age zero returns every processing task
	processingTasks, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pendingTasks),
		"processing_count", len(processingTasks))

	for _, rec := range pendingTasks {
		r.requeue(ctx, rec, "")
	}
	for _, rec := range processingTasks {
		r.requeue(ctx, rec, "Reset after recovery")
	}

	return nil
}

// requeue rebuilds a stored task and queues it. A non-empty reason first
// resets the task to pending.
func (r *TaskRunner) requeue(ctx context.Context, rec Record, reason string) {
	logger := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	task, err := r.rebuild(rec)
	if err != nil {
		logger.Error("cannot resume task", "error", err)
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); err != nil {
			logger.Error("failed to mark unresumable task as failed", "error", err)
		}
		return
	}

	if reason != "" {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, reason); err != nil {
			logger.Error("failed to reset task status", "error", err)
			return
		}
	}

	if !r.enqueue(task) {
		logger.Error("failed to requeue task, queue is full")
		return
	}
	logger.Info("requeued task")
}

func (r *TaskRunner) rebuild(rec Record) (Task, error) {
	factory, ok := r.factories[rec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, rec.Type)
	}
	return factory(rec)
}

func (r *TaskRunner) enqueue(task Task) bool {
	select {
	case r.taskChan <- task:
		return true
	default:
		return false
	}
}

// worker processes tasks from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task := <-r.taskChan:
			r.processTask(task, id)
		}
	}
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(task Task, workerID int) {
	// Status writes must land even while the runner is shutting down.
	storeCtx := context.WithoutCancel(r.ctx)
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")
	started := time.Now()

	result, err := task.Execute(r.ctx)

	if r.ctx.Err() != nil {
		logger.Warn("task interrupted by shutdown, leaving it for recovery")
		return
	}

	if err != nil {
		logger.Error("task execution failed", "error", err)
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		r.errHandler(task, err)
		return
	}

	if updateErr := r.store.CompleteTask(storeCtx, task.ID(), result); updateErr != nil {
		logger.Error("failed to update task status to completed", "error", updateErr)
		return
	}
	logger.Info("task completed successfully", "elapsed", time.Since(started))
}

// stuckTaskMonitor periodically checks for tasks that have been in "processing"
// state for too long and resets them
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			r.resetStuckTasks()
		}
	}
}

func (r *TaskRunner) resetStuckTasks() {
	if r.config.StuckTaskAge <= 0 {
		return
	}

	stuckTasks, err := r.store.GetProcessingTasks(r.ctx, r.config.StuckTaskAge)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("failed to check for stuck tasks", "error", err)
		}
		return
	}

	if len(stuckTasks) > 0 {
		r.logger.Info("found stuck tasks", "count", len(stuckTasks))
	}
	for _, rec := range stuckTasks {
		r.requeue(r.ctx, rec, "Reset after being stuck in processing state")
	}
}
