package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/store"
	"github.com/phrazzld/codeforge-api/internal/task"
)

// TaskStore implements task.TaskStore in memory.
type TaskStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*task.Record
	now     func() time.Time
}

var _ task.TaskStore = (*TaskStore)(nil)

// TaskStoreOption configures a TaskStore.
type TaskStoreOption func(*TaskStore)

// WithTaskClock replaces the clock used for created and updated times.
func WithTaskClock(now func() time.Time) TaskStoreOption {
	return func(s *TaskStore) { s.now = now }
}

// NewTaskStore creates an empty TaskStore.
func NewTaskStore(opts ...TaskStoreOption) *TaskStore {
	s := &TaskStore{
		records: make(map[uuid.UUID]*task.Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveTask stores t with its current status.
func (s *TaskStore) SaveTask(_ context.Context, t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[t.ID()]; exists {
		return fmt.Errorf("%w: task %s", store.ErrDuplicate, t.ID())
	}

	now := s.now().UTC()
	s.records[t.ID()] = &task.Record{
		ID:        t.ID(),
		Type:      t.Type(),
		Payload:   append([]byte(nil), t.Payload()...),
		Status:    t.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// UpdateTaskStatus returns task.ErrTaskNotFound for unknown IDs.
func (s *TaskStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status task.TaskStatus, errorMsg string) error {
	return s.update(id, func(rec *task.Record) {
		rec.Status = status
		rec.ErrorMessage = errorMsg
	})
}

// CompleteTask returns task.ErrTaskNotFound for unknown IDs.
func (s *TaskStore) CompleteTask(_ context.Context, id uuid.UUID, result []byte) error {
	return s.update(id, func(rec *task.Record) {
		rec.Status = task.TaskStatusCompleted
		rec.ErrorMessage = ""
		rec.Result = append([]byte(nil), result...)
	})
}

func (s *TaskStore) update(id uuid.UUID, apply func(*task.Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return task.ErrTaskNotFound
	}
	apply(rec)
	rec.UpdatedAt = s.now().UTC()
	return nil
}

// GetTask returns a copy of the stored record.
func (s *TaskStore) GetTask(_ context.Context, id uuid.UUID) (*task.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

// GetPendingTasks returns pending tasks, oldest first.
func (s *TaskStore) GetPendingTasks(_ context.Context) ([]task.Record, error) {
	return s.byStatus(task.TaskStatusPending, 0), nil
}

// GetProcessingTasks returns processing tasks not updated for olderThan.
func (s *TaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]task.Record, error) {
	return s.byStatus(task.TaskStatusProcessing, olderThan), nil
}

func (s *TaskStore) byStatus(status task.TaskStatus, olderThan time.Duration) []task.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().UTC().Add(-olderThan)
	out := []task.Record{}
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, copyRecord(rec))
	}

	slices.SortFunc(out, func(a, b task.Record) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

func copyRecord(rec *task.Record) task.Record {
	out := *rec
	out.Payload = append([]byte(nil), rec.Payload...)
	if rec.Result != nil {
		out.Result = append([]byte(nil), rec.Result...)
	}
	return out
}
