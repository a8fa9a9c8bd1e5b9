package memstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/platform/memstore"
	"github.com/phrazzld/codeforge-api/internal/store"
	"github.com/phrazzld/codeforge-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	id      uuid.UUID
	payload []byte
}

func newStubTask() *stubTask {
	return &stubTask{id: uuid.New(), payload: []byte(`{"titles":["Two Sum"]}`)}
}

func (t *stubTask) ID() uuid.UUID {
	return t.id
}

func (t *stubTask) Type() string {
	return "stub"
}

func (t *stubTask) Payload() []byte {
	return t.payload
}

func (t *stubTask) Status() task.TaskStatus {
	return task.TaskStatusPending
}

func (t *stubTask) Execute(context.Context) ([]byte, error) {
	return nil, nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTaskStore_Lifecycle(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := memstore.NewTaskStore(memstore.WithTaskClock(clock.Now))
	ctx := context.Background()
	tk := newStubTask()

	require.NoError(t, s.SaveTask(ctx, tk))
	assert.ErrorIs(t, s.SaveTask(ctx, tk), store.ErrDuplicate)

	rec, err := s.GetTask(ctx, tk.ID())
	require.NoError(t, err)
	assert.Equal(t, task.TaskStatusPending, rec.Status)
	assert.Equal(t, "stub", rec.Type)
	assert.JSONEq(t, `{"titles":["Two Sum"]}`, string(rec.Payload))

	clock.Advance(time.Minute)
	require.NoError(t, s.UpdateTaskStatus(ctx, tk.ID(), task.TaskStatusProcessing, ""))
	clock.Advance(time.Minute)
	require.NoError(t, s.CompleteTask(ctx, tk.ID(), []byte(`{"status":"success"}`)))

	rec, err = s.GetTask(ctx, tk.ID())
	require.NoError(t, err)
	assert.Equal(t, task.TaskStatusCompleted, rec.Status)
	assert.JSONEq(t, `{"status":"success"}`, string(rec.Result))
	assert.Equal(t, clock.Now(), rec.UpdatedAt)
	assert.Equal(t, clock.Now().Add(-2*time.Minute), rec.CreatedAt)
}

func TestTaskStore_UnknownTask(t *testing.T) {
	t.Parallel()

	s := memstore.NewTaskStore()
	ctx := context.Background()
	id := uuid.New()

	_, err := s.GetTask(ctx, id)
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, id, task.TaskStatusFailed, "x"), task.ErrTaskNotFound)
	assert.ErrorIs(t, s.CompleteTask(ctx, id, nil), task.ErrTaskNotFound)
}

func TestTaskStore_StatusQueries(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := memstore.NewTaskStore(memstore.WithTaskClock(clock.Now))
	ctx := context.Background()

	first, second, stuck, fresh := newStubTask(), newStubTask(), newStubTask(), newStubTask()
	for _, tk := range []*stubTask{first, second, stuck, fresh} {
		require.NoError(t, s.SaveTask(ctx, tk))
		clock.Advance(time.Second)
	}

	require.NoError(t, s.UpdateTaskStatus(ctx, stuck.ID(), task.TaskStatusProcessing, ""))
	clock.Advance(time.Hour)
	require.NoError(t, s.UpdateTaskStatus(ctx, fresh.ID(), task.TaskStatusProcessing, ""))

	pending, err := s.GetPendingTasks(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID(), pending[0].ID)
	assert.Equal(t, second.ID(), pending[1].ID)

	all, err := s.GetProcessingTasks(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	old, err := s.GetProcessingTasks(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, stuck.ID(), old[0].ID)
}
