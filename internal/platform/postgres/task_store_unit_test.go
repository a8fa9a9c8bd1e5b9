package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskColumnNames = []string{
	"id", "type", "payload", "status", "result", "error_message", "created_at", "updated_at",
}

type fixedTask struct {
	id uuid.UUID
}

func (t fixedTask) ID() uuid.UUID {
	return t.id
}

func (t fixedTask) Type() string {
	return task.TaskTypeGeneration
}

func (t fixedTask) Payload() []byte {
	return []byte(`{"titles":["Two Sum"]}`)
}

func (t fixedTask) Status() task.TaskStatus {
	return task.TaskStatusPending
}

func (t fixedTask) Execute(context.Context) ([]byte, error) {
	return nil, nil
}

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newMockTaskStore(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresTaskStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func TestPostgresTaskStore_SaveTask(t *testing.T) {
	t.Parallel()
	s, mock := newMockTaskStore(t)
	tk := fixedTask{id: uuid.New()}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tasks (id, type, payload, status, created_at, updated_at)`)).
		WithArgs(tk.id, task.TaskTypeGeneration, []byte(`{"titles":["Two Sum"]}`), "pending", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveTask(context.Background(), tk))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_UpdateTaskStatus(t *testing.T) {
	t.Parallel()

	t.Run("stores error message", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockTaskStore(t)
		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(`SET status = $1, error_message = $2, updated_at = $3`)).
			WithArgs("failed", "boom", fixedNow, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusFailed, "boom"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty message is stored as NULL", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockTaskStore(t)
		id := uuid.New()

		mock.ExpectExec("UPDATE tasks").
			WithArgs("processing", nil, fixedNow, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusProcessing, ""))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockTaskStore(t)

		mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateTaskStatus(context.Background(), uuid.New(), task.TaskStatusFailed, "x")
		assert.ErrorIs(t, err, task.ErrTaskNotFound)
	})
}

func TestPostgresTaskStore_CompleteTask(t *testing.T) {
	t.Parallel()
	s, mock := newMockTaskStore(t)
	id := uuid.New()
	result := []byte(`{"status":"success","total":1,"completed":1,"failed":0,"errors":[]}`)

	mock.ExpectExec(regexp.QuoteMeta(`SET status = $1, result = $2, error_message = NULL`)).
		WithArgs("completed", result, fixedNow, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CompleteTask(context.Background(), id, result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_GetTask(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockTaskStore(t)
		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(`FROM tasks WHERE id = $1`)).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(taskColumnNames).AddRow(
				id.String(), task.TaskTypeGeneration, []byte(`{"titles":["a"]}`), "failed",
				nil, "generation batch rejected", fixedNow, fixedNow.Add(time.Minute),
			))

		rec, err := s.GetTask(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, task.TaskStatusFailed, rec.Status)
		assert.Nil(t, rec.Result)
		assert.Equal(t, "generation batch rejected", rec.ErrorMessage)
		assert.Equal(t, fixedNow.Add(time.Minute), rec.UpdatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockTaskStore(t)

		mock.ExpectQuery("FROM tasks WHERE id").WillReturnError(sql.ErrNoRows)

		_, err := s.GetTask(context.Background(), uuid.New())
		assert.ErrorIs(t, err, task.ErrTaskNotFound)
	})
}

func TestPostgresTaskStore_StatusQueries(t *testing.T) {
	t.Parallel()

	t.Run("pending tasks", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockTaskStore(t)
		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = $1 ORDER BY created_at ASC`)).
			WithArgs("pending").
			WillReturnRows(sqlmock.NewRows(taskColumnNames).AddRow(
				id.String(), task.TaskTypeGeneration, []byte(`{"titles":["a"]}`), "pending",
				nil, nil, fixedNow, fixedNow,
			))

		recs, err := s.GetPendingTasks(context.Background())

		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, id, recs[0].ID)
		assert.Empty(t, recs[0].ErrorMessage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("processing tasks older than cutoff", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockTaskStore(t)

		mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = $1 AND updated_at < $2`)).
			WithArgs("processing", fixedNow.Add(-30*time.Minute)).
			WillReturnRows(sqlmock.NewRows(taskColumnNames))

		recs, err := s.GetProcessingTasks(context.Background(), 30*time.Minute)

		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
