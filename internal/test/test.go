package test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"podscribe/internal/db"
)

// EnqueuedTask is a task captured by MockTaskEnqueuer together with its options.
type EnqueuedTask struct {
	Task *asynq.Task
	Opts []asynq.Option
}

// ProcessIn returns the delay requested for the task, if any.
func (e EnqueuedTask) ProcessIn() (time.Duration, bool) {
	for _, opt := range e.Opts {
		if opt.Type() == asynq.ProcessInOpt {
			d, ok := opt.Value().(time.Duration)
			return d, ok
		}
	}
	return 0, false
}

// MockTaskEnqueuer is a mock implementation of tasks.TaskEnqueuer for testing.
type MockTaskEnqueuer struct {
	EnqueuedTasks []EnqueuedTask
	Err           error
}

func (m *MockTaskEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.EnqueuedTasks = append(m.EnqueuedTasks, EnqueuedTask{Task: task, Opts: opts})
	return &asynq.TaskInfo{ID: "test-task-id", Queue: "default"}, nil
}

// NewMockDB returns a Store backed by sqlmock. The mock is closed on test cleanup.
func NewMockDB(t *testing.T) (*db.Store, sqlmock.Sqlmock) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { mockDb.Close() })

	return db.New(sqlx.NewDb(mockDb, "postgres")), mock
}
