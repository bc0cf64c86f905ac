package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer puts tasks on the queue. *asynq.Client satisfies it; tests record calls instead.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
