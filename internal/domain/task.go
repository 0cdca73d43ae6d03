package domain

import "time"

// Task is the queue payload. The job itself lives in the job store; the
// message only names it.
type Task struct {
	JobID      int64     `json:"job_id"`
	Kind       JobKind   `json:"kind"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// TaskMessage wraps a Task with acknowledgement callbacks.
// The pool calls Ack or Nack once processing has finished.
type TaskMessage struct {
	Task *Task
	Ack  func() error
	Nack func(requeue bool) error
}
