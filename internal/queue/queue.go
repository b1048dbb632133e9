package queue

import (
	"context"
	"errors"
)

// ErrSkipRetry marks a task failure as permanent. The transport adapter maps
// it onto its own no-retry mechanism (asynq.SkipRetry for the asynq backend).
var ErrSkipRetry = errors.New("permanent task failure")

// Task is one delivered unit of work. The durable-queue backend guarantees a
// task is held by exactly one worker at a time.
type Task interface {
	Type() string
	Payload() []byte
}

// Handler processes a delivered task. A returned error is re-raised to the
// queue transport so its retry/backoff policy applies, unless it wraps
// ErrSkipRetry.
type Handler interface {
	ProcessTask(ctx context.Context, t Task) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, t Task) error

func (f HandlerFunc) ProcessTask(ctx context.Context, t Task) error {
	return f(ctx, t)
}

// Enqueuer places task messages on a named durable queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, taskType string, payload []byte) error
	Close() error
}
