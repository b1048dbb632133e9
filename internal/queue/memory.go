package queue

import (
	"context"
	"errors"
	"sync"
)

// MemoryQueue is an in-process Enqueuer with FIFO delivery and bounded
// redelivery, standing in for the durable broker in tests.
type MemoryQueue struct {
	mu       sync.Mutex
	handlers map[string]Handler
	pending  []memoryTask
	maxRetry int
	closed   bool
}

type memoryTask struct {
	queue    string
	taskType string
	payload  []byte
	retries  int
}

func (t memoryTask) Type() string    { return t.taskType }
func (t memoryTask) Payload() []byte { return t.payload }

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		handlers: make(map[string]Handler),
		maxRetry: defaultMaxRetry,
	}
}

// Register binds a handler to a task type.
func (q *MemoryQueue) Register(taskType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

func (q *MemoryQueue) Enqueue(ctx context.Context, queue, taskType string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("queue closed")
	}
	q.pending = append(q.pending, memoryTask{queue: queue, taskType: taskType, payload: payload})
	return nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// Len returns the number of undelivered tasks.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain delivers pending tasks in FIFO order until the queue is empty.
// A task whose handler fails is redelivered up to maxRetry times unless the
// error wraps ErrSkipRetry.
func (q *MemoryQueue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return nil
		}
		task := q.pending[0]
		q.pending = q.pending[1:]
		handler := q.handlers[task.taskType]
		q.mu.Unlock()

		if handler == nil {
			return errors.New("no handler for task type " + task.taskType)
		}

		err := handler.ProcessTask(ctx, task)
		if err != nil && !errors.Is(err, ErrSkipRetry) && task.retries < q.maxRetry {
			task.retries++
			q.mu.Lock()
			q.pending = append(q.pending, task)
			q.mu.Unlock()
		}
	}
}
