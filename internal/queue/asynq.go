package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	defaultMaxRetry  = 3
	defaultRetention = 24 * time.Hour
)

// AsynqEnqueuer is the Redis-backed Enqueuer used in production.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) Enqueue(ctx context.Context, queue, taskType string, payload []byte) error {
	task := asynq.NewTask(taskType, payload)
	_, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Retention(defaultRetention),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func (e *AsynqEnqueuer) Close() error {
	return e.client.Close()
}

type asynqTask struct {
	task *asynq.Task
}

func (t asynqTask) Type() string    { return t.task.Type() }
func (t asynqTask) Payload() []byte { return t.task.Payload() }

// AdaptHandler bridges a queue.Handler into an asynq handler, translating
// ErrSkipRetry into asynq's skip-retry sentinel.
func AdaptHandler(h Handler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		err := h.ProcessTask(ctx, asynqTask{task: t})
		if err != nil && errors.Is(err, ErrSkipRetry) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
}
