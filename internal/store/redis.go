package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playbookpilot/api/internal/model"
)

const (
	jobRetention       = 7 * 24 * time.Hour
	executionRetention = 30 * 24 * time.Hour
)

// RedisJobStore persists jobs as JSON records in Redis.
type RedisJobStore struct {
	redis *redis.Client
}

func NewRedisJobStore(redisClient *redis.Client) *RedisJobStore {
	return &RedisJobStore{redis: redisClient}
}

func (s *RedisJobStore) Create(ctx context.Context, job *model.Job) error {
	return setJSON(ctx, s.redis, jobKey(job.ID), job, jobRetention)
}

func (s *RedisJobStore) FindByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := getJSON(ctx, s.redis, jobKey(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *RedisJobStore) Save(ctx context.Context, job *model.Job) error {
	return setJSON(ctx, s.redis, jobKey(job.ID), job, jobRetention)
}

// RedisExecutionStore persists executions as JSON records in Redis.
type RedisExecutionStore struct {
	redis *redis.Client
}

func NewRedisExecutionStore(redisClient *redis.Client) *RedisExecutionStore {
	return &RedisExecutionStore{redis: redisClient}
}

func (s *RedisExecutionStore) Create(ctx context.Context, execution *model.Execution) error {
	return setJSON(ctx, s.redis, executionKey(execution.ID), execution, executionRetention)
}

func (s *RedisExecutionStore) FindByID(ctx context.Context, id string) (*model.Execution, error) {
	var execution model.Execution
	if err := getJSON(ctx, s.redis, executionKey(id), &execution); err != nil {
		return nil, err
	}
	return &execution, nil
}

func (s *RedisExecutionStore) Save(ctx context.Context, execution *model.Execution) error {
	return setJSON(ctx, s.redis, executionKey(execution.ID), execution, executionRetention)
}

// RedisPlaybookStore persists playbooks as JSON records plus dedicated
// counter keys. Counters live outside the JSON blob so that increments are
// a single INCRBY, never a read-modify-write on the record.
type RedisPlaybookStore struct {
	redis *redis.Client
}

func NewRedisPlaybookStore(redisClient *redis.Client) *RedisPlaybookStore {
	return &RedisPlaybookStore{redis: redisClient}
}

func (s *RedisPlaybookStore) Create(ctx context.Context, playbook *model.Playbook) error {
	if err := setJSON(ctx, s.redis, playbookKey(playbook.ID), playbook, 0); err != nil {
		return err
	}
	if playbook.Version > 0 {
		if err := s.redis.SetNX(ctx, playbookVersionKey(playbook.ID), playbook.Version, 0).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisPlaybookStore) FindByID(ctx context.Context, id string) (*model.Playbook, error) {
	var playbook model.Playbook
	if err := getJSON(ctx, s.redis, playbookKey(id), &playbook); err != nil {
		return nil, err
	}

	// Counter keys are authoritative over whatever Save last marshalled.
	runs, err := s.redis.Get(ctx, playbookRunsKey(id)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	playbook.RunCount = runs

	version, err := s.redis.Get(ctx, playbookVersionKey(id)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if version > 0 {
		playbook.Version = version
	}

	return &playbook, nil
}

func (s *RedisPlaybookStore) Save(ctx context.Context, playbook *model.Playbook) error {
	return setJSON(ctx, s.redis, playbookKey(playbook.ID), playbook, 0)
}

func (s *RedisPlaybookStore) IncrementRuns(ctx context.Context, id string, delta int64) (int64, error) {
	return s.redis.IncrBy(ctx, playbookRunsKey(id), delta).Result()
}

func (s *RedisPlaybookStore) IncrementVersion(ctx context.Context, id string) (int64, error) {
	return s.redis.Incr(ctx, playbookVersionKey(id)).Result()
}

// Helpers

func jobKey(id string) string             { return fmt.Sprintf("job:%s", id) }
func executionKey(id string) string       { return fmt.Sprintf("execution:%s", id) }
func playbookKey(id string) string        { return fmt.Sprintf("playbook:%s", id) }
func playbookRunsKey(id string) string    { return fmt.Sprintf("playbook:%s:runs", id) }
func playbookVersionKey(id string) string { return fmt.Sprintf("playbook:%s:version", id) }

func setJSON(ctx context.Context, client *redis.Client, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, ttl).Err()
}

func getJSON(ctx context.Context, client *redis.Client, key string, v interface{}) error {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}
