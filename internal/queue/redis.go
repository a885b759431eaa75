package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// redisPollInterval bounds each blocking pop so ctx cancellation is
	// observed promptly.
	redisPollInterval = 1 * time.Second

	// resultTTL is how long an unclaimed result key survives.
	resultTTL = 10 * time.Minute
)

// Redis is a Broker backed by Redis lists: one shared task list, plus a
// per-task result key. Workers in other processes consume the same
// namespace.
type Redis struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedis creates a Redis-backed broker. The client is owned by the
// caller and is not closed by Close.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	if namespace == "" {
		namespace = "stepflow"
	}
	return &Redis{client: client, namespace: namespace}
}

func (r *Redis) taskKey() string {
	return r.namespace + ":tasks"
}

func (r *Redis) resultKey(taskID string) string {
	return r.namespace + ":results:" + taskID
}

// Submit pushes a task onto the shared task list.
func (r *Redis) Submit(ctx context.Context, msg *TaskMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := r.client.RPush(ctx, r.taskKey(), data).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// NextTask pops the next task, blocking until one is available or ctx is
// done.
func (r *Redis) NextTask(ctx context.Context) (*TaskMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vals, err := r.client.BLPop(ctx, redisPollInterval, r.taskKey()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("dequeue task: %w", err)
		}

		var msg TaskMessage
		if err := json.Unmarshal([]byte(vals[1]), &msg); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		return &msg, nil
	}
}

// Complete pushes the result onto the task's result key.
func (r *Redis) Complete(ctx context.Context, res *ResultMessage) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	key := r.resultKey(res.TaskID)
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("deliver result: %w", err)
	}
	// Bound the lifetime of results nobody claims.
	r.client.Expire(ctx, key, resultTTL)
	return nil
}

// AwaitResult blocks until the task's result arrives or ctx is done.
func (r *Redis) AwaitResult(ctx context.Context, taskID string) (*ResultMessage, error) {
	key := r.resultKey(taskID)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vals, err := r.client.BLPop(ctx, redisPollInterval, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("await result: %w", err)
		}

		var res ResultMessage
		if err := json.Unmarshal([]byte(vals[1]), &res); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		return &res, nil
	}
}

// Close is a no-op; the Redis client is owned by the caller.
func (r *Redis) Close() error {
	return nil
}
