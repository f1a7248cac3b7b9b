package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Queue is a named durable Redis list with competing-consumer semantics.
// Delivery is at-least-once from the pipeline's point of view: a worker
// that crashes after popping but before finishing its side effects leads
// to a redelivered job on retry paths, so consumers must be idempotent.
type Queue struct {
	client    *redis.Client
	queueName string
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

func (q *Queue) Name() string {
	return q.queueName
}

func (q *Queue) push(ctx context.Context, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.client.LPush(ctx, q.queueName, data).Err()
}

// pop blocks until a message arrives or the timeout elapses. Returns
// (nil, nil) on timeout.
func (q *Queue) pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (q *Queue) PushRepoTask(ctx context.Context, msg *RepoTaskMessage) error {
	return q.push(ctx, msg)
}

func (q *Queue) PopRepoTask(ctx context.Context, timeout time.Duration) (*RepoTaskMessage, error) {
	data, err := q.pop(ctx, timeout)
	if err != nil || data == nil {
		return nil, err
	}
	var msg RepoTaskMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal repo task: %w", err)
	}
	return &msg, nil
}

func (q *Queue) PushAITask(ctx context.Context, msg *AITaskMessage) error {
	return q.push(ctx, msg)
}

func (q *Queue) PopAITask(ctx context.Context, timeout time.Duration) (*AITaskMessage, error) {
	data, err := q.pop(ctx, timeout)
	if err != nil || data == nil {
		return nil, err
	}
	var msg AITaskMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ai task: %w", err)
	}
	return &msg, nil
}

func (q *Queue) PushResult(ctx context.Context, msg *ResultMessage) error {
	return q.push(ctx, msg)
}

func (q *Queue) PopResult(ctx context.Context, timeout time.Duration) (*ResultMessage, error) {
	data, err := q.pop(ctx, timeout)
	if err != nil || data == nil {
		return nil, err
	}
	var msg ResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result message: %w", err)
	}
	return &msg, nil
}

// Length returns the number of pending messages.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
