package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// Job is one resolved webhook payload waiting for processing: the
// organization it belongs to and its canonical-typed record batches.
type Job struct {
	OrganizationUID string                   `json:"organization_uid"`
	Entities        map[string][]sync.Record `json:"entities"`
}

func encodeJob(job *Job) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: failed to encode job: %w", err)
	}
	return data, nil
}

func decodeJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("queue: failed to decode job: %w", err)
	}
	if job.OrganizationUID == "" {
		return nil, errors.New("queue: job has no organization uid")
	}
	return &job, nil
}

// RedisQueue is a Redis-list-backed job queue shared by the webhook
// handler (producer) and the worker pool (consumers). Delivery is
// at-least-once; retries are safe because processing correlates by
// identity, not by position.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a queue over an existing Redis client.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "connector:sync:jobs"
	}
	return &RedisQueue{client: client, key: key}
}

// Enqueue pushes one resolved batch for asynchronous processing.
func (q *RedisQueue) Enqueue(ctx context.Context, org *sync.Organization, entities map[string][]sync.Record) error {
	data, err := encodeJob(&Job{OrganizationUID: org.UID, Entities: entities})
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("queue: failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. Returns (nil, nil)
// when the timeout elapses with an empty queue.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: failed to dequeue job: %w", err)
	}
	// BRPOP returns [key, value].
	if len(result) < 2 {
		return nil, errors.New("queue: unexpected BRPOP reply")
	}
	return decodeJob([]byte(result[1]))
}

// Len returns the number of jobs waiting in the queue.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: failed to read queue length: %w", err)
	}
	return n, nil
}

var _ sync.JobQueue = (*RedisQueue)(nil)
