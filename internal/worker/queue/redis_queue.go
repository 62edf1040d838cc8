// Package queue is the redis list that carries queued batch ids from the
// API to the workers.
package queue

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a FIFO: producers LPUSH, workers BRPOP.
type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

func (q *RedisQueue) Name() string { return q.queueName }

// Push enqueues a batch id.
func (q *RedisQueue) Push(ctx context.Context, batchID string) error {
	return q.rdb.LPush(ctx, q.queueName, batchID).Err()
}

// Pop blocks up to wait for the next batch id. It returns "" and no error
// when the wait elapses with the queue empty. A zero wait blocks until ctx ends.
func (q *RedisQueue) Pop(ctx context.Context, wait time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, wait, q.queueName).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// Len returns the number of waiting batches.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.queueName).Result()
}
