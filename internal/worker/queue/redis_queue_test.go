package queue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisQueueName(t *testing.T) {
	q := NewRedisQueue(unreachable(t), "viralcut:batches")
	if q.Name() != "viralcut:batches" {
		t.Fatalf("name = %q", q.Name())
	}
}

func TestRedisQueueUnreachable(t *testing.T) {
	q := NewRedisQueue(unreachable(t), "viralcut:batches")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := q.Push(ctx, "b1"); err == nil {
		t.Fatal("push to an unreachable redis must fail")
	}
	id, err := q.Pop(ctx, 50*time.Millisecond)
	if err == nil || id != "" {
		t.Fatalf("pop = %q, %v", id, err)
	}
}
