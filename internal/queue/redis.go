package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a durable queue on a Redis list. Tasks whose handler fails are
// pushed onto "<queue>:failed" for inspection.
type Redis struct {
	client  *redis.Client
	queue   string
	failed  string
	workers int
	poll    time.Duration
}

// ConnectRedis establishes a connection to Redis
func ConnectRedis(ctx context.Context, addr, queue string, workers int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedis(client, queue, workers), nil
}

func NewRedis(client *redis.Client, queue string, workers int) *Redis {
	if queue == "" {
		queue = "indexing"
	}
	if workers <= 0 {
		workers = 1
	}
	return &Redis{
		client:  client,
		queue:   queue,
		failed:  queue + ":failed",
		workers: workers,
		poll:    5 * time.Second,
	}
}

func (q *Redis) Enqueue(ctx context.Context, task Task) error {
	payload, err := encodeTask(task)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.queue, payload).Err(); err != nil {
		return fmt.Errorf("error adding to queue: %w", err)
	}
	return nil
}

func (q *Redis) Consume(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx, handler)
		}()
	}
	wg.Wait()
	return nil
}

func (q *Redis) work(ctx context.Context, handler Handler) {
	for ctx.Err() == nil {
		res, err := q.client.BLPop(ctx, q.poll, q.queue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[queue] redis pop: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// BLPOP replies with [key, value].
		payload := res[1]
		task, err := decodeTask(payload)
		if err != nil {
			log.Printf("[queue] dropping malformed task %q: %v", payload, err)
			continue
		}
		if err := run(ctx, handler, task); err != nil {
			if err := q.client.RPush(context.Background(), q.failed, payload).Err(); err != nil {
				log.Printf("[queue] error recording failed task: %v", err)
			}
		}
	}
}

// Len returns the number of pending tasks.
func (q *Redis) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.queue).Result()
	if err != nil {
		return 0, fmt.Errorf("error getting queue length: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection
func (q *Redis) Close() error {
	return q.client.Close()
}
