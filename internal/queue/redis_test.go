package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewRedis(client, "indexing", 1)
	q.poll = time.Second
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"ok", "bad"} {
		if err := q.Enqueue(ctx, Task{JobID: id, VideoID: "v", UserID: "u"}); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", id, err)
		}
	}
	if n, err := q.Len(ctx); err != nil || n != 2 {
		t.Fatalf("Len() = %d, %v; want 2", n, err)
	}

	handled := make(chan Task, 2)
	stopped := make(chan struct{})
	go func() {
		q.Consume(ctx, func(ctx context.Context, task Task) error {
			handled <- task
			if task.JobID == "bad" {
				return errors.New("analysis failed")
			}
			return nil
		})
		close(stopped)
	}()

	for _, want := range []string{"ok", "bad"} {
		select {
		case got := <-handled:
			if got.JobID != want || got.UserID != "u" {
				t.Errorf("handled %+v, want job %s", got, want)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Consume did not return after cancel")
	}

	failed, err := mr.List("indexing:failed")
	if err != nil {
		t.Fatalf("failed list: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed list = %v, want one task", failed)
	}
}
