package queue

import (
	"context"
	"sync"
)

// Local is an in-process queue backed by a buffered channel.
type Local struct {
	tasks   chan Task
	workers int
}

func NewLocal(buffer, workers int) *Local {
	if buffer <= 0 {
		buffer = 64
	}
	if workers <= 0 {
		workers = 1
	}
	return &Local{tasks: make(chan Task, buffer), workers: workers}
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *Local) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Local) Consume(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-q.tasks:
					run(ctx, handler, task)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}
