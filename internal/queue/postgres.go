package queue

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

const DefaultChannel = "indexing_task"

// Postgres delivers tasks with LISTEN/NOTIFY. Notifications are not durable:
// a task sent while no consumer listens is lost, and its job stays pending
// until it is restarted.
type Postgres struct {
	db      *sql.DB
	dbURL   string
	channel string
	workers int
}

func NewPostgres(db *sql.DB, dbURL, channel string, workers int) *Postgres {
	if channel == "" {
		channel = DefaultChannel
	}
	if workers <= 0 {
		workers = 1
	}
	return &Postgres{db: db, dbURL: dbURL, channel: channel, workers: workers}
}

func (q *Postgres) Enqueue(ctx context.Context, task Task) error {
	payload, err := encodeTask(task)
	if err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, q.channel, payload); err != nil {
		return fmt.Errorf("notify %s: %w", q.channel, err)
	}
	return nil
}

func (q *Postgres) Consume(ctx context.Context, handler Handler) error {
	listener := pq.NewListener(q.dbURL, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("[queue] listen error: %v", err)
			}
		})
	defer listener.Close()

	if err := listener.Listen(q.channel); err != nil {
		return fmt.Errorf("listen error: %w", err)
	}
	log.Printf("[queue] listening on %q", q.channel)

	tasks := make(chan Task)
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				run(ctx, handler, task)
			}
		}()
	}
	defer wg.Wait()
	defer close(tasks)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil is sent after the connection is re-established.
			if n == nil {
				log.Printf("[queue] listener reconnected")
				continue
			}
			task, err := decodeTask(n.Extra)
			if err != nil {
				log.Printf("[queue] dropping malformed task %q: %v", n.Extra, err)
				continue
			}
			select {
			case tasks <- task:
			case <-ctx.Done():
				return nil
			}
		case <-time.After(time.Minute):
			go func() {
				if err := listener.Ping(); err != nil {
					log.Printf("[queue] ping error: %v", err)
				}
			}()
		}
	}
}
