// Package queue hands indexing work from request handlers to background
// workers. Handler errors are logged with the task so failed runs stay visible.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Task identifies one indexing job to run.
type Task struct {
	JobID   string `json:"jobId"`
	VideoID string `json:"videoId"`
	UserID  string `json:"userId"`
}

type Handler func(ctx context.Context, task Task) error

type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	// Consume runs handler for every task until ctx is cancelled.
	Consume(ctx context.Context, handler Handler) error
}

func encodeTask(task Task) (string, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task to JSON: %w", err)
	}
	return string(data), nil
}

func decodeTask(payload string) (Task, error) {
	var task Task
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if task.JobID == "" {
		return Task{}, fmt.Errorf("decode task: missing job id")
	}
	return task, nil
}

func run(ctx context.Context, handler Handler, task Task) error {
	if err := handler(ctx, task); err != nil {
		log.Printf("[queue] job %s (video %s) failed: %v", task.JobID, task.VideoID, err)
		return err
	}
	return nil
}
