// queue/memory_queue.go
package queue

import (
	"context"

	"github.com/BotCoder254/streamvibes/models"
)

// MemoryQueue is a bounded in-process queue.
type MemoryQueue struct {
	jobs chan models.ProcessingJob
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan models.ProcessingJob, capacity)}
}

// Enqueue blocks while the queue is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job models.ProcessingJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return models.Wrap("enqueue job", models.ErrStorage, ctx.Err())
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (models.ProcessingJob, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return models.ProcessingJob{}, ctx.Err()
	}
}

func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}
