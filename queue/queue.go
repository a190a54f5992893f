// queue/queue.go
package queue

import (
	"context"
	"errors"

	"github.com/BotCoder254/streamvibes/models"
)

// ErrBadPayload marks a dequeued entry that could not be decoded. The entry
// is dropped; callers log it and keep consuming.
var ErrBadPayload = errors.New("malformed job payload")

// Queue hands processing jobs from the upload path to the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, job models.ProcessingJob) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (models.ProcessingJob, error)
}
