// queue/redis_queue.go
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BotCoder254/streamvibes/models"
	"github.com/redis/go-redis/v9"
)

// popTimeout bounds each BLPop so cancellation is noticed promptly.
const popTimeout = 5 * time.Second

// RedisQueue is a FIFO list: RPush on enqueue, BLPop on dequeue.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

func NewRedisQueue(client redis.Cmdable, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job models.ProcessingJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return models.Wrap("enqueue job", models.ErrStorage, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (models.ProcessingJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.ProcessingJob{}, err
		}
		result, err := q.client.BLPop(ctx, popTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return models.ProcessingJob{}, ctxErr
			}
			return models.ProcessingJob{}, fmt.Errorf("dequeue: %w", err)
		}
		// result is [key, value]
		var job models.ProcessingJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil || job.VideoID == "" {
			return models.ProcessingJob{}, fmt.Errorf("%w: %q", ErrBadPayload, truncate(result[1], 120))
		}
		return job, nil
	}
}

// Len is the number of queued jobs.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
