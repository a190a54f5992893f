// services/helpers_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/BotCoder254/streamvibes/database"
	"github.com/BotCoder254/streamvibes/logger"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/queue"
	"github.com/BotCoder254/streamvibes/storage"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.StatusEvent
}

func (p *recordingPublisher) PublishStatus(ctx context.Context, e models.StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []models.StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.StatusEvent(nil), p.events...)
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, models.ProcessingJob) error {
	return fmt.Errorf("redis: connection refused")
}

func (failingQueue) Dequeue(ctx context.Context) (models.ProcessingJob, error) {
	<-ctx.Done()
	return models.ProcessingJob{}, ctx.Err()
}

type testEnv struct {
	repo      *database.MemoryRepository
	store     *storage.LocalStore
	queue     *queue.MemoryQueue
	publisher *recordingPublisher
	videos    *VideoService
	clock     *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s%d", prefix, n.Add(1)) }
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	env := &testEnv{
		repo:      database.NewMemoryRepository(),
		store:     store,
		queue:     queue.NewMemoryQueue(16),
		publisher: &recordingPublisher{},
		clock:     &testClock{now: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)},
	}
	validator := NewMediaValidator(config.UploadConfig{MaxVideoBytes: 500 << 20, MaxThumbnailBytes: 5 << 20})
	env.videos = NewVideoService(env.repo, store, env.queue, validator, env.publisher, logger.Component(logger.Discard(), "videos"))
	env.videos.now = env.clock.Now
	env.videos.newID = sequentialIDs("id")
	return env
}

func videoUpload(uploader, title string) UploadRequest {
	body := "raw-video-bytes"
	return UploadRequest{
		UploaderID:  uploader,
		Title:       title,
		Description: "  a description  ",
		Category:    "music",
		Tags:        []string{" Live ", "live", "Rock"},
		Video: UploadFile{
			MediaFile: MediaFile{FileName: "clip.mp4", ContentType: "video/mp4", Size: int64(len(body))},
			Body:      strings.NewReader(body),
		},
	}
}

// readyVideo stores a ready video directly.
func (e *testEnv) readyVideo(t *testing.T, id, uploader string, duration float64) *models.Video {
	t.Helper()
	v := &models.Video{
		ID:            id,
		Title:         "video " + id,
		UploaderID:    uploader,
		Category:      models.CategoryOther,
		Status:        models.StatusReady,
		VideoPath:     "/uploads/videos/" + id + ".mp4",
		ThumbnailPath: "/uploads/thumbnails/" + id + ".jpg",
		Duration:      duration,
		CreatedAt:     e.clock.Now(),
		UpdatedAt:     e.clock.Now(),
	}
	require.NoError(t, e.repo.Create(context.Background(), v))
	return v
}
