// workers/workers_test.go
package workers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/BotCoder254/streamvibes/database"
	"github.com/BotCoder254/streamvibes/events"
	"github.com/BotCoder254/streamvibes/logger"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/queue"
	"github.com/BotCoder254/streamvibes/services"
	"github.com/BotCoder254/streamvibes/services/mediatest"
	"github.com/BotCoder254/streamvibes/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeline struct {
	repo   *database.MemoryRepository
	store  *storage.LocalStore
	queue  *queue.MemoryQueue
	runner *mediatest.FakeRunner
	videos *services.VideoService
	pool   *ProcessingPool
}

func newPipeline(t *testing.T, cfg config.ProcessingConfig) *pipeline {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	log := logger.Discard()
	p := &pipeline{
		repo:   database.NewMemoryRepository(),
		store:  store,
		queue:  queue.NewMemoryQueue(8),
		runner: mediatest.NewFakeRunner(),
	}
	validator := services.NewMediaValidator(config.UploadConfig{MaxVideoBytes: 500 << 20, MaxThumbnailBytes: 5 << 20})
	p.videos = services.NewVideoService(p.repo, store, p.queue, validator, events.NopPublisher{}, logger.Component(log, "videos"))
	cfg.FFmpegPath, cfg.FFprobePath = "ffmpeg", "ffprobe"
	proc := services.NewProcessingService(p.runner, store, cfg, logger.Component(log, "processing"))
	p.pool = NewProcessingPool(p.queue, proc, p.videos, cfg, logger.Component(log, "pool"))
	return p
}

// start runs the pool until the test ends.
func (p *pipeline) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.pool.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("pool did not stop")
		}
	})
}

func (p *pipeline) upload(t *testing.T) *models.Video {
	t.Helper()
	body := "raw-video-bytes"
	v, err := p.videos.UploadVideo(context.Background(), services.UploadRequest{
		UploaderID: "u1",
		Title:      "Concert",
		Video: services.UploadFile{
			MediaFile: services.MediaFile{FileName: "concert.mp4", ContentType: "video/mp4", Size: int64(len(body))},
			Body:      strings.NewReader(body),
		},
	})
	require.NoError(t, err)
	return v
}

func (p *pipeline) tempFiles(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(filepath.Dir(p.store.UploadsDir()), "tmp"))
	require.NoError(t, err)
	return len(entries)
}

func waitOutcome(t *testing.T, pool *ProcessingPool) models.JobOutcome {
	t.Helper()
	select {
	case o := <-pool.Outcomes():
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome")
		return models.JobOutcome{}
	}
}

func TestUploadToReadyAndEngagement(t *testing.T) {
	p := newPipeline(t, config.ProcessingConfig{Workers: 2, JobTimeout: time.Minute, OutcomeBuffer: 4})
	p.start(t)
	ctx := context.Background()

	video := p.upload(t)
	assert.Equal(t, models.StatusProcessing, video.Status)

	outcome := waitOutcome(t, p.pool)
	assert.Equal(t, video.ID, outcome.VideoID)
	assert.Equal(t, models.StatusReady, outcome.Status)
	assert.True(t, outcome.Settled)
	assert.NoError(t, outcome.Err)

	ready, err := p.videos.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, ready.Status)
	assert.InDelta(t, 10.0, ready.Duration, 0.001)
	assert.Equal(t, "/uploads/videos/"+video.ID+".mp4", ready.VideoPath)
	assert.Equal(t, "/uploads/thumbnails/"+video.ID+".jpg", ready.ThumbnailPath)
	assert.Zero(t, ready.Views)
	assert.Zero(t, p.tempFiles(t))
	for _, loc := range []string{ready.VideoPath, ready.ThumbnailPath} {
		ok, err := p.store.Exists(ctx, loc)
		require.NoError(t, err)
		assert.True(t, ok, loc)
	}

	engagement := services.NewEngagementService(p.repo, nil, logger.Component(logger.Discard(), "engagement"))
	for i := 0; i < 3; i++ {
		_, err := engagement.RecordView(ctx, video.ID, "")
		require.NoError(t, err)
	}
	got, err := p.videos.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Views)
	assert.Len(t, got.ViewsHistory, 3)

	_, err = engagement.React(ctx, video.ID, "fan", models.VoteLike)
	require.NoError(t, err)
	got, _ = p.videos.GetVideo(ctx, video.ID)
	assert.Equal(t, []string{"fan"}, got.Likes)

	counters, err := engagement.React(ctx, video.ID, "fan", models.VoteDislike)
	require.NoError(t, err)
	assert.Zero(t, counters.Likes)
	assert.Equal(t, models.ReactionDisliked, counters.Reaction)
	got, _ = p.videos.GetVideo(ctx, video.ID)
	assert.Empty(t, got.Likes)
	assert.Equal(t, []string{"fan"}, got.Dislikes)
}

func TestTranscodeFailureSettlesFailed(t *testing.T) {
	p := newPipeline(t, config.ProcessingConfig{Workers: 1, JobTimeout: time.Minute, OutcomeBuffer: 4})
	p.runner.Fail = mediatest.FailWhen("libx264")
	p.start(t)

	video := p.upload(t)
	outcome := waitOutcome(t, p.pool)
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.True(t, outcome.Settled)
	assert.ErrorIs(t, outcome.Err, models.ErrProcessing)

	failed, err := p.videos.GetVideo(context.Background(), video.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.ErrorMessage)
	assert.Empty(t, failed.VideoPath)
	assert.Zero(t, p.tempFiles(t))

	ok, err := p.store.Exists(context.Background(), "/uploads/videos/"+video.ID+".mp4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobTimeoutSettlesFailed(t *testing.T) {
	p := newPipeline(t, config.ProcessingConfig{Workers: 1, JobTimeout: 50 * time.Millisecond, OutcomeBuffer: 4})
	p.runner.Delay = 2 * time.Second
	p.start(t)

	video := p.upload(t)
	outcome := waitOutcome(t, p.pool)
	assert.Equal(t, models.StatusFailed, outcome.Status)

	failed, err := p.videos.GetVideo(context.Background(), video.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "timed out")
}

type panickingProcessor struct{}

func (panickingProcessor) Process(context.Context, models.ProcessingJob) (*models.ProcessingResult, error) {
	panic("boom")
}

type countingSettler struct {
	calls atomic.Int32
	last  atomic.Value
}

func (s *countingSettler) Settle(ctx context.Context, job models.ProcessingJob, result *models.ProcessingResult, procErr error) (*models.Video, error) {
	s.calls.Add(1)
	if procErr != nil {
		s.last.Store(procErr.Error())
		return &models.Video{ID: job.VideoID, Status: models.StatusFailed}, nil
	}
	return &models.Video{ID: job.VideoID, Status: models.StatusReady}, nil
}

func runPool(t *testing.T, pool *ProcessingPool) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pool.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestPanicIsRecoveredAndSettled(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	settler := &countingSettler{}
	pool := NewProcessingPool(q, panickingProcessor{}, settler, config.ProcessingConfig{Workers: 1, OutcomeBuffer: 4}, logger.Component(logger.Discard(), "pool"))
	runPool(t, pool)

	require.NoError(t, q.Enqueue(context.Background(), models.ProcessingJob{JobID: "j1", VideoID: "v1"}))
	outcome := waitOutcome(t, pool)
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, models.ErrProcessing)
	assert.Equal(t, int32(1), settler.calls.Load())
	assert.Contains(t, settler.last.Load(), "boom")
}

type okProcessor struct{}

func (okProcessor) Process(context.Context, models.ProcessingJob) (*models.ProcessingResult, error) {
	return &models.ProcessingResult{VideoPath: "/uploads/videos/v.mp4", ThumbnailPath: "/uploads/thumbnails/v.jpg", Duration: 1}, nil
}

func TestFullOutcomeChannelDropsWithoutBlocking(t *testing.T) {
	q := queue.NewMemoryQueue(8)
	settler := &countingSettler{}
	pool := NewProcessingPool(q, okProcessor{}, settler, config.ProcessingConfig{Workers: 1, OutcomeBuffer: 1}, logger.Component(logger.Discard(), "pool"))
	runPool(t, pool)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), models.ProcessingJob{JobID: "j", VideoID: "v"}))
	}
	assert.Eventually(t, func() bool { return settler.calls.Load() == 5 }, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, pool.Outcomes(), 1)
}

func TestOutcomesClosedAfterRun(t *testing.T) {
	pool := NewProcessingPool(queue.NewMemoryQueue(1), okProcessor{}, &countingSettler{}, config.ProcessingConfig{Workers: 3}, logger.Component(logger.Discard(), "pool"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pool.Run(ctx))
	_, open := <-pool.Outcomes()
	assert.False(t, open)
}

type fakeSweeper struct {
	removed int
	err     error
	ttl     time.Duration
}

func (f *fakeSweeper) SweepTemp(olderThan time.Duration) (int, error) {
	f.ttl = olderThan
	return f.removed, f.err
}

type fakeFailer struct {
	failed int
	after  time.Duration
}

func (f *fakeFailer) FailStale(ctx context.Context, olderThan time.Duration) (int, error) {
	f.after = olderThan
	return f.failed, nil
}

func TestCleanupSweepRunsBothPasses(t *testing.T) {
	sweeper := &fakeSweeper{removed: 2, err: errors.New("partial")}
	failer := &fakeFailer{failed: 1}
	w := NewCleanupWorker(sweeper, failer, config.CleanupConfig{Interval: time.Hour, TempTTL: 2 * time.Hour, StaleAfter: 3 * time.Hour}, logger.Component(logger.Discard(), "cleanup"))

	w.Sweep(context.Background())
	assert.Equal(t, 2*time.Hour, sweeper.ttl)
	assert.Equal(t, 3*time.Hour, failer.after, "a temp sweep error does not skip stale records")
}

func TestCleanupFailsStaleUploads(t *testing.T) {
	p := newPipeline(t, config.ProcessingConfig{Workers: 1})
	video := p.upload(t)

	// Nobody runs the pool, so the record stays in processing.
	w := NewCleanupWorker(p.store, p.videos, config.CleanupConfig{TempTTL: 0, StaleAfter: 0}, logger.Component(logger.Discard(), "cleanup"))
	w.Sweep(context.Background())

	got, err := p.videos.GetVideo(context.Background(), video.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Zero(t, p.tempFiles(t))
}
