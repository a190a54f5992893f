// workers/video_processing_worker.go
package workers

import (
	"context"
	"errors"
	"time"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/BotCoder254/streamvibes/metrics"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/queue"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Processor runs one job to completion.
type Processor interface {
	Process(ctx context.Context, job models.ProcessingJob) (*models.ProcessingResult, error)
}

// Settler records the outcome of a job on its video.
type Settler interface {
	Settle(ctx context.Context, job models.ProcessingJob, result *models.ProcessingResult, procErr error) (*models.Video, error)
}

// ProcessingPool pulls jobs off the queue with a fixed number of workers.
type ProcessingPool struct {
	queue     queue.Queue
	processor Processor
	settler   Settler
	cfg       config.ProcessingConfig
	log       *logrus.Entry
	outcomes  chan models.JobOutcome
}

func NewProcessingPool(q queue.Queue, processor Processor, settler Settler, cfg config.ProcessingConfig, log *logrus.Entry) *ProcessingPool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = 30 * time.Second
	}
	return &ProcessingPool{
		queue:     q,
		processor: processor,
		settler:   settler,
		cfg:       cfg,
		log:       log,
		outcomes:  make(chan models.JobOutcome, max(cfg.OutcomeBuffer, 0)),
	}
}

// Outcomes is closed once Run returns.
func (p *ProcessingPool) Outcomes() <-chan models.JobOutcome {
	return p.outcomes
}

// Run blocks until ctx is cancelled and every in-flight job has settled.
func (p *ProcessingPool) Run(ctx context.Context) error {
	defer close(p.outcomes)
	p.log.WithField("workers", p.cfg.Workers).Info("processing pool started")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			return p.loop(ctx, worker)
		})
	}
	err := g.Wait()
	p.log.Info("processing pool stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *ProcessingPool) loop(ctx context.Context, worker int) error {
	log := p.log.WithField("worker", worker)
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, queue.ErrBadPayload) {
				log.WithError(err).Warn("dropping malformed job")
				continue
			}
			log.WithError(err).Error("dequeue failed")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		p.handle(ctx, job)
	}
}

// handle processes and settles one job. The job's own context is detached
// from ctx so a shutdown does not abort work mid-transcode; its timeout still
// bounds it.
func (p *ProcessingPool) handle(ctx context.Context, job models.ProcessingJob) {
	log := p.log.WithFields(logrus.Fields{"job_id": job.JobID, "video_id": job.VideoID})
	start := time.Now()
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	result, procErr := p.run(context.WithoutCancel(ctx), job)
	elapsed := time.Since(start)

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.SettleTimeout)
	defer cancel()
	video, err := p.settler.Settle(settleCtx, job, result, procErr)

	outcome := models.JobOutcome{JobID: job.JobID, VideoID: job.VideoID, Elapsed: elapsed, Settled: err == nil}
	switch {
	case err != nil:
		outcome.Status = models.StatusFailed
		outcome.Err = err
		log.WithError(err).Warn("job outcome not recorded")
	case video.Status == models.StatusReady:
		outcome.Status = models.StatusReady
		log.WithField("elapsed", elapsed.Round(time.Millisecond)).Info("video ready")
	default:
		outcome.Status = models.StatusFailed
		outcome.Err = procErr
		log.WithError(procErr).Error("video processing failed")
	}
	metrics.JobsTotal.WithLabelValues(string(outcome.Status)).Inc()
	metrics.JobDuration.Observe(elapsed.Seconds())

	select {
	case p.outcomes <- outcome:
	default:
		metrics.OutcomesDropped.Inc()
		log.Warn("outcome channel full, dropping outcome")
	}
}

func (p *ProcessingPool) run(ctx context.Context, job models.ProcessingJob) (result *models.ProcessingResult, err error) {
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = models.E("process video", models.ErrProcessing, "processing crashed: %v", r)
			p.log.WithField("video_id", job.VideoID).Errorf("panic in processing job: %v", r)
		}
	}()
	result, err = p.processor.Process(ctx, job)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = models.E("process video", models.ErrProcessing, "processing timed out after %s", p.cfg.JobTimeout)
	}
	if err != nil && !errors.Is(err, models.ErrProcessing) {
		err = models.Wrap("process video", models.ErrProcessing, err)
	}
	return result, err
}
