// workers/cleanup_worker.go
package workers

import (
	"context"
	"time"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/BotCoder254/streamvibes/metrics"
	"github.com/sirupsen/logrus"
)

// TempSweeper removes temp files older than a threshold.
type TempSweeper interface {
	SweepTemp(olderThan time.Duration) (int, error)
}

// StaleFailer settles records stuck in processing.
type StaleFailer interface {
	FailStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// CleanupWorker sweeps orphaned temp files and stale processing records on
// every tick.
type CleanupWorker struct {
	temp   TempSweeper
	videos StaleFailer
	cfg    config.CleanupConfig
	log    *logrus.Entry
}

func NewCleanupWorker(temp TempSweeper, videos StaleFailer, cfg config.CleanupConfig, log *logrus.Entry) *CleanupWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &CleanupWorker{temp: temp, videos: videos, cfg: cfg, log: log}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.WithField("interval", w.cfg.Interval).Info("cleanup worker started")

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep runs one pass.
func (w *CleanupWorker) Sweep(ctx context.Context) {
	removed, err := w.temp.SweepTemp(w.cfg.TempTTL)
	if err != nil {
		w.log.WithError(err).Warn("temp sweep failed")
	}
	metrics.SweptTotal.WithLabelValues("temp_file").Add(float64(removed))

	failed, err := w.videos.FailStale(ctx, w.cfg.StaleAfter)
	if err != nil {
		w.log.WithError(err).Warn("stale record sweep failed")
	}
	metrics.SweptTotal.WithLabelValues("stale_video").Add(float64(failed))

	if removed > 0 || failed > 0 {
		w.log.WithFields(logrus.Fields{"temp_files": removed, "stale_videos": failed}).Info("cleanup pass finished")
	}
}
