// services/processing_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/storage"
	"github.com/sirupsen/logrus"
)

const (
	thumbnailWidth  = 1280
	thumbnailHeight = 720
)

// ProcessingService turns a staged upload into a canonical MP4 plus a
// thumbnail and commits both to the asset store.
type ProcessingService struct {
	runner  CommandRunner
	store   storage.AssetStore
	ffmpeg  string
	ffprobe string
	log     *logrus.Entry
}

func NewProcessingService(runner CommandRunner, store storage.AssetStore, cfg config.ProcessingConfig, log *logrus.Entry) *ProcessingService {
	return &ProcessingService{
		runner:  runner,
		store:   store,
		ffmpeg:  cfg.FFmpegPath,
		ffprobe: cfg.FFprobePath,
		log:     log,
	}
}

type probeInfo struct {
	Duration float64
	Width    int
	Height   int
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width,omitempty"`
		Height    int    `json:"height,omitempty"`
		Duration  string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Process consumes the job's staged files. On error nothing it produced is
// left behind, in the temp area or the final locations.
func (s *ProcessingService) Process(ctx context.Context, job models.ProcessingJob) (result *models.ProcessingResult, err error) {
	log := s.log.WithFields(logrus.Fields{"video_id": job.VideoID, "job_id": job.JobID})
	defer s.store.Discard(job.SourcePath)
	defer s.store.Discard(job.ThumbnailPath)

	var (
		temps, committed []string
		done             bool
	)
	// Also runs while panicking, so committed assets never outlive a crash.
	defer func() {
		for _, p := range temps {
			s.store.Discard(p)
		}
		if done {
			return
		}
		for _, loc := range committed {
			if rerr := s.store.Remove(context.WithoutCancel(ctx), loc); rerr != nil {
				log.WithError(rerr).Warn("failed to remove asset of failed job")
			}
		}
	}()

	info, err := s.probe(ctx, job.SourcePath)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"duration": info.Duration, "width": info.Width, "height": info.Height}).Debug("probed upload")

	videoTmp, err := s.store.TempFile("mp4")
	if err != nil {
		return nil, err
	}
	temps = append(temps, videoTmp)
	if err = s.transcode(ctx, job.SourcePath, videoTmp); err != nil {
		return nil, err
	}

	// Thumbnails are always re-encoded to <id>.jpg, user images included.
	thumbTmp, err := s.store.TempFile("jpg")
	if err != nil {
		return nil, err
	}
	temps = append(temps, thumbTmp)
	if job.ThumbnailPath != "" {
		err = s.normalizeThumbnail(ctx, job.ThumbnailPath, thumbTmp)
	} else {
		err = s.extractFrame(ctx, job.SourcePath, thumbTmp, info.Duration/2)
	}
	if err != nil {
		return nil, err
	}

	videoLoc, err := s.store.Commit(ctx, videoTmp, storage.KindVideo, job.VideoID, "mp4")
	if err != nil {
		return nil, err
	}
	committed = append(committed, videoLoc)

	thumbLoc, err := s.store.Commit(ctx, thumbTmp, storage.KindThumbnail, job.VideoID, "jpg")
	if err != nil {
		return nil, err
	}
	committed = append(committed, thumbLoc)

	done = true
	return &models.ProcessingResult{
		VideoPath:     videoLoc,
		ThumbnailPath: thumbLoc,
		Duration:      info.Duration,
		Width:         info.Width,
		Height:        info.Height,
	}, nil
}

func (s *ProcessingService) probe(ctx context.Context, path string) (*probeInfo, error) {
	out, err := s.runner.Run(ctx, s.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, models.Wrap("probe", models.ErrProcessing, err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (*probeInfo, error) {
	var data ffprobeOutput
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, models.Wrap("probe", models.ErrProcessing, fmt.Errorf("parse ffprobe output: %w", err))
	}

	info := &probeInfo{}
	hasVideo := false
	var streamDuration string
	for _, st := range data.Streams {
		if st.CodecType == "video" && !hasVideo {
			hasVideo = true
			info.Width, info.Height = st.Width, st.Height
			streamDuration = st.Duration
		}
	}
	if !hasVideo {
		return nil, models.E("probe", models.ErrProcessing, "no video stream found")
	}

	info.Duration = parseSeconds(data.Format.Duration)
	if info.Duration <= 0 {
		info.Duration = parseSeconds(streamDuration)
	}
	if info.Duration <= 0 {
		return nil, models.E("probe", models.ErrProcessing, "could not determine duration")
	}
	return info, nil
}

func parseSeconds(s string) float64 {
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

func (s *ProcessingService) transcode(ctx context.Context, src, dst string) error {
	_, err := s.runner.Run(ctx, s.ffmpeg,
		"-y",
		"-i", src,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-f", "mp4",
		dst,
	)
	if err != nil {
		return models.Wrap("transcode", models.ErrProcessing, err)
	}
	return nil
}

func (s *ProcessingService) extractFrame(ctx context.Context, src, dst string, at float64) error {
	return s.renderThumbnail(ctx, dst, "-ss", strconv.FormatFloat(at, 'f', 3, 64), "-i", src)
}

// normalizeThumbnail scales a user image onto the same 1280x720 JPEG canvas.
func (s *ProcessingService) normalizeThumbnail(ctx context.Context, src, dst string) error {
	return s.renderThumbnail(ctx, dst, "-i", src)
}

func (s *ProcessingService) renderThumbnail(ctx context.Context, dst string, input ...string) error {
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		thumbnailWidth, thumbnailHeight, thumbnailWidth, thumbnailHeight)
	args := append([]string{"-y"}, input...)
	args = append(args,
		"-frames:v", "1",
		"-vf", filter,
		"-q:v", "2",
		dst,
	)
	if _, err := s.runner.Run(ctx, s.ffmpeg, args...); err != nil {
		return models.Wrap("thumbnail", models.ErrProcessing, err)
	}
	return nil
}
