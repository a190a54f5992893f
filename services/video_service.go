// services/video_service.go
package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/BotCoder254/streamvibes/database"
	"github.com/BotCoder254/streamvibes/events"
	"github.com/BotCoder254/streamvibes/metrics"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/queue"
	"github.com/BotCoder254/streamvibes/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type UploadFile struct {
	MediaFile
	Body io.Reader
}

type UploadRequest struct {
	UploaderID  string   `validate:"required"`
	Title       string   `validate:"required,max=100"`
	Description string   `validate:"max=5000"`
	Category    string
	Tags        []string `validate:"dive,max=50"`
	Video       UploadFile
	Thumbnail   *UploadFile
}

type metadataPatch struct {
	Title       *string  `validate:"omitnil,min=1,max=100"`
	Description *string  `validate:"omitnil,max=5000"`
	Tags        []string `validate:"dive,max=50"`
}

// VideoService owns the ingest lifecycle of a video record.
type VideoService struct {
	repo      database.VideoRepository
	store     storage.AssetStore
	queue     queue.Queue
	validator *MediaValidator
	publisher events.Publisher
	log       *logrus.Entry

	now   func() time.Time
	newID func() string
}

func NewVideoService(repo database.VideoRepository, store storage.AssetStore, q queue.Queue, validator *MediaValidator, publisher events.Publisher, log *logrus.Entry) *VideoService {
	return &VideoService{
		repo:      repo,
		store:     store,
		queue:     q,
		validator: validator,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// UploadVideo validates the request, stages its files, creates the record in
// processing and enqueues the job. Nothing staged outlives a failure.
func (s *VideoService) UploadVideo(ctx context.Context, req UploadRequest) (video *models.Video, err error) {
	defer func() {
		switch {
		case err == nil:
			metrics.UploadsTotal.WithLabelValues("accepted").Inc()
		case errors.Is(err, models.ErrValidation):
			metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		default:
			metrics.UploadsTotal.WithLabelValues("error").Inc()
		}
	}()

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := models.ValidateStruct("upload video", req); err != nil {
		return nil, err
	}
	category := models.CategoryOther
	if strings.TrimSpace(req.Category) != "" {
		if category, err = models.ParseCategory(req.Category); err != nil {
			return nil, err
		}
	}
	if req.Video.Body == nil {
		return nil, models.E("upload video", models.ErrValidation, "video file is required")
	}
	videoExt, err := s.validator.Validate(req.Video.MediaFile, MediaVideo)
	if err != nil {
		return nil, err
	}
	var thumbExt string
	if req.Thumbnail != nil {
		if thumbExt, err = s.validator.Validate(req.Thumbnail.MediaFile, MediaThumbnail); err != nil {
			return nil, err
		}
	}

	var staged []string
	defer func() {
		if err != nil {
			for _, p := range staged {
				s.store.Discard(p)
			}
		}
	}()

	sourcePath, _, err := s.store.Stage(ctx, req.Video.Body, videoExt)
	if err != nil {
		return nil, err
	}
	staged = append(staged, sourcePath)
	var thumbPath string
	if req.Thumbnail != nil {
		if thumbPath, _, err = s.store.Stage(ctx, req.Thumbnail.Body, thumbExt); err != nil {
			return nil, err
		}
		staged = append(staged, thumbPath)
	}

	now := s.now()
	video = &models.Video{
		ID:          s.newID(),
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		UploaderID:  req.UploaderID,
		FileName:    req.Video.FileName,
		Status:      models.StatusProcessing,
		Tags:        models.NormalizeTags(req.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.repo.Create(ctx, video); err != nil {
		return nil, err
	}

	job := models.ProcessingJob{
		JobID:         s.newID(),
		VideoID:       video.ID,
		SourcePath:    sourcePath,
		SourceExt:     videoExt,
		ThumbnailPath: thumbPath,
		ThumbnailExt:  thumbExt,
		Attempt:       1,
		CreatedAt:     now,
	}
	if err = s.queue.Enqueue(ctx, job); err != nil {
		s.log.WithError(err).WithField("video_id", video.ID).Error("enqueue failed, marking video failed")
		if _, serr := s.settle(context.WithoutCancel(ctx), video.ID, nil, errors.New("could not schedule processing")); serr != nil {
			s.log.WithError(serr).WithField("video_id", video.ID).Error("could not settle unscheduled video")
		}
		return nil, models.Wrap("upload video", models.ErrStorage, err)
	}

	s.log.WithFields(logrus.Fields{"video_id": video.ID, "job_id": job.JobID, "uploader_id": video.UploaderID}).Info("video accepted for processing")
	return video, nil
}

// Settle moves a record out of processing exactly once. When it loses (the
// record is gone or already settled) the assets of a successful result are
// removed unless the record is ready.
func (s *VideoService) Settle(ctx context.Context, job models.ProcessingJob, result *models.ProcessingResult, procErr error) (*models.Video, error) {
	video, err := s.settle(ctx, job.VideoID, result, procErr)
	if err != nil && result != nil {
		s.discardLost(ctx, job.VideoID, result)
	}
	return video, err
}

func (s *VideoService) settle(ctx context.Context, id string, result *models.ProcessingResult, procErr error) (*models.Video, error) {
	if result == nil && procErr == nil {
		procErr = errors.New("processing produced no result")
	}
	video, err := s.repo.Update(ctx, id, func(v *models.Video) error {
		if v.Status != models.StatusProcessing {
			return models.E("settle", models.ErrConflict, "video %s is already %s", id, v.Status)
		}
		v.UpdatedAt = s.now()
		if procErr != nil {
			v.Status = models.StatusFailed
			v.ErrorMessage = models.PublicMessage(procErr)
			v.VideoPath, v.ThumbnailPath = "", ""
			return nil
		}
		v.Status = models.StatusReady
		v.ErrorMessage = ""
		v.VideoPath = result.VideoPath
		v.ThumbnailPath = result.ThumbnailPath
		v.Duration = result.Duration
		v.Width, v.Height = result.Width, result.Height
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := models.StatusEvent{
		VideoID:    video.ID,
		UploaderID: video.UploaderID,
		Status:     video.Status,
		Error:      video.ErrorMessage,
		Duration:   video.Duration,
		At:         video.UpdatedAt,
	}
	if perr := s.publisher.PublishStatus(ctx, event); perr != nil {
		s.log.WithError(perr).WithField("video_id", video.ID).Warn("status event not published")
	}
	return video, nil
}

func (s *VideoService) discardLost(ctx context.Context, id string, result *models.ProcessingResult) {
	current, err := s.repo.Get(ctx, id)
	if err == nil && current.Status == models.StatusReady {
		return
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.log.WithError(err).WithField("video_id", id).Warn("cannot check record, keeping assets")
		return
	}
	for _, loc := range []string{result.VideoPath, result.ThumbnailPath} {
		if rerr := s.store.Remove(ctx, loc); rerr != nil {
			s.log.WithError(rerr).WithField("locator", loc).Warn("failed to remove orphaned asset")
		}
	}
}

func (s *VideoService) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	return s.repo.Get(ctx, id)
}

// ListVideos returns newest first.
func (s *VideoService) ListVideos(ctx context.Context, filter models.VideoFilter) ([]*models.Video, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Status != "" {
		switch filter.Status {
		case models.StatusProcessing, models.StatusReady, models.StatusFailed:
		default:
			return nil, models.E("list videos", models.ErrValidation, "unknown status %q", filter.Status)
		}
	}
	return s.repo.List(ctx, filter)
}

// UpdateMetadata edits title, description and tags. Only the uploader may.
func (s *VideoService) UpdateMetadata(ctx context.Context, id, actorID string, patch models.VideoPatch) (*models.Video, error) {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		patch.Description = &d
	}
	err := models.ValidateStruct("update video", metadataPatch{Title: patch.Title, Description: patch.Description, Tags: patch.Tags})
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, func(v *models.Video) error {
		if v.UploaderID != actorID {
			return models.E("update video", models.ErrForbidden, "only the uploader can edit this video")
		}
		if patch.Title != nil {
			v.Title = *patch.Title
		}
		if patch.Description != nil {
			v.Description = *patch.Description
		}
		if patch.Tags != nil {
			v.Tags = models.NormalizeTags(patch.Tags)
		}
		v.UpdatedAt = s.now()
		return nil
	})
}

// DeleteVideo removes the record, then its assets. Asset removal failures
// are logged and do not fail the call.
func (s *VideoService) DeleteVideo(ctx context.Context, id, actorID string) error {
	video, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if video.UploaderID != actorID {
		return models.E("delete video", models.ErrForbidden, "only the uploader can delete this video")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, loc := range []string{video.VideoPath, video.ThumbnailPath} {
		if loc == "" {
			continue
		}
		if err := s.store.Remove(ctx, loc); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"video_id": id, "locator": loc}).Warn("asset not removed")
		}
	}
	s.log.WithField("video_id", id).Info("video deleted")
	return nil
}

// FailStale settles every record stuck in processing since before
// now-olderThan as failed.
func (s *VideoService) FailStale(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.repo.List(ctx, models.VideoFilter{
		Status:        models.StatusProcessing,
		CreatedBefore: s.now().Add(-olderThan),
	})
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, v := range stale {
		if _, err := s.settle(ctx, v.ID, nil, errors.New("processing timed out")); err != nil {
			if !errors.Is(err, models.ErrConflict) && !errors.Is(err, models.ErrNotFound) {
				s.log.WithError(err).WithField("video_id", v.ID).Warn("could not fail stale video")
			}
			continue
		}
		failed++
	}
	return failed, nil
}
