// services/engagement_service.go
package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/BotCoder254/streamvibes/database"
	"github.com/BotCoder254/streamvibes/metrics"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CommentRef addresses a comment, or a reply when ParentID is set.
type CommentRef struct {
	ParentID string
	ID       string
}

// CommentResult is returned by comment mutations. Only the fields relevant
// to the operation are set.
type CommentResult struct {
	Comment  *models.Comment           `json:"comment,omitempty"`
	Reply    *models.Reply             `json:"reply,omitempty"`
	Removed  int                       `json:"removed,omitempty"`
	Liked    *bool                     `json:"liked,omitempty"`
	Likes    *int                      `json:"likes,omitempty"`
	Counters models.EngagementCounters `json:"counters"`
}

// EngagementService applies per-user engagement to ready videos. Every
// mutation is one atomic repository update.
type EngagementService struct {
	repo   database.VideoRepository
	events database.EventLog
	log    *logrus.Entry

	now   func() time.Time
	newID func() string
}

// NewEngagementService accepts a nil event log.
func NewEngagementService(repo database.VideoRepository, events database.EventLog, log *logrus.Entry) *EngagementService {
	return &EngagementService{
		repo:   repo,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (s *EngagementService) mutate(ctx context.Context, op, videoID string, fn func(v *models.Video) error) (*models.Video, error) {
	video, err := s.repo.Update(ctx, videoID, func(v *models.Video) error {
		if v.Status != models.StatusReady {
			return models.E(op, models.ErrValidation, "video is not ready")
		}
		return fn(v)
	})
	if err != nil {
		return nil, err
	}
	metrics.EngagementTotal.WithLabelValues(op).Inc()
	return video, nil
}

func requireUser(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return models.E(op, models.ErrValidation, "a user id is required")
	}
	return nil
}

// React applies a like or dislike vote through the reaction state machine.
func (s *EngagementService) React(ctx context.Context, videoID, userID string, vote models.Vote) (models.EngagementCounters, error) {
	if err := requireUser("react", userID); err != nil {
		return models.EngagementCounters{}, err
	}
	if vote != models.VoteLike && vote != models.VoteDislike {
		return models.EngagementCounters{}, models.E("react", models.ErrValidation, "unknown vote %q", vote)
	}
	video, err := s.mutate(ctx, "react", videoID, func(v *models.Video) error {
		v.React(userID, vote)
		return nil
	})
	if err != nil {
		return models.EngagementCounters{}, err
	}
	return video.Counters(userID), nil
}

// RecordView counts one view. Viewers are optional and views are not de-duplicated.
func (s *EngagementService) RecordView(ctx context.Context, videoID, viewerID string) (models.EngagementCounters, error) {
	now := s.now()
	video, err := s.mutate(ctx, "view", videoID, func(v *models.Video) error {
		v.Views++
		v.ViewsHistory = append(v.ViewsHistory, models.ViewEvent{Timestamp: now, ViewerID: viewerID})
		return nil
	})
	if err != nil {
		return models.EngagementCounters{}, err
	}
	s.appendEvent(ctx, models.EngagementEvent{VideoID: videoID, Kind: models.EventView, ViewerID: viewerID, Timestamp: now})
	return video.Counters(viewerID), nil
}

// RecordWatchTime adds a watched percentage to its quartile bucket and the total.
func (s *EngagementService) RecordWatchTime(ctx context.Context, videoID, viewerID string, percentage float64) (models.EngagementCounters, error) {
	if math.IsNaN(percentage) || math.IsInf(percentage, 0) || percentage < 0 || percentage > 100 {
		return models.EngagementCounters{}, models.E("watch time", models.ErrValidation, "percentage must be between 0 and 100")
	}
	now := s.now()
	video, err := s.mutate(ctx, "watch", videoID, func(v *models.Video) error {
		v.WatchTimeDistribution[models.WatchBucket(percentage)]++
		v.TotalWatchTime += percentage
		return nil
	})
	if err != nil {
		return models.EngagementCounters{}, err
	}
	s.appendEvent(ctx, models.EngagementEvent{VideoID: videoID, Kind: models.EventWatch, ViewerID: viewerID, Percentage: percentage, Timestamp: now})
	return video.Counters(viewerID), nil
}

// AddComment adds a top-level comment, or a reply when parentID is set.
func (s *EngagementService) AddComment(ctx context.Context, videoID, authorID, text, parentID string) (*CommentResult, error) {
	if err := requireUser("comment", authorID); err != nil {
		return nil, err
	}
	text, err := models.CleanCommentText(text)
	if err != nil {
		return nil, err
	}
	id, now := s.newID(), s.now()
	res := &CommentResult{}
	video, err := s.mutate(ctx, "comment", videoID, func(v *models.Video) error {
		if parentID == "" {
			c := v.Comments.Add(id, authorID, text, now)
			res.Comment = c
			return nil
		}
		r, err := v.Comments.AddReply(parentID, id, authorID, text, now)
		if err != nil {
			return err
		}
		res.Reply = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	// point at the committed copy, not the one mutate saw
	if res.Comment != nil {
		res.Comment = video.Comments.Comments[id]
	}
	if res.Reply != nil {
		res.Reply = video.Comments.Replies[id]
	}
	res.Counters = video.Counters(authorID)
	return res, nil
}

func (s *EngagementService) EditComment(ctx context.Context, videoID string, ref CommentRef, actorID, text string) (*CommentResult, error) {
	if err := requireUser("edit comment", actorID); err != nil {
		return nil, err
	}
	text, err := models.CleanCommentText(text)
	if err != nil {
		return nil, err
	}
	now := s.now()
	video, err := s.mutate(ctx, "edit_comment", videoID, func(v *models.Video) error {
		if err := checkRef(&v.Comments, ref); err != nil {
			return err
		}
		return v.Comments.Edit(ref.ID, actorID, text, now)
	})
	if err != nil {
		return nil, err
	}
	res := &CommentResult{Counters: video.Counters(actorID)}
	if ref.ParentID == "" {
		res.Comment = video.Comments.Comments[ref.ID]
	} else {
		res.Reply = video.Comments.Replies[ref.ID]
	}
	return res, nil
}

// DeleteComment removes a comment with its replies, or a single reply. The
// author and the video's uploader may delete.
func (s *EngagementService) DeleteComment(ctx context.Context, videoID string, ref CommentRef, actorID string) (*CommentResult, error) {
	if err := requireUser("delete comment", actorID); err != nil {
		return nil, err
	}
	removed := 0
	video, err := s.mutate(ctx, "delete_comment", videoID, func(v *models.Video) error {
		if err := checkRef(&v.Comments, ref); err != nil {
			return err
		}
		n, err := v.Comments.Delete(ref.ID, actorID, v.UploaderID)
		removed = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CommentResult{Removed: removed, Counters: video.Counters(actorID)}, nil
}

// LikeComment toggles the user's like on a comment or reply.
func (s *EngagementService) LikeComment(ctx context.Context, videoID string, ref CommentRef, userID string) (*CommentResult, error) {
	if err := requireUser("like comment", userID); err != nil {
		return nil, err
	}
	var (
		liked bool
		count int
	)
	video, err := s.mutate(ctx, "like_comment", videoID, func(v *models.Video) error {
		if err := checkRef(&v.Comments, ref); err != nil {
			return err
		}
		var err error
		liked, count, err = v.Comments.ToggleLike(ref.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CommentResult{Liked: &liked, Likes: &count, Counters: video.Counters(userID)}, nil
}

// Counters reads the current engagement state for a user.
func (s *EngagementService) Counters(ctx context.Context, videoID, userID string) (models.EngagementCounters, error) {
	video, err := s.repo.Get(ctx, videoID)
	if err != nil {
		return models.EngagementCounters{}, err
	}
	return video.Counters(userID), nil
}

// checkRef makes sure a reply route addresses a reply of the named comment
// and a comment route addresses a top-level comment.
func checkRef(t *models.CommentThread, ref CommentRef) error {
	parent, ok := t.ParentOf(ref.ID)
	if !ok || parent != ref.ParentID {
		return models.E("comment", models.ErrNotFound, "comment %s not found", ref.ID)
	}
	return nil
}

func (s *EngagementService) appendEvent(ctx context.Context, e models.EngagementEvent) {
	if s.events == nil {
		return
	}
	e.EventID = s.newID()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Append(ctx, e); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"video_id": e.VideoID, "kind": e.Kind}).Warn("engagement event not recorded")
	}
}
