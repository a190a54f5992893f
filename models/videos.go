// models/video.go
package models

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

type Category string

const (
	CategoryEntertainment Category = "Entertainment"
	CategoryEducation     Category = "Education"
	CategorySports        Category = "Sports"
	CategoryTechnology    Category = "Technology"
	CategoryMusic         Category = "Music"
	CategoryGaming        Category = "Gaming"
	CategoryNews          Category = "News"
	CategoryOther         Category = "Other"
)

var Categories = []Category{
	CategoryEntertainment,
	CategoryEducation,
	CategorySports,
	CategoryTechnology,
	CategoryMusic,
	CategoryGaming,
	CategoryNews,
	CategoryOther,
}

// ParseCategory matches case-insensitively and returns the display-cased value.
func ParseCategory(raw string) (Category, error) {
	s := strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", E("parse category", ErrValidation, "unknown category %q", raw)
}

const (
	WatchBuckets = 4
	maxTags      = 20
)

type ViewEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ViewerID  string    `json:"viewer_id,omitempty"`
}

type Video struct {
	ID                    string              `json:"id"`
	Title                 string              `json:"title"`
	Description           string              `json:"description"`
	Category              Category            `json:"category"`
	UploaderID            string              `json:"uploader_id"`
	FileName              string              `json:"file_name"`
	VideoPath             string              `json:"video_path,omitempty"`
	ThumbnailPath         string              `json:"thumbnail_path,omitempty"`
	Duration              float64             `json:"duration"`
	Width                 int                 `json:"width,omitempty"`
	Height                int                 `json:"height,omitempty"`
	Status                Status              `json:"status"` // processing, ready, failed
	ErrorMessage          string              `json:"error_message,omitempty"`
	Views                 int64               `json:"views"`
	ViewsHistory          []ViewEvent         `json:"views_history"`
	Likes                 []string            `json:"likes"`
	Dislikes              []string            `json:"dislikes"`
	WatchTimeDistribution [WatchBuckets]int64 `json:"watch_time_distribution"`
	TotalWatchTime        float64             `json:"total_watch_time"`
	Comments              CommentThread       `json:"comments"`
	Tags                  []string            `json:"tags"`
	Version               int64               `json:"-"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// MarshalJSON hides asset locators unless the video is playable.
func (v Video) MarshalJSON() ([]byte, error) {
	type plain Video
	out := plain(v)
	if out.Status != StatusReady {
		out.VideoPath = ""
		out.ThumbnailPath = ""
	}
	if out.ViewsHistory == nil {
		out.ViewsHistory = []ViewEvent{}
	}
	if out.Likes == nil {
		out.Likes = []string{}
	}
	if out.Dislikes == nil {
		out.Dislikes = []string{}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return json.Marshal(out)
}

func (v *Video) Playable() bool {
	return v.Status == StatusReady && v.VideoPath != "" && v.ThumbnailPath != ""
}

// CommentCount counts top-level comments and their replies.
func (v *Video) CommentCount() int {
	return v.Comments.Len()
}

// WatchTimeSeconds converts the accumulated percentage into seconds watched.
func (v *Video) WatchTimeSeconds() float64 {
	return v.TotalWatchTime * v.Duration / 100
}

// WatchBucket maps a validated percentage in [0,100] onto its quartile.
func WatchBucket(percentage float64) int {
	idx := int(percentage / 25)
	if idx < 0 {
		return 0
	}
	if idx >= WatchBuckets {
		return WatchBuckets - 1
	}
	return idx
}

func (v *Video) Counters(userID string) EngagementCounters {
	return EngagementCounters{
		VideoID:               v.ID,
		Views:                 v.Views,
		Likes:                 len(v.Likes),
		Dislikes:              len(v.Dislikes),
		Comments:              v.CommentCount(),
		WatchTimeDistribution: v.WatchTimeDistribution,
		TotalWatchTime:        v.TotalWatchTime,
		Reaction:              v.ReactionOf(userID),
	}
}

// Clone returns a deep copy so callers never share slices or maps.
func (v *Video) Clone() *Video {
	if v == nil {
		return nil
	}
	out := *v
	out.ViewsHistory = slices.Clone(v.ViewsHistory)
	out.Likes = slices.Clone(v.Likes)
	out.Dislikes = slices.Clone(v.Dislikes)
	out.Tags = slices.Clone(v.Tags)
	out.Comments = v.Comments.Clone()
	return &out
}

// NormalizeTags trims, lower-cases and de-duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

type EngagementCounters struct {
	VideoID               string              `json:"video_id"`
	Views                 int64               `json:"views"`
	Likes                 int                 `json:"likes"`
	Dislikes              int                 `json:"dislikes"`
	Comments              int                 `json:"comments"`
	WatchTimeDistribution [WatchBuckets]int64 `json:"watch_time_distribution"`
	TotalWatchTime        float64             `json:"total_watch_time"`
	Reaction              Reaction            `json:"reaction"`
}

type VideoFilter struct {
	UploaderID    string
	Status        Status
	IDs           []string
	CreatedBefore time.Time
	Limit         int
}

type VideoPatch struct {
	Title       *string
	Description *string
	Tags        []string
}
