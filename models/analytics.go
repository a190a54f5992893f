// models/analytics.go
package models

import "time"

type EngagementKind string

const (
	EventView  EngagementKind = "view"
	EventWatch EngagementKind = "watch"
)

// EngagementEvent is one timestamped view or watch-time report.
type EngagementEvent struct {
	EventID    string         `json:"event_id"`
	VideoID    string         `json:"video_id"`
	Kind       EngagementKind `json:"kind"`
	ViewerID   string         `json:"viewer_id,omitempty"`
	Percentage float64        `json:"percentage,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

type AnalyticsScope struct {
	UploaderID string
	VideoIDs   []string
	Range      int
}

type DailyPoint struct {
	Date  string `json:"date"`
	Views int64  `json:"views"`
}

type VideoSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Views          int64     `json:"views"`
	Likes          int       `json:"likes"`
	Dislikes       int       `json:"dislikes"`
	Comments       int       `json:"comments"`
	WatchTime      float64   `json:"watch_time"`
	EngagementRate float64   `json:"engagement_rate"`
	CreatedAt      time.Time `json:"created_at"`
}

type AnalyticsReport struct {
	Range                   int                 `json:"range"`
	From                    string              `json:"from"`
	To                      string              `json:"to"`
	ViewsSeries             []DailyPoint        `json:"views_series"`
	PeriodViews             int64               `json:"period_views"`
	PreviousPeriodViews     int64               `json:"previous_period_views"`
	ViewsGrowth             float64             `json:"views_growth"`
	PeriodWatchTime         float64             `json:"period_watch_time"`
	PreviousPeriodWatchTime float64             `json:"previous_period_watch_time"`
	WatchTimeGrowth         float64             `json:"watch_time_growth"`
	TotalVideos             int                 `json:"total_videos"`
	TotalViews              int64               `json:"total_views"`
	TotalLikes              int                 `json:"total_likes"`
	TotalDislikes           int                 `json:"total_dislikes"`
	TotalComments           int                 `json:"total_comments"`
	TotalWatchTime          float64             `json:"total_watch_time"`
	WatchTimeDistribution   [WatchBuckets]int64 `json:"watch_time_distribution"`
	EngagementRate          float64             `json:"engagement_rate"`
	TopVideos               []VideoSummary      `json:"top_videos"`
}
