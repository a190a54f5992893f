// services/analytics_service.go
package services

import (
	"cmp"
	"context"
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/BotCoder254/streamvibes/database"
	"github.com/BotCoder254/streamvibes/models"
)

const (
	DefaultAnalyticsRange = 30
	MaxAnalyticsRange     = 365
	topVideosLimit        = 5
	dayLayout             = "2006-01-02"
)

var csvHeader = []string{"Title", "Views", "Likes", "Comments", "Watch Time (seconds)", "Created At"}

// AnalyticsService derives reports from video records and, when configured,
// the engagement event log.
type AnalyticsService struct {
	repo   database.VideoRepository
	events database.EventLog
	now    func() time.Time
}

// NewAnalyticsService accepts a nil event log; period watch time is then 0.
func NewAnalyticsService(repo database.VideoRepository, events database.EventLog) *AnalyticsService {
	return &AnalyticsService{repo: repo, events: events, now: time.Now}
}

// Growth is the percentage change from prev to cur. A zero baseline yields
// 100 when there is any current activity and 0 otherwise.
func Growth(cur, prev float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return 100
	}
	return (cur - prev) / prev * 100
}

// EngagementRate is (likes + comments) per view, in percent.
func EngagementRate(likes, comments int, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(likes+comments) / float64(views) * 100
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

type window struct {
	from, to, prevFrom time.Time
}

func (w window) current(t time.Time) bool  { return !t.Before(w.from) && t.Before(w.to) }
func (w window) previous(t time.Time) bool { return !t.Before(w.prevFrom) && t.Before(w.from) }

func (s *AnalyticsService) resolve(ctx context.Context, scope models.AnalyticsScope) ([]*models.Video, int, error) {
	days := scope.Range
	if days == 0 {
		days = DefaultAnalyticsRange
	}
	if days < 1 || days > MaxAnalyticsRange {
		return nil, 0, models.E("analytics", models.ErrValidation, "range must be between 1 and %d days", MaxAnalyticsRange)
	}
	if scope.UploaderID == "" && len(scope.VideoIDs) == 0 {
		return nil, 0, models.E("analytics", models.ErrValidation, "an uploader or at least one video id is required")
	}
	videos, err := s.repo.List(ctx, models.VideoFilter{UploaderID: scope.UploaderID, IDs: scope.VideoIDs})
	if err != nil {
		return nil, 0, err
	}
	return videos, days, nil
}

// Report covers the range UTC days ending today, and the same number of days
// before that for growth.
func (s *AnalyticsService) Report(ctx context.Context, scope models.AnalyticsScope) (*models.AnalyticsReport, error) {
	videos, days, err := s.resolve(ctx, scope)
	if err != nil {
		return nil, err
	}

	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	w := window{
		from:     today.AddDate(0, 0, -(days - 1)),
		to:       today.AddDate(0, 0, 1),
		prevFrom: today.AddDate(0, 0, -(2*days - 1)),
	}

	report := &models.AnalyticsReport{
		Range:       days,
		From:        w.from.Format(dayLayout),
		To:          today.Format(dayLayout),
		ViewsSeries: make([]models.DailyPoint, days),
		TotalVideos: len(videos),
		TopVideos:   []models.VideoSummary{},
	}
	for i := range report.ViewsSeries {
		report.ViewsSeries[i].Date = w.from.AddDate(0, 0, i).Format(dayLayout)
	}

	summaries := make([]models.VideoSummary, 0, len(videos))
	for _, v := range videos {
		for _, e := range v.ViewsHistory {
			ts := e.Timestamp.UTC()
			switch {
			case w.current(ts):
				idx := int(ts.Sub(w.from) / (24 * time.Hour))
				report.ViewsSeries[idx].Views++
				report.PeriodViews++
			case w.previous(ts):
				report.PreviousPeriodViews++
			}
		}

		comments := v.CommentCount()
		report.TotalViews += v.Views
		report.TotalLikes += len(v.Likes)
		report.TotalDislikes += len(v.Dislikes)
		report.TotalComments += comments
		report.TotalWatchTime += v.WatchTimeSeconds()
		for i, n := range v.WatchTimeDistribution {
			report.WatchTimeDistribution[i] += n
		}
		summaries = append(summaries, summarize(v))
	}

	if s.events != nil && len(videos) > 0 {
		cur, prev, err := s.watchSeconds(ctx, videos, w)
		if err != nil {
			return nil, err
		}
		report.PeriodWatchTime, report.PreviousPeriodWatchTime = round2(cur), round2(prev)
	}

	report.TotalWatchTime = round2(report.TotalWatchTime)
	report.ViewsGrowth = round2(Growth(float64(report.PeriodViews), float64(report.PreviousPeriodViews)))
	report.WatchTimeGrowth = round2(Growth(report.PeriodWatchTime, report.PreviousPeriodWatchTime))
	report.EngagementRate = round2(EngagementRate(report.TotalLikes, report.TotalComments, report.TotalViews))

	slices.SortStableFunc(summaries, func(a, b models.VideoSummary) int {
		if c := cmp.Compare(b.Views, a.Views); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(summaries) > topVideosLimit {
		summaries = summaries[:topVideosLimit]
	}
	report.TopVideos = append(report.TopVideos, summaries...)
	return report, nil
}

func (s *AnalyticsService) watchSeconds(ctx context.Context, videos []*models.Video, w window) (float64, float64, error) {
	ids := make([]string, 0, len(videos))
	durations := make(map[string]float64, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
		durations[v.ID] = v.Duration
	}
	events, err := s.events.Events(ctx, ids, w.prevFrom, w.to)
	if err != nil {
		return 0, 0, err
	}
	var cur, prev float64
	for _, e := range events {
		if e.Kind != models.EventWatch {
			continue
		}
		secs := e.Percentage * durations[e.VideoID] / 100
		switch ts := e.Timestamp.UTC(); {
		case w.current(ts):
			cur += secs
		case w.previous(ts):
			prev += secs
		}
	}
	return cur, prev, nil
}

func summarize(v *models.Video) models.VideoSummary {
	comments := v.CommentCount()
	return models.VideoSummary{
		ID:             v.ID,
		Title:          v.Title,
		Views:          v.Views,
		Likes:          len(v.Likes),
		Dislikes:       len(v.Dislikes),
		Comments:       comments,
		WatchTime:      round2(v.WatchTimeSeconds()),
		EngagementRate: round2(EngagementRate(len(v.Likes), comments, v.Views)),
		CreatedAt:      v.CreatedAt,
	}
}

// ExportCSV writes one row per video in scope, newest first.
func (s *AnalyticsService) ExportCSV(ctx context.Context, scope models.AnalyticsScope, out io.Writer) error {
	videos, _, err := s.resolve(ctx, scope)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, v := range videos {
		row := []string{
			v.Title,
			strconv.FormatInt(v.Views, 10),
			strconv.Itoa(len(v.Likes)),
			strconv.Itoa(v.CommentCount()),
			strconv.FormatFloat(round2(v.WatchTimeSeconds()), 'f', 2, 64),
			v.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
