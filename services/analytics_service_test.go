// services/analytics_service_test.go
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/BotCoder254/streamvibes/database"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowth(t *testing.T) {
	assert.Equal(t, 0.0, Growth(0, 0))
	assert.Equal(t, 100.0, Growth(5, 0))
	assert.Equal(t, 50.0, Growth(150, 100))
	assert.Equal(t, -50.0, Growth(50, 100))
	assert.Equal(t, -100.0, Growth(0, 10))
}

func TestEngagementRate(t *testing.T) {
	assert.Equal(t, 0.0, EngagementRate(3, 2, 0))
	assert.Equal(t, 50.0, EngagementRate(3, 2, 10))
}

func day(d, h int) time.Time {
	return time.Date(2024, 6, d, h, 0, 0, 0, time.UTC)
}

// seedAnalytics creates two videos for u1 and one for u2. Reports run at
// 2024-06-15 12:00 UTC.
func seedAnalytics(t *testing.T) (*AnalyticsService, *database.MemoryEventLog) {
	t.Helper()
	e := newTestEnv(t)
	ctx := context.Background()

	e.clock.Set(day(10, 12))
	e.readyVideo(t, "a", "u1", 100)
	e.clock.Set(day(12, 12))
	e.readyVideo(t, "b", "u1", 60)
	e.readyVideo(t, "c", "u2", 60)

	_, err := e.repo.Update(ctx, "a", func(v *models.Video) error {
		v.Views = 5
		v.ViewsHistory = []models.ViewEvent{
			{Timestamp: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
			{Timestamp: time.Date(2024, 6, 8, 23, 59, 0, 0, time.UTC)},
			{Timestamp: day(9, 0)},
			{Timestamp: day(15, 10)},
			{Timestamp: day(15, 11)},
		}
		v.Likes = []string{"x", "y"}
		v.Dislikes = []string{"z"}
		v.Comments.Add("c1", "x", "nice", day(14, 8))
		v.TotalWatchTime = 75
		v.WatchTimeDistribution = [models.WatchBuckets]int64{0, 1, 1, 0}
		return nil
	})
	require.NoError(t, err)
	_, err = e.repo.Update(ctx, "c", func(v *models.Video) error {
		v.Views = 1000
		return nil
	})
	require.NoError(t, err)

	events := database.NewMemoryEventLog()
	for _, ev := range []models.EngagementEvent{
		{VideoID: "a", Kind: models.EventWatch, Percentage: 50, Timestamp: day(14, 9)},
		{VideoID: "a", Kind: models.EventWatch, Percentage: 25, Timestamp: day(5, 9)},
		{VideoID: "a", Kind: models.EventView, Timestamp: day(14, 9)},
		{VideoID: "c", Kind: models.EventWatch, Percentage: 100, Timestamp: day(14, 9)},
	} {
		require.NoError(t, events.Append(ctx, ev))
	}

	svc := NewAnalyticsService(e.repo, events)
	svc.now = func() time.Time { return day(15, 12) }
	return svc, events
}

func TestReportForUploader(t *testing.T) {
	svc, _ := seedAnalytics(t)

	r, err := svc.Report(context.Background(), models.AnalyticsScope{UploaderID: "u1", Range: 7})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-09", r.From)
	assert.Equal(t, "2024-06-15", r.To)
	require.Len(t, r.ViewsSeries, 7)
	assert.Equal(t, models.DailyPoint{Date: "2024-06-09", Views: 1}, r.ViewsSeries[0])
	assert.Equal(t, models.DailyPoint{Date: "2024-06-15", Views: 2}, r.ViewsSeries[6])
	assert.Zero(t, r.ViewsSeries[3].Views)

	assert.Equal(t, int64(3), r.PeriodViews)
	assert.Equal(t, int64(1), r.PreviousPeriodViews)
	assert.Equal(t, 200.0, r.ViewsGrowth)

	assert.Equal(t, 50.0, r.PeriodWatchTime)
	assert.Equal(t, 25.0, r.PreviousPeriodWatchTime)
	assert.Equal(t, 100.0, r.WatchTimeGrowth)

	assert.Equal(t, 2, r.TotalVideos)
	assert.Equal(t, int64(5), r.TotalViews)
	assert.Equal(t, 2, r.TotalLikes)
	assert.Equal(t, 1, r.TotalDislikes)
	assert.Equal(t, 1, r.TotalComments)
	assert.Equal(t, 75.0, r.TotalWatchTime)
	assert.Equal(t, [models.WatchBuckets]int64{0, 1, 1, 0}, r.WatchTimeDistribution)
	assert.Equal(t, 60.0, r.EngagementRate)

	require.Len(t, r.TopVideos, 2)
	assert.Equal(t, "a", r.TopVideos[0].ID)
	assert.Equal(t, 60.0, r.TopVideos[0].EngagementRate)
	assert.Equal(t, "b", r.TopVideos[1].ID)
}

func TestReportForVideoIDsAndDefaults(t *testing.T) {
	svc, _ := seedAnalytics(t)

	r, err := svc.Report(context.Background(), models.AnalyticsScope{VideoIDs: []string{"c"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalyticsRange, r.Range)
	assert.Len(t, r.ViewsSeries, DefaultAnalyticsRange)
	assert.Equal(t, int64(1000), r.TotalViews)
	assert.Equal(t, 60.0, r.PeriodWatchTime)
	assert.Zero(t, r.PeriodViews)
	assert.Zero(t, r.ViewsGrowth)
}

func TestReportRejectsBadScope(t *testing.T) {
	svc, _ := seedAnalytics(t)
	ctx := context.Background()

	_, err := svc.Report(ctx, models.AnalyticsScope{})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.Report(ctx, models.AnalyticsScope{UploaderID: "u1", Range: MaxAnalyticsRange + 1})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.Report(ctx, models.AnalyticsScope{UploaderID: "u1", Range: -1})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReportWithoutEventLog(t *testing.T) {
	e := newTestEnv(t)
	e.readyVideo(t, "a", "u1", 10)
	svc := NewAnalyticsService(e.repo, nil)

	r, err := svc.Report(context.Background(), models.AnalyticsScope{UploaderID: "u1", Range: 1})
	require.NoError(t, err)
	assert.Zero(t, r.PeriodWatchTime)
	assert.Zero(t, r.WatchTimeGrowth)
	assert.Len(t, r.ViewsSeries, 1)
}

func TestExportCSV(t *testing.T) {
	svc, _ := seedAnalytics(t)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), models.AnalyticsScope{UploaderID: "u1"}, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Title", "Views", "Likes", "Comments", "Watch Time (seconds)", "Created At"}, rows[0])
	assert.Equal(t, []string{"video b", "0", "0", "0", "0.00", "2024-06-12T12:00:00Z"}, rows[1])
	assert.Equal(t, []string{"video a", "5", "2", "1", "75.00", "2024-06-10T12:00:00Z"}, rows[2])
}
