// handlers/analytics_handlers.go
package handlers

import (
	"bytes"
	"strings"

	"github.com/BotCoder254/streamvibes/middleware"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/services"
	"github.com/gofiber/fiber/v2"
)

// analyticsScope reads uploader, videoId (repeatable or comma separated) and
// range. Without either selector the acting user's own videos are used.
func analyticsScope(c *fiber.Ctx) models.AnalyticsScope {
	scope := models.AnalyticsScope{
		UploaderID: strings.TrimSpace(c.Query("uploader")),
		Range:      c.QueryInt("range", services.DefaultAnalyticsRange),
	}
	for _, raw := range c.Context().QueryArgs().PeekMulti("videoId") {
		for _, id := range strings.Split(string(raw), ",") {
			if id = strings.TrimSpace(id); id != "" {
				scope.VideoIDs = append(scope.VideoIDs, id)
			}
		}
	}
	if scope.UploaderID == "" && len(scope.VideoIDs) == 0 {
		scope.UploaderID = middleware.UserID(c)
	}
	return scope
}

func GetAnalytics(analytics *services.AnalyticsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := analytics.Report(c.Context(), analyticsScope(c))
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}

func ExportAnalytics(analytics *services.AnalyticsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := analytics.ExportCSV(c.Context(), analyticsScope(c), &buf); err != nil {
			return err
		}

		c.Attachment("video-analytics.csv")
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(buf.Bytes())
	}
}
