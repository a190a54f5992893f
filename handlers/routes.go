// handlers/routes.go
package handlers

import (
	"github.com/BotCoder254/streamvibes/middleware"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/services"
	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Videos     *services.VideoService
	Engagement *services.EngagementService
	Analytics  *services.AnalyticsService
	// UploadLimiter guards POST /api/videos when set.
	UploadLimiter fiber.Handler
}

// Register mounts the API under /api and the health check.
func Register(app *fiber.App, s Services) {
	user := middleware.RequireUser()

	api := app.Group("/api")

	// Video routes
	videos := api.Group("/videos")
	upload := []fiber.Handler{user}
	if s.UploadLimiter != nil {
		upload = append(upload, s.UploadLimiter)
	}
	upload = append(upload, UploadVideo(s.Videos))
	videos.Post("/", upload...)
	videos.Get("/", ListVideos(s.Videos))
	videos.Get("/:id", GetVideo(s.Videos))
	videos.Patch("/:id", user, UpdateVideo(s.Videos))
	videos.Delete("/:id", user, DeleteVideo(s.Videos))

	// Engagement routes
	videos.Post("/:id/like", user, React(s.Engagement, models.VoteLike))
	videos.Post("/:id/dislike", user, React(s.Engagement, models.VoteDislike))
	videos.Post("/:id/view", RecordView(s.Engagement))
	videos.Post("/:id/watch-time", RecordWatchTime(s.Engagement))

	videos.Get("/:id/comments", ListComments(s.Videos))
	videos.Post("/:id/comments", user, AddComment(s.Engagement))
	videos.Patch("/:id/comments/:commentId", user, EditComment(s.Engagement))
	videos.Delete("/:id/comments/:commentId", user, DeleteComment(s.Engagement))
	videos.Post("/:id/comments/:commentId/like", user, LikeComment(s.Engagement))
	videos.Post("/:id/comments/:commentId/replies", user, AddComment(s.Engagement))
	videos.Patch("/:id/comments/:commentId/replies/:replyId", user, EditComment(s.Engagement))
	videos.Delete("/:id/comments/:commentId/replies/:replyId", user, DeleteComment(s.Engagement))
	videos.Post("/:id/comments/:commentId/replies/:replyId/like", user, LikeComment(s.Engagement))

	// Analytics routes
	analytics := api.Group("/analytics")
	analytics.Get("/", GetAnalytics(s.Analytics))
	analytics.Get("/export", ExportAnalytics(s.Analytics))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
