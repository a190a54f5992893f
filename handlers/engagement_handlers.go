// handlers/engagement_handlers.go
package handlers

import (
	"github.com/BotCoder254/streamvibes/middleware"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/services"
	"github.com/gofiber/fiber/v2"
)

type watchTimeRequest struct {
	Percentage *float64 `json:"percentage"`
}

type commentRequest struct {
	Text     string `json:"text"`
	ParentID string `json:"parentId"`
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid request body",
	})
}

// commentRef reads :commentId and, on reply routes, :replyId.
func commentRef(c *fiber.Ctx) services.CommentRef {
	if reply := c.Params("replyId"); reply != "" {
		return services.CommentRef{ParentID: c.Params("commentId"), ID: reply}
	}
	return services.CommentRef{ID: c.Params("commentId")}
}

// React serves both the like and the dislike route.
func React(engagement *services.EngagementService, vote models.Vote) fiber.Handler {
	return func(c *fiber.Ctx) error {
		counters, err := engagement.React(c.Context(), c.Params("id"), middleware.UserID(c), vote)
		if err != nil {
			return err
		}
		return c.JSON(counters)
	}
}

func RecordView(engagement *services.EngagementService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		counters, err := engagement.RecordView(c.Context(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(counters)
	}
}

func RecordWatchTime(engagement *services.EngagementService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req watchTimeRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		if req.Percentage == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "percentage is required",
			})
		}

		counters, err := engagement.RecordWatchTime(c.Context(), c.Params("id"), middleware.UserID(c), *req.Percentage)
		if err != nil {
			return err
		}
		return c.JSON(counters)
	}
}

func ListComments(videoService *services.VideoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		video, err := videoService.GetVideo(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		comments := video.Comments.View()
		return c.JSON(fiber.Map{
			"comments": comments,
			"total":    video.CommentCount(),
		})
	}
}

// AddComment creates a top-level comment, or a reply when parentId is given
// in the body or the route names a comment.
func AddComment(engagement *services.EngagementService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req commentRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		if parent := c.Params("commentId"); parent != "" {
			req.ParentID = parent
		}

		res, err := engagement.AddComment(c.Context(), c.Params("id"), middleware.UserID(c), req.Text, req.ParentID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func EditComment(engagement *services.EngagementService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req commentRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}

		res, err := engagement.EditComment(c.Context(), c.Params("id"), commentRef(c), middleware.UserID(c), req.Text)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func DeleteComment(engagement *services.EngagementService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := engagement.DeleteComment(c.Context(), c.Params("id"), commentRef(c), middleware.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func LikeComment(engagement *services.EngagementService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := engagement.LikeComment(c.Context(), c.Params("id"), commentRef(c), middleware.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}
