// handlers/video_handlers.go
package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/BotCoder254/streamvibes/middleware"
	"github.com/BotCoder254/streamvibes/models"
	"github.com/BotCoder254/streamvibes/services"
	"github.com/gofiber/fiber/v2"
)

type updateVideoRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// openUpload opens the first file under key, or returns nil when absent.
func openUpload(form *multipart.Form, key string) (*services.UploadFile, multipart.File, error) {
	files := form.File[key]
	if len(files) == 0 {
		return nil, nil, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, nil, models.Wrap("open upload", models.ErrStorage, err)
	}
	return &services.UploadFile{
		MediaFile: services.MediaFile{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		},
		Body: f,
	}, f, nil
}

func UploadVideo(videoService *services.VideoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "expected multipart form data",
			})
		}

		video, videoFile, err := openUpload(form, "video")
		if err != nil {
			return err
		}
		if video == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "video file is required",
			})
		}
		defer videoFile.Close()

		thumb, thumbFile, err := openUpload(form, "thumbnail")
		if err != nil {
			return err
		}
		if thumbFile != nil {
			defer thumbFile.Close()
		}

		created, err := videoService.UploadVideo(c.Context(), services.UploadRequest{
			UploaderID:  middleware.UserID(c),
			Title:       formValue(form, "title"),
			Description: formValue(form, "description"),
			Category:    formValue(form, "category"),
			Tags:        splitList(formValue(form, "tags")),
			Video:       *video,
			Thumbnail:   thumb,
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "video uploaded, processing started",
			"video":   created,
		})
	}
}

func ListVideos(videoService *services.VideoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		videos, err := videoService.ListVideos(c.Context(), models.VideoFilter{
			UploaderID: c.Query("uploader"),
			Status:     models.Status(c.Query("status")),
			Limit:      c.QueryInt("limit", 20),
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"videos": videos,
			"total":  len(videos),
		})
	}
}

func GetVideo(videoService *services.VideoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		video, err := videoService.GetVideo(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(video)
	}
}

func UpdateVideo(videoService *services.VideoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateVideoRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}

		video, err := videoService.UpdateMetadata(c.Context(), c.Params("id"), middleware.UserID(c), models.VideoPatch{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
		})
		if err != nil {
			return err
		}
		return c.JSON(video)
	}
}

func DeleteVideo(videoService *services.VideoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := videoService.DeleteVideo(c.Context(), c.Params("id"), middleware.UserID(c)); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message": "video deleted",
		})
	}
}
