// handlers/errors.go
package handlers

import (
	"errors"

	"github.com/BotCoder254/streamvibes/models"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// StatusOf maps an error to its HTTP status and client message. Internal
// failures never expose their cause.
func StatusOf(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	switch {
	case errors.Is(err, models.ErrPayloadTooLarge):
		return fiber.StatusRequestEntityTooLarge, models.PublicMessage(err)
	case errors.Is(err, models.ErrUnsupportedMedia):
		return fiber.StatusUnsupportedMediaType, models.PublicMessage(err)
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest, models.PublicMessage(err)
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound, models.PublicMessage(err)
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden, models.PublicMessage(err)
	case errors.Is(err, models.ErrConflict) && !errors.Is(err, models.ErrStorage):
		return fiber.StatusConflict, models.PublicMessage(err)
	}
	return fiber.StatusInternalServerError, "internal server error"
}

// ErrorHandler renders every handler error as {"error": message}.
func ErrorHandler(log *logrus.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := StatusOf(err)
		if code >= fiber.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).Error("request failed")
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
