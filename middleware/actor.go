// middleware/actor.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserHeader carries the acting user's id. Authentication happens upstream.
const UserHeader = "X-User-ID"

// UserID returns the acting user, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(UserHeader))
}

// RequireUser rejects requests without an acting user.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": UserHeader + " header is required",
			})
		}
		return c.Next()
	}
}
