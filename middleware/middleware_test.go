// middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	app.Post("/", handlers...)
	return app
}

func post(t *testing.T, app *fiber.App, user string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireUser(t *testing.T) {
	app := newApp(RequireUser())
	assert.Equal(t, http.StatusUnauthorized, post(t, app, ""))
	assert.Equal(t, http.StatusUnauthorized, post(t, app, "   "))
	assert.Equal(t, http.StatusOK, post(t, app, "u1"))
}

func TestRateLimitIsPerUser(t *testing.T) {
	app := newApp(RateLimit(config.RateLimitConfig{Max: 2, Expiration: time.Minute}))

	assert.Equal(t, http.StatusOK, post(t, app, "a"))
	assert.Equal(t, http.StatusOK, post(t, app, "a"))
	assert.Equal(t, http.StatusTooManyRequests, post(t, app, "a"))
	assert.Equal(t, http.StatusOK, post(t, app, "b"))
}
