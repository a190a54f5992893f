// handlers/asset_handlers.go
package handlers

import (
	"context"
	"io"

	"github.com/BotCoder254/streamvibes/storage"
	"github.com/gofiber/fiber/v2"
)

// AssetOpener reads committed assets from a remote backend.
type AssetOpener interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, int64, string, error)
}

// ServeAsset streams /uploads/* from object storage. The local backend is
// served with app.Static instead.
func ServeAsset(store AssetOpener) fiber.Handler {
	return func(c *fiber.Ctx) error {
		locator := storage.LocatorPrefix + "/" + c.Params("*")
		body, size, contentType, err := store.Open(c.Context(), locator)
		if err != nil {
			return err
		}

		if contentType != "" {
			c.Set(fiber.HeaderContentType, contentType)
		}
		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		// fasthttp closes the stream once it is sent
		return c.SendStream(body, int(size))
	}
}
