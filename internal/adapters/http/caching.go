package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses by endpoint.
// Live-feed endpoints are marked no-store: a cached bus position is a wrong
// bus position. Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != "GET" {
			return err
		}
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		case path == "/v1/buses/live":
			ttl = "no-store"

		case strings.HasSuffix(path, "/map"):
			ttl = "no-store" // composed state embeds live markers

		case strings.HasSuffix(path, "/eta"):
			ttl = "public, max-age=10" // matches the ETA refresh interval

		case path == "/v1/feeds/status":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/routes/"):
			ttl = "public, max-age=600" // single route

		case strings.HasPrefix(path, "/v1/routes"):
			ttl = "public, max-age=300" // search results

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}
		return err
	}
}
