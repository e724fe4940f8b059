package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PlugStatic keeps browser probes for /.well-known/ away from the public file
// server mounted at staticPrefix.
func PlugStatic(staticPrefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		if strings.HasPrefix(path, staticPrefix) && strings.HasPrefix(path, "/.well-known/") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status": "ignored dynamic-static",
			})
		}

		return c.Next()
	}
}
