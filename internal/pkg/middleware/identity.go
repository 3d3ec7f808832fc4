package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/seekersapp2013/ambrosia/internal/pkg/usercontext"
)

// IdentityMiddleware reads the caller identity forwarded by the upstream
// auth gateway. The gateway terminates auth; the headers are trusted here.
func IdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get("X-User-ID"))
		if raw == "" {
			usercontext.SetUserContext(c, usercontext.UserContext{IsLoggedIn: false})
			return c.Next()
		}

		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "invalid identity header",
			})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     uint(id),
			Username:   strings.TrimSpace(c.Get("X-User-Name")),
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

// RequireUser ensures an authenticated caller and returns JSON 401 otherwise.
func RequireUser(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
