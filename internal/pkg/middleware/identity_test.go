package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekersapp2013/ambrosia/internal/pkg/usercontext"
)

func newIdentityApp() *fiber.App {
	app := fiber.New()
	app.Use(IdentityMiddleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/protected", RequireUser, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestIdentityFromHeaders(t *testing.T) {
	app := newIdentityApp()

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-User-ID", "42")
	req.Header.Set("X-User-Name", "alice")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAnonymousWithoutHeader(t *testing.T) {
	app := newIdentityApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestInvalidIdentityHeaderRejected(t *testing.T) {
	app := newIdentityApp()

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-User-ID", "not-a-number")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedWithIdentity(t *testing.T) {
	app := newIdentityApp()

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-User-ID", "7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
