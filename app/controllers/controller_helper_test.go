package controllers

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekersapp2013/ambrosia/internal/pkg/payments"
	"github.com/seekersapp2013/ambrosia/internal/pkg/streams"
)

func statusFor(t *testing.T, handler fiber.Handler) int {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestMapStreamError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{streams.ErrNotFound, fiber.StatusNotFound},
		{streams.ErrNotAuthorized, fiber.StatusForbidden},
		{streams.ErrInvalidState, fiber.StatusConflict},
		{streams.ErrAccessDenied, fiber.StatusPaymentRequired},
		{streams.ErrAlreadyJoined, fiber.StatusConflict},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		got := statusFor(t, func(c *fiber.Ctx) error {
			return mapStreamError(c, tc.err)
		})
		assert.Equal(t, tc.want, got, "error %v", tc.err)
	}
}

func TestMapPaymentError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{payments.ErrContentNotFound, fiber.StatusNotFound},
		{payments.ErrNotGated, fiber.StatusConflict},
		{payments.ErrPaymentMismatch, fiber.StatusUnprocessableEntity},
		{payments.ErrAlreadyPurchased, fiber.StatusConflict},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		got := statusFor(t, func(c *fiber.Ctx) error {
			return mapPaymentError(c, tc.err)
		})
		assert.Equal(t, tc.want, got, "error %v", tc.err)
	}
}

func TestValidationErrorsMapToBadRequest(t *testing.T) {
	in := streams.CreateStreamInput{}
	err := in.Validate()
	require.Error(t, err)

	got := statusFor(t, func(c *fiber.Ctx) error {
		return mapStreamError(c, err)
	})
	assert.Equal(t, fiber.StatusBadRequest, got)
}

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}
