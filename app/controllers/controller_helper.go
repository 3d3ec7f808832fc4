package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/seekersapp2013/ambrosia/internal/pkg/payments"
	"github.com/seekersapp2013/ambrosia/internal/pkg/streams"
)

func jsonError(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": kind, "message": message})
}

// parseIDParam reads a positive uint route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// mapStreamError translates registry errors into HTTP responses.
func mapStreamError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, streams.ErrNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Stream not found")
	case errors.Is(err, streams.ErrNotAuthorized):
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Only the stream author may do this")
	case errors.Is(err, streams.ErrInvalidState):
		return jsonError(c, fiber.StatusConflict, "invalid_state", "Action not allowed in the stream's current state")
	case errors.Is(err, streams.ErrAccessDenied):
		return jsonError(c, fiber.StatusPaymentRequired, "payment_required", "Purchase access to join this stream")
	case errors.Is(err, streams.ErrAlreadyJoined):
		return jsonError(c, fiber.StatusConflict, "already_joined", "You already joined this stream")
	default:
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Something went wrong")
	}
}

// mapPaymentError translates ledger errors into HTTP responses.
func mapPaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payments.ErrContentNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Content not found")
	case errors.Is(err, payments.ErrNotGated):
		return jsonError(c, fiber.StatusConflict, "not_gated", "Content is not gated")
	case errors.Is(err, payments.ErrPaymentMismatch):
		return jsonError(c, fiber.StatusUnprocessableEntity, "payment_mismatch", "Payment does not match the current price")
	case errors.Is(err, payments.ErrAlreadyPurchased):
		return jsonError(c, fiber.StatusConflict, "already_purchased", "Content already purchased")
	default:
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Something went wrong")
	}
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
