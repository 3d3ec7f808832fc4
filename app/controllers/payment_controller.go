package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/seekersapp2013/ambrosia/internal/pkg/entitlements"
	"github.com/seekersapp2013/ambrosia/internal/pkg/payments"
	"github.com/seekersapp2013/ambrosia/internal/pkg/usercontext"
)

var (
	paymentService *payments.Service
	accessEval     *entitlements.Evaluator
)

// InitPaymentController wires the payment handlers to their collaborators.
func InitPaymentController(service *payments.Service, eval *entitlements.Evaluator) {
	paymentService = service
	accessEval = eval
}

// HandlePurchaseContent records a payment for gated content. Exactly one
// purchase per payer and content; replays are rejected.
func HandlePurchaseContent(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var in payments.PurchaseInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	payment, err := paymentService.Purchase(c.Context(), userCtx.UserID, in)
	if err != nil {
		return mapPaymentError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

// HandleCheckAccess reports whether the caller may consume a piece of
// content: authors and ungated content always pass, everyone else needs a
// matching payment.
func HandleCheckAccess(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	contentType := c.Query("content_type")
	contentID, err := strconv.ParseUint(c.Query("content_id"), 10, 64)
	if err != nil || contentID == 0 || contentType == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "content_type and content_id are required")
	}

	hasAccess, err := accessEval.HasAccess(userCtx.UserID, contentType, uint(contentID))
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Access check failed")
	}
	return c.JSON(fiber.Map{"has_access": hasAccess})
}

// HandleListPurchases returns the caller's payment history.
func HandleListPurchases(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	list, err := paymentService.ListPurchases(userCtx.UserID)
	if err != nil {
		return mapPaymentError(c, err)
	}
	return c.JSON(fiber.Map{"purchases": list, "count": len(list)})
}

// HandleCreatorEarnings summarizes what the caller has earned from gated
// content, grouped by token.
func HandleCreatorEarnings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	earnings, err := paymentService.CreatorEarnings(userCtx.UserID)
	if err != nil {
		return mapPaymentError(c, err)
	}
	return c.JSON(earnings)
}
