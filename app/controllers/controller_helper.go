package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/checkout"
	"github.com/ManuelReschke/UniClips/internal/pkg/connect"
	"github.com/ManuelReschke/UniClips/internal/pkg/earnings"
	"github.com/ManuelReschke/UniClips/internal/pkg/entitlements"
	"github.com/ManuelReschke/UniClips/internal/pkg/payout"
	"github.com/ManuelReschke/UniClips/internal/pkg/settlement"
)

// requestTimeout bounds processor and database work of a single request.
const requestTimeout = 20 * time.Second

var validate = validator.New()

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// validationFailed answers a request whose DTO failed validation.
func validationFailed(c *fiber.Ctx, err error) error {
	return errorJSON(c, fiber.StatusBadRequest, "validation_failed", validationMessage(err))
}

func invalidBody(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusBadRequest, "invalid_body", "Request body could not be parsed")
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
	return err.Error()
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func queryID(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// respondError maps service errors to HTTP responses.
func respondError(c *fiber.Ctx, op string, err error) error {
	switch {
	case errors.Is(err, checkout.ErrValidation), errors.Is(err, payout.ErrValidation):
		return errorJSON(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, payout.ErrNotOnboarded):
		return errorJSON(c, fiber.StatusBadRequest, "not_onboarded", err.Error())
	case errors.Is(err, settlement.ErrNotPaid):
		return errorJSON(c, fiber.StatusBadRequest, "payment_not_completed", err.Error())
	case errors.Is(err, settlement.ErrForbidden), errors.Is(err, connect.ErrNotApproved):
		return errorJSON(c, fiber.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, checkout.ErrNotFound), errors.Is(err, payout.ErrNotFound),
		errors.Is(err, connect.ErrNotFound), errors.Is(err, connect.ErrNoAccount),
		errors.Is(err, earnings.ErrNotFound), errors.Is(err, entitlements.ErrVideoNotFound):
		return errorJSON(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, billing.ErrNotConfigured):
		return errorJSON(c, fiber.StatusServiceUnavailable, "processor_not_configured",
			"Payment processor is not configured")
	case errors.Is(err, billing.ErrUnavailable):
		log.Errorf("[%s] Payment processor unavailable: %v", op, err)
		return errorJSON(c, fiber.StatusServiceUnavailable, "processor_unavailable",
			"Payment processor is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		log.Errorf("[%s] Timed out: %v", op, err)
		return errorJSON(c, fiber.StatusServiceUnavailable, "timeout", "Upstream service did not answer in time")
	default:
		log.Errorf("[%s] %v", op, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Unexpected error")
	}
}
