package controllers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/UniClips/app/repository"
	"github.com/ManuelReschke/UniClips/internal/pkg/earnings"
	"github.com/ManuelReschke/UniClips/internal/pkg/payout"
	"github.com/ManuelReschke/UniClips/internal/pkg/usercontext"
)

// AdminController serves payouts and scholar oversight for administrators.
type AdminController struct {
	payouts  *payout.Service
	earnings *earnings.Reconciler
}

func NewAdminController(payouts *payout.Service, reconciler *earnings.Reconciler) *AdminController {
	return &AdminController{payouts: payouts, earnings: reconciler}
}

type createPayoutRequest struct {
	ScholarID uint `json:"scholar_id" validate:"required,gt=0"`
	// Amount is in major units, as a JSON number or numeric string.
	Amount      json.Number `json:"amount" validate:"required"`
	Currency    string      `json:"currency" validate:"omitempty,len=3,alpha"`
	Description string      `json:"description" validate:"omitempty,max=255"`
}

// HandleCreatePayout transfers an admin-chosen amount to a scholar.
func (ac *AdminController) HandleCreatePayout(c *fiber.Ctx) error {
	var req createPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := ac.payouts.Manual(ctx, payout.ManualRequest{
		ScholarID:   req.ScholarID,
		Amount:      req.Amount.String(),
		Currency:    req.Currency,
		Description: req.Description,
	})
	if errors.Is(err, payout.ErrTransferFailed) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "transfer_failed",
			"message": err.Error(),
			"payout":  p,
		})
	}
	if err != nil {
		return respondError(c, "Payout", err)
	}

	log.Infof("[Admin] User %d paid %d %s to scholar %d", usercontext.GetUserID(c), p.Amount, p.Currency, p.ScholarUserID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "payout": p})
}

// HandleListPayouts lists the payout ledger, optionally by status or scholar.
func (ac *AdminController) HandleListPayouts(c *fiber.Ctx) error {
	filter := repository.PayoutFilter{
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", 100),
	}
	if c.Query("scholar_id") != "" {
		id, ok := queryID(c, "scholar_id")
		if !ok {
			return errorJSON(c, fiber.StatusBadRequest, "validation_failed", "invalid scholar_id")
		}
		filter.ScholarID = id
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := ac.payouts.List(ctx, filter)
	if err != nil {
		return respondError(c, "ListPayouts", err)
	}
	return c.JSON(fiber.Map{"payouts": items})
}

// HandleScholarsStatus returns the connected-account health of all scholars.
func (ac *AdminController) HandleScholarsStatus(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := ac.earnings.AccountHealth(ctx)
	if err != nil {
		return respondError(c, "ScholarsStatus", err)
	}
	return c.JSON(view)
}

// HandleScholarEarnings returns the earnings report of any scholar.
func (ac *AdminController) HandleScholarEarnings(c *fiber.Ctx) error {
	scholarID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "validation_failed", "invalid scholar id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	rep, err := ac.earnings.ScholarEarnings(ctx, scholarID)
	if err != nil {
		return respondError(c, "ScholarEarnings", err)
	}
	return c.JSON(rep)
}
