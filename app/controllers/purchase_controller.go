package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/UniClips/app/repository"
	"github.com/ManuelReschke/UniClips/internal/pkg/checkout"
	"github.com/ManuelReschke/UniClips/internal/pkg/settlement"
	"github.com/ManuelReschke/UniClips/internal/pkg/usercontext"
)

type PurchaseController struct {
	checkout   *checkout.Service
	settlement *settlement.Service
	purchases  repository.PurchaseRepository
	now        func() time.Time
}

func NewPurchaseController(checkoutSvc *checkout.Service, settlementSvc *settlement.Service, purchases repository.PurchaseRepository) *PurchaseController {
	return &PurchaseController{
		checkout:   checkoutSvc,
		settlement: settlementSvc,
		purchases:  purchases,
		now:        time.Now,
	}
}

type startCheckoutRequest struct {
	SubjectID uint `json:"subject_id" validate:"required,gt=0"`
	ScholarID uint `json:"scholar_id" validate:"required,gt=0"`
}

type confirmPurchaseRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

// HandleStartCheckout opens a checkout session for a subject bundle.
func (pc *PurchaseController) HandleStartCheckout(c *fiber.Ctx) error {
	var req startCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := pc.checkout.Start(ctx, checkout.Request{
		BuyerID:   usercontext.GetUserID(c),
		SubjectID: req.SubjectID,
		ScholarID: req.ScholarID,
	})
	if errors.Is(err, checkout.ErrAlreadyPurchased) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"already_purchased": true,
			"message":           "You already have access to this bundle",
		})
	}
	if err != nil {
		return respondError(c, "Checkout", err)
	}
	return c.Status(fiber.StatusOK).JSON(sess)
}

// HandleConfirmPurchase settles the checkout session the buyer returned
// from. Amounts are read from the processor, never from the request.
func (pc *PurchaseController) HandleConfirmPurchase(c *fiber.Ctx) error {
	var req confirmPurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := pc.settlement.ConfirmCheckoutSession(ctx, req.SessionID, usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, "Confirm", err)
	}

	// Creator transfer problems are tracked on the payout, the buyer only
	// sees the state of their own purchase.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"duplicate": res.Duplicate,
		"renewed":   res.Renewed,
		"purchase":  res.Purchase,
	})
}

// HandleCheckPurchase reports whether the user holds an active bundle.
func (pc *PurchaseController) HandleCheckPurchase(c *fiber.Ctx) error {
	subjectID, ok := queryID(c, "subject_id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "validation_failed", "subject_id is required")
	}
	scholarID, ok := queryID(c, "scholar_id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "validation_failed", "scholar_id is required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	buyerID := usercontext.GetUserID(c)
	now := pc.now()
	p, err := pc.purchases.GetByTriple(ctx, buyerID, subjectID, scholarID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(fiber.Map{"purchased": false})
	}
	if err != nil {
		return respondError(c, "CheckPurchase", err)
	}
	if !p.IsActiveAt(now) {
		return c.JSON(fiber.Map{"purchased": false, "expired": true, "expires_at": p.ExpiresAt})
	}
	return c.JSON(fiber.Map{"purchased": true, "purchase": p})
}

// HandleListMyPurchases lists the bundle purchases of the user.
func (pc *PurchaseController) HandleListMyPurchases(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	buyerID := usercontext.GetUserID(c)
	items, err := pc.purchases.ListByBuyer(ctx, buyerID)
	if err != nil {
		return respondError(c, "ListPurchases", err)
	}

	now := pc.now()
	out := make([]fiber.Map, 0, len(items))
	for i := range items {
		out = append(out, fiber.Map{
			"purchase":     items[i].Purchase,
			"subject_name": items[i].SubjectName,
			"active":       items[i].IsActiveAt(now),
		})
	}
	log.Debugf("[Purchases] Listed %d bundles for buyer %d", len(out), buyerID)
	return c.JSON(fiber.Map{"purchases": out})
}
