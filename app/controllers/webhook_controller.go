package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/settlement"
)

type WebhookController struct {
	processor  billing.Processor
	journal    *billing.Journal
	settlement *settlement.Service
}

func NewWebhookController(processor billing.Processor, journal *billing.Journal, settlementSvc *settlement.Service) *WebhookController {
	return &WebhookController{processor: processor, journal: journal, settlement: settlementSvc}
}

// HandleStripeWebhook verifies, journals and settles processor events. An
// event that was already processed without error is acknowledged as a
// duplicate; failed ones are processed again on redelivery. A verified event
// whose metadata is unusable is acknowledged too, since no retry can fix it.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	ev, err := wc.processor.ParseWebhookEvent(rawBody, signature)
	if err != nil {
		if errors.Is(err, billing.ErrNotConfigured) {
			return errorJSON(c, fiber.StatusServiceUnavailable, "processor_not_configured", "Webhook secret is not configured")
		}
		log.Warnf("[Webhook] Rejected event: %v", err)
		return errorJSON(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	receipt, err := wc.journal.Open(ctx, ev, rawBody)
	if err != nil {
		log.Errorf("[Webhook] Could not journal event %s: %v", ev.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if receipt.Done {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}
	if receipt.Redelivery {
		log.Infof("[Webhook] Reprocessing event %s after an earlier failure", receipt.EventID)
	}

	res, handled, err := wc.settlement.HandleWebhookEvent(ctx, ev)
	outcome := err
	if errors.Is(err, settlement.ErrValidation) {
		outcome = fmt.Errorf("invalid_payload: %w", err)
	}
	if closeErr := wc.journal.Close(ctx, receipt, outcome); closeErr != nil {
		log.Errorf("[Webhook] Could not record outcome of event %s: %v", receipt.EventID, closeErr)
	}
	if !handled {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}
	if err != nil {
		if errors.Is(err, settlement.ErrValidation) {
			log.Errorf("[Webhook] Event %s carries unusable metadata: %v", ev.ID, err)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "error": "invalid_payload"})
		}
		log.Errorf("[Webhook] Settlement of event %s failed: %v", ev.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "settlement_failed", "Event will be retried")
	}

	log.Infof("[Webhook] Event %s (%s) settled: state=%s duplicate=%v", ev.ID, ev.Type, res.State, res.Duplicate)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "state": res.State, "duplicate": res.Duplicate})
}
