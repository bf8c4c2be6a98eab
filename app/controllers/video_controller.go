package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/UniClips/internal/pkg/entitlements"
	"github.com/ManuelReschke/UniClips/internal/pkg/usercontext"
)

type VideoController struct {
	access *entitlements.Checker
}

func NewVideoController(access *entitlements.Checker) *VideoController {
	return &VideoController{access: access}
}

// HandleVideoAccess answers whether the user may watch a video.
func (vc *VideoController) HandleVideoAccess(c *fiber.Ctx) error {
	videoID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "validation_failed", "invalid video id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	access, err := vc.access.VideoAccess(ctx, usercontext.GetUserID(c), videoID)
	if err != nil {
		return respondError(c, "VideoAccess", err)
	}
	if !access.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "purchase_required",
			"message": "You must purchase this bundle to access the video",
			"access":  access,
		})
	}
	return c.JSON(access)
}
