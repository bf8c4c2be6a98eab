package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/UniClips/internal/pkg/connect"
	"github.com/ManuelReschke/UniClips/internal/pkg/earnings"
	"github.com/ManuelReschke/UniClips/internal/pkg/usercontext"
)

// ConnectController serves the scholar side of connected payout accounts.
type ConnectController struct {
	accounts *connect.Service
	earnings *earnings.Reconciler
}

func NewConnectController(accounts *connect.Service, reconciler *earnings.Reconciler) *ConnectController {
	return &ConnectController{accounts: accounts, earnings: reconciler}
}

// HandleCreateAccount creates or reuses the scholar's account and returns an
// onboarding link.
func (cc *ConnectController) HandleCreateAccount(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	link, err := cc.accounts.CreateAccount(ctx, usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, "Connect", err)
	}
	return c.JSON(link)
}

// HandleAccountStatus reports the account status, live when possible.
func (cc *ConnectController) HandleAccountStatus(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := cc.accounts.Status(ctx, usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, "ConnectStatus", err)
	}
	return c.JSON(st)
}

// HandleDashboardLink returns a login link for the processor dashboard.
func (cc *ConnectController) HandleDashboardLink(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	url, err := cc.accounts.DashboardLink(ctx, usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, "DashboardLink", err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleMyEarnings returns the earnings report of the signed-in scholar.
func (cc *ConnectController) HandleMyEarnings(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	rep, err := cc.earnings.ScholarEarnings(ctx, usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, "Earnings", err)
	}
	return c.JSON(rep)
}
