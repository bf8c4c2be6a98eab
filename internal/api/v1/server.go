package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/UniClips/internal/pkg/middleware"
	"github.com/ManuelReschke/UniClips/internal/pkg/usercontext"
)

// Pong is the body of GET /ping
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface lists the operations of public/docs/v1/openapi.yml
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	PostSubjectCheckout(c *fiber.Ctx) error
	PostSubjectConfirm(c *fiber.Ctx) error
	GetSubjectCheck(c *fiber.Ctx) error
	GetMySubjectPurchases(c *fiber.Ctx) error
	GetVideoAccess(c *fiber.Ctx) error
	PostConnectAccount(c *fiber.Ctx) error
	GetConnectAccountStatus(c *fiber.Ctx) error
	PostConnectDashboardLink(c *fiber.Ctx) error
	GetConnectEarnings(c *fiber.Ctx) error
	PostAdminPayout(c *fiber.Ctx) error
	GetAdminPayouts(c *fiber.Ctx) error
	GetAdminScholarsStatus(c *fiber.Ctx) error
	GetAdminScholarEarnings(c *fiber.Ctx) error
	PostStripeWebhook(c *fiber.Ctx) error
}

// RegisterHandlers mounts the v1 operations on router. auth authenticates
// the bearer token; role checks are added per route.
func RegisterHandlers(router fiber.Router, si ServerInterface, auth fiber.Handler) {
	router.Get("/ping", si.GetPing)
	router.Post("/webhooks/stripe", si.PostStripeWebhook)

	buyers := middleware.RequireRole(usercontext.RoleLearner, usercontext.RoleScholar)
	scholars := middleware.RequireRole(usercontext.RoleScholar)
	admins := middleware.RequireRole(usercontext.RoleAdmin)

	purchases := router.Group("/purchases/subject", auth, buyers)
	purchases.Post("/checkout", si.PostSubjectCheckout)
	purchases.Post("/confirm", si.PostSubjectConfirm)
	purchases.Get("/check", si.GetSubjectCheck)
	purchases.Get("/mine", si.GetMySubjectPurchases)

	router.Get("/videos/:id/access", auth, si.GetVideoAccess)

	connect := router.Group("/connect", auth, scholars)
	connect.Post("/account", si.PostConnectAccount)
	connect.Get("/account/status", si.GetConnectAccountStatus)
	connect.Post("/account/dashboard-link", si.PostConnectDashboardLink)
	connect.Get("/earnings", si.GetConnectEarnings)

	admin := router.Group("/admin", auth, admins)
	admin.Post("/payouts", si.PostAdminPayout)
	admin.Get("/payouts", si.GetAdminPayouts)
	admin.Get("/scholars/status", si.GetAdminScholarsStatus)
	admin.Get("/scholars/:id/earnings", si.GetAdminScholarEarnings)
}
