package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to the controllers to keep behavior consistent
	"github.com/ManuelReschke/UniClips/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct {
	purchases *controllers.PurchaseController
	videos    *controllers.VideoController
	connect   *controllers.ConnectController
	admin     *controllers.AdminController
	webhooks  *controllers.WebhookController
}

// Controllers groups the controllers an APIServer delegates to
type Controllers struct {
	Purchases *controllers.PurchaseController
	Videos    *controllers.VideoController
	Connect   *controllers.ConnectController
	Admin     *controllers.AdminController
	Webhooks  *controllers.WebhookController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(c Controllers) *APIServer {
	return &APIServer{
		purchases: c.Purchases,
		videos:    c.Videos,
		connect:   c.Connect,
		admin:     c.Admin,
		webhooks:  c.Webhooks,
	}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// PostSubjectCheckout opens a checkout session for a subject bundle
func (s *APIServer) PostSubjectCheckout(c *fiber.Ctx) error {
	return s.purchases.HandleStartCheckout(c)
}

// PostSubjectConfirm settles a paid checkout session after the redirect
func (s *APIServer) PostSubjectConfirm(c *fiber.Ctx) error {
	return s.purchases.HandleConfirmPurchase(c)
}

func (s *APIServer) GetSubjectCheck(c *fiber.Ctx) error {
	return s.purchases.HandleCheckPurchase(c)
}

func (s *APIServer) GetMySubjectPurchases(c *fiber.Ctx) error {
	return s.purchases.HandleListMyPurchases(c)
}

// GetVideoAccess checks whether the caller may watch a video
func (s *APIServer) GetVideoAccess(c *fiber.Ctx) error {
	return s.videos.HandleVideoAccess(c)
}

func (s *APIServer) PostConnectAccount(c *fiber.Ctx) error {
	return s.connect.HandleCreateAccount(c)
}

func (s *APIServer) GetConnectAccountStatus(c *fiber.Ctx) error {
	return s.connect.HandleAccountStatus(c)
}

func (s *APIServer) PostConnectDashboardLink(c *fiber.Ctx) error {
	return s.connect.HandleDashboardLink(c)
}

func (s *APIServer) GetConnectEarnings(c *fiber.Ctx) error {
	return s.connect.HandleMyEarnings(c)
}

// PostAdminPayout pays a scholar manually
func (s *APIServer) PostAdminPayout(c *fiber.Ctx) error {
	return s.admin.HandleCreatePayout(c)
}

func (s *APIServer) GetAdminPayouts(c *fiber.Ctx) error {
	return s.admin.HandleListPayouts(c)
}

func (s *APIServer) GetAdminScholarsStatus(c *fiber.Ctx) error {
	return s.admin.HandleScholarsStatus(c)
}

func (s *APIServer) GetAdminScholarEarnings(c *fiber.Ctx) error {
	return s.admin.HandleScholarEarnings(c)
}

// PostStripeWebhook receives processor events; authenticity is checked by
// signature instead of a bearer token.
func (s *APIServer) PostStripeWebhook(c *fiber.Ctx) error {
	return s.webhooks.HandleStripeWebhook(c)
}
