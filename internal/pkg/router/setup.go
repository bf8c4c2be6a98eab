package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/UniClips/app/controllers"
	apiv1 "github.com/ManuelReschke/UniClips/internal/api/v1"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the wired controllers and settings the routers need.
type Dependencies struct {
	API    apiv1.Controllers
	Health *controllers.HealthController

	JWTSecret string

	// RateLimitStorage may be nil to keep counters in memory.
	RateLimitStorage fiber.Storage
	RateLimitMax     int
	RateLimitWindow  time.Duration

	MetricsUser     string
	MetricsPassword string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// Operational routes first so the API rate limit never applies to them.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
