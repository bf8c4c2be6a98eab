package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/UniClips/app/controllers"
	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
	apiv1 "github.com/ManuelReschke/UniClips/internal/api/v1"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/cache"
	"github.com/ManuelReschke/UniClips/internal/pkg/checkout"
	"github.com/ManuelReschke/UniClips/internal/pkg/config"
	"github.com/ManuelReschke/UniClips/internal/pkg/connect"
	"github.com/ManuelReschke/UniClips/internal/pkg/database"
	"github.com/ManuelReschke/UniClips/internal/pkg/earnings"
	"github.com/ManuelReschke/UniClips/internal/pkg/entitlements"
	"github.com/ManuelReschke/UniClips/internal/pkg/env"
	"github.com/ManuelReschke/UniClips/internal/pkg/middleware"
	"github.com/ManuelReschke/UniClips/internal/pkg/payout"
	"github.com/ManuelReschke/UniClips/internal/pkg/router"
	"github.com/ManuelReschke/UniClips/internal/pkg/settlement"
)

func main() {
	app, cfg, err := NewApplication()
	if err != nil {
		log.Fatal(err)
	}
	log.Fatal(app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)))
}

func NewApplication() (*fiber.App, *config.Config, error) {
	if err := env.SetupEnvFile(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store := cache.New(ctx, cfg.Cache)

	processor := billing.NewStripeProcessor(cfg.Stripe)
	capability := processor.Capability()
	if !capability.Configured {
		log.Warn("STRIPE_SECRET_KEY is missing or a placeholder; checkout and transfers are disabled")
	}

	repos := repository.NewRepositories(db)
	payouts := payout.NewService(repos, processor, cfg.Currency)
	settle := settlement.NewService(repos, payouts, processor, settlement.Options{
		AccessDuration: cfg.AccessDuration,
	})
	checkoutSvc := checkout.NewService(repos, processor, store, checkout.Options{
		Currency:     cfg.Currency,
		DefaultPrice: cfg.BundleDefaultPrice,
		FrontendURL:  cfg.FrontendURL,
	})
	accounts := connect.NewService(repos, processor, capability, connect.Options{
		FrontendURL: cfg.FrontendURL,
		Country:     cfg.ConnectCountry,
		Currency:    cfg.Currency,
	})
	reconciler := earnings.NewReconciler(repos, accounts, cfg.Currency)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "UniClips",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if docs := findDocs(); docs != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: docs,
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		API: apiv1.Controllers{
			Purchases: controllers.NewPurchaseController(checkoutSvc, settle, repos.Purchase),
			Videos:    controllers.NewVideoController(entitlements.NewChecker(repos)),
			Connect:   controllers.NewConnectController(accounts, reconciler),
			Admin:     controllers.NewAdminController(payouts, reconciler),
			Webhooks:  controllers.NewWebhookController(processor, billing.NewJournal(models.ProviderStripe, billing.NewJournalStore(db)), settle),
		},
		Health: controllers.NewHealthController(map[string]controllers.Pinger{
			"database": controllers.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) }),
			"cache":    store,
		}),
		JWTSecret:        cfg.JWTSecret,
		RateLimitStorage: middleware.NewRateLimitStorage(cfg.Cache),
		RateLimitMax:     cfg.RateLimitMax,
		RateLimitWindow:  cfg.RateLimitWindow,
		MetricsUser:      cfg.MetricsUser,
		MetricsPassword:  cfg.MetricsPassword,
	})

	return app, cfg, nil
}

// findDocs locates the OpenAPI document from the project root or cmd/uniclips.
func findDocs() string {
	for _, base := range []string{"./", "../../"} {
		path := base + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	log.Warn("public/docs/v1/openapi.yml not found, API docs are disabled")
	return ""
}
