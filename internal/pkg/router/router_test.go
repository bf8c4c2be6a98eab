package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/UniClips/app/controllers"
	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository/repositorytest"
	apiv1 "github.com/ManuelReschke/UniClips/internal/api/v1"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing/billingtest"
	"github.com/ManuelReschke/UniClips/internal/pkg/cache"
	"github.com/ManuelReschke/UniClips/internal/pkg/checkout"
	"github.com/ManuelReschke/UniClips/internal/pkg/connect"
	"github.com/ManuelReschke/UniClips/internal/pkg/earnings"
	"github.com/ManuelReschke/UniClips/internal/pkg/entitlements"
	"github.com/ManuelReschke/UniClips/internal/pkg/middleware"
	"github.com/ManuelReschke/UniClips/internal/pkg/payout"
	"github.com/ManuelReschke/UniClips/internal/pkg/settlement"
	"github.com/ManuelReschke/UniClips/internal/pkg/usercontext"
)

const (
	jwtSecret = "router-test-secret"
	learnerID = 1
	subjectID = 2
	scholarID = 3
	adminID   = 4
)

type harness struct {
	app       *fiber.App
	store     *repositorytest.Store
	processor *billingtest.Processor
	journal   *billingtest.JournalStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := repositorytest.NewStore()
	store.AddSubject(subjectID, "Linear Algebra", nil)
	store.AddScholar(scholarID, "acct_1", true)
	store.Videos[9] = models.Video{ID: 9, ScholarUserID: scholarID, SubjectID: subjectID, Price: 300}

	processor := billingtest.New()
	processor.Accounts["acct_1"] = &billing.ConnectedAccount{ID: "acct_1", DetailsSubmitted: true, PayoutsEnabled: true, Country: "FI"}

	mr := miniredis.RunT(t)
	recent := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	repos := store.Repositories()
	payouts := payout.NewService(repos, processor, "eur")
	settle := settlement.NewService(repos, payouts, processor, settlement.Options{AccessDuration: 365 * 24 * time.Hour})
	checkoutSvc := checkout.NewService(repos, processor, recent, checkout.Options{
		Currency: "eur", DefaultPrice: 600, FrontendURL: "https://uniclips.test",
	})
	accounts := connect.NewService(repos, processor, billing.Capability{Configured: true}, connect.Options{
		FrontendURL: "https://uniclips.test", Country: "FI", Currency: "eur",
	})
	reconciler := earnings.NewReconciler(repos, accounts, "eur")
	journal := &billingtest.JournalStore{}

	app := fiber.New()
	InstallRouter(app, Dependencies{
		API: apiv1.Controllers{
			Purchases: controllers.NewPurchaseController(checkoutSvc, settle, repos.Purchase),
			Videos:    controllers.NewVideoController(entitlements.NewChecker(repos)),
			Connect:   controllers.NewConnectController(accounts, reconciler),
			Admin:     controllers.NewAdminController(payouts, reconciler),
			Webhooks:  controllers.NewWebhookController(processor, billing.NewJournal(models.ProviderStripe, journal), settle),
		},
		Health: controllers.NewHealthController(map[string]controllers.Pinger{
			"cache": recent,
		}),
		JWTSecret:       jwtSecret,
		RateLimitMax:    1000,
		RateLimitWindow: time.Minute,
		MetricsUser:     "admin",
		MetricsPassword: "secret",
	})
	return &harness{app: app, store: store, processor: processor, journal: journal}
}

func token(t *testing.T, id uint, roles ...string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{ID: id, Roles: roles}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

func (h *harness) do(t *testing.T, method, path, bearer string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestPurchaseFlow(t *testing.T) {
	h := newHarness(t)
	learner := token(t, learnerID, "Learner")
	bundle := fiber.Map{"subject_id": subjectID, "scholar_id": scholarID}

	status, _ := h.do(t, http.MethodPost, "/api/v1/purchases/subject/checkout", "", bundle)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := h.do(t, http.MethodPost, "/api/v1/purchases/subject/checkout", learner, bundle)
	require.Equal(t, fiber.StatusOK, status, body)
	sessionID := body["session_id"].(string)
	assert.EqualValues(t, 600, body["amount"])
	assert.EqualValues(t, 420, body["creator_amount"])
	assert.EqualValues(t, 30, body["platform_fee_percent"])

	status, body = h.do(t, http.MethodPost, "/api/v1/purchases/subject/checkout", learner, bundle)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, sessionID, body["session_id"])
	assert.Equal(t, true, body["reused"])

	status, body = h.do(t, http.MethodPost, "/api/v1/purchases/subject/confirm", learner, fiber.Map{"session_id": sessionID})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "payment_not_completed", body["error"])

	h.processor.Pay(sessionID, "pi_1")
	status, body = h.do(t, http.MethodPost, "/api/v1/purchases/subject/confirm", learner, fiber.Map{"session_id": sessionID})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["duplicate"])
	assert.Equal(t, 1, h.processor.TransferCount())

	status, body = h.do(t, http.MethodPost, "/api/v1/purchases/subject/confirm", learner, fiber.Map{"session_id": sessionID})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, 1, h.processor.TransferCount())

	status, body = h.do(t, http.MethodGet, "/api/v1/purchases/subject/check?subject_id=2&scholar_id=3", learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["purchased"])

	status, body = h.do(t, http.MethodGet, "/api/v1/purchases/subject/mine", learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["purchases"], 1)

	status, body = h.do(t, http.MethodPost, "/api/v1/purchases/subject/checkout", learner, bundle)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["already_purchased"])

	status, body = h.do(t, http.MethodGet, "/api/v1/videos/9/access", learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "bundle", body["reason"])

	status, _ = h.do(t, http.MethodGet, "/api/v1/videos/9/access", token(t, 99, "learner"), nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestCheckoutValidation(t *testing.T) {
	h := newHarness(t)
	learner := token(t, learnerID, usercontext.RoleLearner)

	status, body := h.do(t, http.MethodPost, "/api/v1/purchases/subject/checkout", learner, fiber.Map{"subject_id": subjectID})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", body["error"])

	status, _ = h.do(t, http.MethodPost, "/api/v1/purchases/subject/checkout", learner, fiber.Map{"subject_id": 77, "scholar_id": scholarID})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = h.do(t, http.MethodPost, "/api/v1/purchases/subject/checkout", token(t, adminID, usercontext.RoleAdmin), fiber.Map{"subject_id": subjectID, "scholar_id": scholarID})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestStripeWebhook(t *testing.T) {
	h := newHarness(t)
	ev := &billing.WebhookEvent{
		ID:   "evt_1",
		Type: billing.EventCheckoutSessionCompleted,
		Session: &billing.CheckoutSession{
			ID:              "cs_1",
			PaymentStatus:   billing.PaymentStatusPaid,
			PaymentIntentID: "pi_9",
			AmountTotal:     600,
			Currency:        "eur",
			Metadata: checkout.Metadata{
				BuyerID: learnerID, SubjectID: subjectID, ScholarID: scholarID,
				PlatformFeePercent: 30, CreatorAmount: 420, Amount: 600, Currency: "eur",
			}.Encode(),
		},
	}
	h.processor.Events["t=1,v1=good"] = ev
	h.processor.Events["t=2,v1=other"] = &billing.WebhookEvent{ID: "evt_2", Type: "customer.created"}
	h.processor.Events["t=3,v1=nometa"] = &billing.WebhookEvent{
		ID:   "evt_3",
		Type: billing.EventCheckoutSessionCompleted,
		Session: &billing.CheckoutSession{
			ID:              "cs_3",
			PaymentStatus:   billing.PaymentStatusPaid,
			PaymentIntentID: "pi_10",
			AmountTotal:     600,
			Currency:        "eur",
			Metadata:        map[string]string{"type": models.PurchaseTypeSubjectBundle},
		},
	}

	send := func(sig string) (int, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(`{"id":"evt"}`)))
		req.Header.Set("Stripe-Signature", sig)
		resp, err := h.app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		out := map[string]interface{}{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	status, _ := send("forged")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Zero(t, h.journal.Len())

	status, body := send("t=1,v1=good")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, string(settlement.StateSettled), body["state"])

	status, body = send("t=1,v1=good")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])

	status, body = send("t=2,v1=other")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ignored"])

	// Unusable metadata is acknowledged so the processor stops retrying.
	status, body = send("t=3,v1=nometa")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "invalid_payload", body["error"])

	require.Equal(t, 3, h.journal.Len())
	last := h.journal.Deliveries[2]
	assert.Equal(t, "evt_3", last.ProviderEventID)
	assert.True(t, strings.HasPrefix(last.ProcessingError, "invalid_payload: "), last.ProcessingError)
	assert.Equal(t, 1, h.store.PurchaseCount())
	assert.Equal(t, 1, h.processor.TransferCount())
}

func TestConnectAndAdminRoutes(t *testing.T) {
	h := newHarness(t)
	scholar := token(t, scholarID, "Scholar")
	admin := token(t, adminID, "Admin")
	learner := token(t, learnerID, "Learner")

	status, body := h.do(t, http.MethodGet, "/api/v1/connect/account/status", scholar, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, connect.SourceLive, body["source"])
	assert.Equal(t, true, body["onboarding_complete"])

	status, _ = h.do(t, http.MethodGet, "/api/v1/connect/account/status", learner, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = h.do(t, http.MethodPost, "/api/v1/connect/account/dashboard-link", scholar, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body["url"], "acct_1")

	status, _ = h.do(t, http.MethodGet, "/api/v1/connect/earnings", scholar, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = h.do(t, http.MethodPost, "/api/v1/admin/payouts", scholar, fiber.Map{"scholar_id": scholarID, "amount": "5"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = h.do(t, http.MethodPost, "/api/v1/admin/payouts", admin, fiber.Map{"scholar_id": scholarID, "amount": "abc"})
	assert.Equal(t, fiber.StatusBadRequest, status, body)

	status, body = h.do(t, http.MethodPost, "/api/v1/admin/payouts", admin, fiber.Map{"scholar_id": scholarID, "amount": 12.5})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.EqualValues(t, 1250, body["payout"].(map[string]interface{})["amount"])
	assert.Equal(t, "payout-1", h.processor.Transfers[0].IdempotencyKey)

	h.processor.TransferErr = errors.New("insufficient platform balance")
	status, body = h.do(t, http.MethodPost, "/api/v1/admin/payouts", admin, fiber.Map{"scholar_id": scholarID, "amount": "3.00"})
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "transfer_failed", body["error"])

	status, body = h.do(t, http.MethodGet, "/api/v1/admin/payouts?status=failed", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["payouts"], 1)

	status, _ = h.do(t, http.MethodGet, "/api/v1/admin/payouts?status=weird", admin, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = h.do(t, http.MethodGet, "/api/v1/admin/scholars/status", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["scholars"], 1)

	status, body = h.do(t, http.MethodGet, "/api/v1/admin/scholars/3/earnings", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1250, body["total_paid"])

	status, _ = h.do(t, http.MethodGet, "/api/v1/admin/scholars/404/earnings", admin, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestOperationalRoutes(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = h.do(t, http.MethodGet, "/api/v1/ping", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pong", body["ping"])
}

func TestHealthReportsOutage(t *testing.T) {
	app := fiber.New()
	InstallRouter(app, Dependencies{
		Health: controllers.NewHealthController(map[string]controllers.Pinger{
			"database": controllers.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		}),
		RateLimitMax:    10,
		RateLimitWindow: time.Minute,
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
