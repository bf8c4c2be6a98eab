package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository/repositorytest"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing/billingtest"
	"github.com/ManuelReschke/UniClips/internal/pkg/checkout"
	"github.com/ManuelReschke/UniClips/internal/pkg/payout"
)

const (
	buyerID   = 1
	subjectID = 2
	scholarID = 3
)

var clock = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store     *repositorytest.Store
	processor *billingtest.Processor
	svc       *Service
}

func newFixture(t *testing.T, accountID string) *fixture {
	t.Helper()
	store := repositorytest.NewStore()
	store.AddSubject(subjectID, "Statistics", nil)
	store.AddScholar(scholarID, accountID, accountID != "")

	processor := billingtest.New()
	repos := store.Repositories()
	svc := NewService(repos, payout.NewService(repos, processor, "eur"), processor, Options{AccessDuration: 365 * 24 * time.Hour})
	svc.now = func() time.Time { return clock }
	return &fixture{store: store, processor: processor, svc: svc}
}

func sixEuroMetadata(account string) map[string]string {
	return checkout.Metadata{
		BuyerID:            buyerID,
		SubjectID:          subjectID,
		ScholarID:          scholarID,
		PlatformFeePercent: 30,
		CreatorAmount:      420,
		Amount:             600,
		Currency:           "eur",
		CreatorAccount:     account,
		Type:               models.PurchaseTypeSubjectBundle,
	}.Encode()
}

func confirmation(ref string) Confirmation {
	return Confirmation{TransactionRef: ref, Metadata: sixEuroMetadata("acct_1"), AmountTotal: 600, Currency: "eur"}
}

func TestConfirm_SettlesAndTransfersCreatorShare(t *testing.T) {
	f := newFixture(t, "acct_1")

	res, err := f.svc.Confirm(context.Background(), confirmation("pi_1"))
	require.NoError(t, err)

	assert.Equal(t, StateSettled, res.State)
	assert.False(t, res.Duplicate)
	assert.False(t, res.TransferSkipped)
	require.NotNil(t, res.Purchase)
	assert.Equal(t, int64(600), res.Purchase.Amount)
	assert.Equal(t, int64(420), res.Purchase.CreatorAmount)
	assert.Equal(t, 30, res.Purchase.PlatformFeePercent)
	require.NotNil(t, res.Purchase.ExpiresAt)
	assert.Equal(t, clock.Add(365*24*time.Hour), *res.Purchase.ExpiresAt)

	require.Len(t, f.processor.Transfers, 1)
	tr := f.processor.Transfers[0]
	assert.Equal(t, int64(420), tr.Amount)
	assert.Equal(t, "acct_1", tr.Destination)
	assert.Equal(t, "pi_1", tr.TransferGroup)
	assert.Equal(t, "transfer-pi_1", tr.IdempotencyKey)

	payouts := f.store.AllPayouts()
	require.Len(t, payouts, 1)
	assert.Equal(t, models.PayoutStatusCompleted, payouts[0].Status)
}

func TestConfirm_ReplayIsNoOp(t *testing.T) {
	f := newFixture(t, "acct_1")
	ctx := context.Background()

	_, err := f.svc.Confirm(ctx, confirmation("pi_1"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := f.svc.Confirm(ctx, confirmation("pi_1"))
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.Equal(t, StateSettled, res.State)
	}

	assert.Equal(t, 1, f.store.PurchaseCount())
	assert.Equal(t, 1, f.processor.TransferCount())
	assert.Len(t, f.store.AllPayouts(), 1)
}

func TestConfirm_SecondPaymentForActiveBundleIsDuplicate(t *testing.T) {
	f := newFixture(t, "acct_1")
	ctx := context.Background()

	_, err := f.svc.Confirm(ctx, confirmation("pi_1"))
	require.NoError(t, err)

	res, err := f.svc.Confirm(ctx, confirmation("pi_2"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, f.store.PurchaseCount())
	assert.Equal(t, 1, f.processor.TransferCount())
}

func TestConfirm_RenewalAfterExpiry(t *testing.T) {
	f := newFixture(t, "acct_1")
	ctx := context.Background()

	_, err := f.svc.Confirm(ctx, confirmation("pi_1"))
	require.NoError(t, err)

	f.svc.now = func() time.Time { return clock.Add(400 * 24 * time.Hour) }
	res, err := f.svc.Confirm(ctx, confirmation("pi_2"))
	require.NoError(t, err)

	assert.True(t, res.Renewed)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 1, f.store.PurchaseCount(), "renewal updates the existing row")

	row, err := f.store.Repositories().Purchase.GetByTriple(ctx, buyerID, subjectID, scholarID)
	require.NoError(t, err)
	assert.Equal(t, "pi_2", *row.TransactionID)
	assert.Equal(t, 1, row.RenewalCount)
	assert.Equal(t, int64(1200), row.LifetimeAmount)
	assert.Equal(t, clock.Add(765*24*time.Hour), *row.ExpiresAt)

	count, err := f.store.Repositories().Purchase.CountSales(ctx, subjectID, scholarID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 2, f.processor.TransferCount())
}

func TestConfirm_TransferFailureKeepsPurchase(t *testing.T) {
	f := newFixture(t, "acct_1")
	f.processor.TransferErr = errors.New("account cannot receive transfers")

	res, err := f.svc.Confirm(context.Background(), confirmation("pi_1"))
	require.NoError(t, err, "buyer-facing confirmation succeeds")
	assert.Equal(t, StateTransferFailed, res.State)
	assert.Equal(t, 1, f.store.PurchaseCount())

	payouts := f.store.AllPayouts()
	require.Len(t, payouts, 1)
	assert.Equal(t, models.PayoutStatusFailed, payouts[0].Status)

	// A replay reports the failure again without a second attempt.
	f.processor.TransferErr = nil
	res, err = f.svc.Confirm(context.Background(), confirmation("pi_1"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, StateTransferFailed, res.State)
	assert.Equal(t, 1, f.processor.TransferCount())
}

func TestConfirm_NoConnectedAccountSkipsTransfer(t *testing.T) {
	f := newFixture(t, "")

	c := confirmation("pi_1")
	c.Metadata = sixEuroMetadata("")
	res, err := f.svc.Confirm(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, StateSettled, res.State)
	assert.True(t, res.TransferSkipped)
	assert.Zero(t, f.processor.TransferCount())
	assert.Empty(t, f.store.AllPayouts())
}

func TestConfirm_UsesCurrentProfileAccount(t *testing.T) {
	f := newFixture(t, "acct_new")

	_, err := f.svc.Confirm(context.Background(), confirmation("pi_1"))
	require.NoError(t, err)
	require.Len(t, f.processor.Transfers, 1)
	assert.Equal(t, "acct_new", f.processor.Transfers[0].Destination)
}

func TestConfirm_InsertRaceIsDuplicate(t *testing.T) {
	f := newFixture(t, "acct_1")
	ctx := context.Background()
	repos := f.store.Repositories()

	winnerRef := "pi_winner"
	f.store.BeforeCreatePurchase = func() {
		require.NoError(t, repos.Purchase.Create(ctx, &models.Purchase{
			BuyerUserID:   buyerID,
			SubjectID:     subjectID,
			ScholarID:     scholarID,
			Amount:        600,
			Currency:      "eur",
			TransactionID: &winnerRef,
			Active:        true,
		}))
	}

	res, err := f.svc.Confirm(ctx, confirmation("pi_1"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	require.NotNil(t, res.Purchase)
	assert.NotZero(t, res.Purchase.ID, "the stored row is returned, not the rejected charge")
	assert.Equal(t, "pi_winner", *res.Purchase.TransactionID)
	assert.Equal(t, 1, f.store.PurchaseCount())
	assert.Zero(t, f.processor.TransferCount())
}

func TestConfirm_ReplayAfterRenewalIsDuplicate(t *testing.T) {
	f := newFixture(t, "acct_1")
	ctx := context.Background()

	_, err := f.svc.Confirm(ctx, confirmation("pi_1"))
	require.NoError(t, err)

	f.svc.now = func() time.Time { return clock.Add(400 * 24 * time.Hour) }
	res, err := f.svc.Confirm(ctx, confirmation("pi_2"))
	require.NoError(t, err)
	require.True(t, res.Renewed)
	renewedUntil := *res.Purchase.ExpiresAt

	// Both access windows are over when the first payment shows up again.
	f.svc.now = func() time.Time { return clock.Add(800 * 24 * time.Hour) }
	res, err = f.svc.Confirm(ctx, confirmation("pi_1"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.False(t, res.Renewed)

	row, err := f.store.Repositories().Purchase.GetByTriple(ctx, buyerID, subjectID, scholarID)
	require.NoError(t, err)
	assert.Equal(t, 1, row.RenewalCount)
	assert.Equal(t, "pi_2", *row.TransactionID)
	assert.Equal(t, renewedUntil, *row.ExpiresAt)
	assert.False(t, row.IsActiveAt(clock.Add(800*24*time.Hour)), "no new access window")
	assert.Equal(t, 2, f.store.ChargeCount())
	assert.Equal(t, 2, f.processor.TransferCount())
}

func TestConfirm_CapturedTotalWins(t *testing.T) {
	f := newFixture(t, "acct_1")
	c := confirmation("pi_1")
	c.AmountTotal = 500

	res, err := f.svc.Confirm(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.Purchase.Amount)
	assert.Equal(t, int64(350), res.Purchase.CreatorAmount)
}

func TestConfirm_Validation(t *testing.T) {
	f := newFixture(t, "acct_1")

	_, err := f.svc.Confirm(context.Background(), Confirmation{Metadata: sixEuroMetadata("")})
	assert.ErrorIs(t, err, ErrValidation)

	meta := sixEuroMetadata("")
	delete(meta, checkout.MetaBuyerID)
	_, err = f.svc.Confirm(context.Background(), Confirmation{TransactionRef: "pi_1", Metadata: meta})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.store.PurchaseCount())
}

func TestConfirm_LifetimeAccessWithoutWindow(t *testing.T) {
	f := newFixture(t, "")
	f.svc.opts.AccessDuration = 0

	res, err := f.svc.Confirm(context.Background(), confirmation("pi_1"))
	require.NoError(t, err)
	assert.Nil(t, res.Purchase.ExpiresAt)
}

func TestConfirmCheckoutSession(t *testing.T) {
	f := newFixture(t, "acct_1")
	ctx := context.Background()

	sess, err := f.processor.CreateCheckoutSession(ctx, billing.CheckoutSessionParams{Amount: 600, Currency: "eur", Metadata: sixEuroMetadata("acct_1")})
	require.NoError(t, err)

	_, err = f.svc.ConfirmCheckoutSession(ctx, sess.ID, buyerID)
	assert.ErrorIs(t, err, ErrNotPaid)

	f.processor.Pay(sess.ID, "pi_77")
	_, err = f.svc.ConfirmCheckoutSession(ctx, sess.ID, 99)
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := f.svc.ConfirmCheckoutSession(ctx, sess.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, "pi_77", *res.Purchase.TransactionID)
}

func TestHandleWebhookEvent(t *testing.T) {
	f := newFixture(t, "acct_1")
	ctx := context.Background()

	_, handled, err := f.svc.HandleWebhookEvent(ctx, &billing.WebhookEvent{Type: "customer.created"})
	require.NoError(t, err)
	assert.False(t, handled)

	ev := &billing.WebhookEvent{
		ID:   "evt_1",
		Type: billing.EventCheckoutSessionCompleted,
		Session: &billing.CheckoutSession{
			ID:              "cs_1",
			PaymentStatus:   billing.PaymentStatusPaid,
			PaymentIntentID: "pi_1",
			AmountTotal:     600,
			Currency:        "eur",
			Metadata:        sixEuroMetadata("acct_1"),
		},
	}
	res, handled, err := f.svc.HandleWebhookEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, StateSettled, res.State)

	// The buyer's redirect confirmation for the same payment is a no-op.
	res, err = f.svc.Confirm(ctx, confirmation("pi_1"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, f.processor.TransferCount())
}
