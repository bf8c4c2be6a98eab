package connect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/UniClips/app/repository/repositorytest"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing/billingtest"
)

const scholarID = 7

var opts = Options{FrontendURL: "https://uniclips.test/", Country: "FI", Currency: "eur"}

func newService(store *repositorytest.Store, processor *billingtest.Processor, configured bool) *Service {
	return NewService(store.Repositories(), processor, billing.Capability{Configured: configured}, opts)
}

func TestCreateAccount_NewAccount(t *testing.T) {
	store := repositorytest.NewStore()
	store.AddScholar(scholarID, "", false)
	processor := billingtest.New()

	link, err := newService(store, processor, true).CreateAccount(context.Background(), scholarID)
	require.NoError(t, err)

	require.Len(t, processor.CreatedAccount, 1)
	assert.Equal(t, "FI", processor.CreatedAccount[0].Country)
	assert.Equal(t, "scholar@example.com", processor.CreatedAccount[0].Email)
	assert.Equal(t, link.AccountID, store.Profiles[scholarID].ConnectedAccountID())
	assert.Contains(t, link.URL, "https://uniclips.test/scholar-dashboard?stripe=success")
	assert.Contains(t, link.URL, "https://uniclips.test/scholar-dashboard?stripe=refresh")
}

func TestCreateAccount_ReusesLinkedAccount(t *testing.T) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	processor.Accounts["acct_1"] = &billing.ConnectedAccount{ID: "acct_1"}
	store.AddScholar(scholarID, "acct_1", false)

	link, err := newService(store, processor, true).CreateAccount(context.Background(), scholarID)
	require.NoError(t, err)
	assert.Equal(t, "acct_1", link.AccountID)
	assert.Empty(t, processor.CreatedAccount)
}

func TestCreateAccount_ReplacesVanishedAccount(t *testing.T) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	store.AddScholar(scholarID, "acct_gone", true)

	link, err := newService(store, processor, true).CreateAccount(context.Background(), scholarID)
	require.NoError(t, err)
	assert.NotEqual(t, "acct_gone", link.AccountID)
	assert.Len(t, processor.CreatedAccount, 1)
	assert.False(t, store.Profiles[scholarID].StripeOnboardingComplete)
}

func TestCreateAccount_Preconditions(t *testing.T) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	ctx := context.Background()

	_, err := newService(store, processor, false).CreateAccount(ctx, scholarID)
	assert.ErrorIs(t, err, billing.ErrNotConfigured)

	_, err = newService(store, processor, true).CreateAccount(ctx, scholarID)
	assert.ErrorIs(t, err, ErrNotApproved)

	store.AddScholar(scholarID, "", false).Approved = false
	_, err = newService(store, processor, true).CreateAccount(ctx, scholarID)
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.Empty(t, processor.CreatedAccount)
}

func TestStatus_Live(t *testing.T) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	processor.Accounts["acct_1"] = &billing.ConnectedAccount{
		ID:               "acct_1",
		DetailsSubmitted: true,
		PayoutsEnabled:   true,
		Country:          "FI",
		DefaultCurrency:  "eur",
	}
	store.AddScholar(scholarID, "acct_1", false)

	st, err := newService(store, processor, true).Status(context.Background(), scholarID)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, st.Source)
	assert.True(t, st.Connected)
	assert.True(t, st.OnboardingComplete)
	assert.True(t, st.PayoutsEnabled)
	assert.True(t, store.Profiles[scholarID].StripeOnboardingComplete, "flags mirrored locally")
}

func TestStatus_MissingRemoteAccountClearsLink(t *testing.T) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	store.AddScholar(scholarID, "acct_gone", true)
	svc := newService(store, processor, true)

	st, err := svc.Status(context.Background(), scholarID)
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.True(t, st.Cleared)
	assert.Nil(t, store.Profiles[scholarID].StripeAccountID)
	assert.False(t, store.Profiles[scholarID].StripeOnboardingComplete)

	st, err = svc.Status(context.Background(), scholarID)
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.False(t, st.Cleared)
}

func TestStatus_CachedWhenNotConfigured(t *testing.T) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	store.AddScholar(scholarID, "acct_1", true)

	st, err := newService(store, processor, false).Status(context.Background(), scholarID)
	require.NoError(t, err)
	assert.Equal(t, SourceCached, st.Source)
	assert.False(t, st.ProcessorConfigured)
	assert.True(t, st.Connected)
	assert.True(t, st.OnboardingComplete)
	assert.Empty(t, processor.AccountLookups)
}

func TestStatus_Errors(t *testing.T) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	svc := newService(store, processor, true)

	_, err := svc.Status(context.Background(), scholarID)
	assert.ErrorIs(t, err, ErrNotFound)

	store.AddScholar(scholarID, "acct_1", true)
	processor.AccountErr = errors.New("processor unreachable")
	_, err = svc.Status(context.Background(), scholarID)
	require.Error(t, err)
	assert.NotNil(t, store.Profiles[scholarID].StripeAccountID, "link kept on transient errors")
}

func TestDashboardLink(t *testing.T) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	processor.Accounts["acct_1"] = &billing.ConnectedAccount{ID: "acct_1"}
	svc := newService(store, processor, true)
	ctx := context.Background()

	_, err := svc.DashboardLink(ctx, scholarID)
	assert.ErrorIs(t, err, ErrNoAccount)

	store.AddScholar(scholarID, "acct_1", true)
	url, err := svc.DashboardLink(ctx, scholarID)
	require.NoError(t, err)
	assert.Equal(t, "https://connect.test/dashboard/acct_1", url)

	delete(processor.Accounts, "acct_1")
	_, err = svc.DashboardLink(ctx, scholarID)
	assert.ErrorIs(t, err, ErrNoAccount)
	assert.Nil(t, store.Profiles[scholarID].StripeAccountID)
}
