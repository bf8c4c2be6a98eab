package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPurchaseIsActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Purchase{Active: true}).IsActiveAt(now), "no expiry means lifetime access")
	assert.True(t, (&Purchase{Active: true, ExpiresAt: &future}).IsActiveAt(now))
	assert.False(t, (&Purchase{Active: true, ExpiresAt: &past}).IsActiveAt(now))
	assert.False(t, (&Purchase{Active: true, ExpiresAt: &now}).IsActiveAt(now), "expiry instant is exclusive")
	assert.False(t, (&Purchase{Active: false}).IsActiveAt(now))

	var nilPurchase *Purchase
	assert.False(t, nilPurchase.IsActiveAt(now))
}

func TestPurchaseRenew(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	oldRef := "pi_old"
	newRef := "pi_new"
	expired := now.Add(-24 * time.Hour)
	next := now.Add(365 * 24 * time.Hour)

	p := &Purchase{
		Amount:          600,
		Currency:        DefaultCurrency,
		TransactionID:   &oldRef,
		LifetimeAmount:  600,
		LifetimeCreator: 420,
		Active:          true,
		ExpiresAt:       &expired,
	}
	p.Renew(Purchase{
		Amount:             800,
		Currency:           DefaultCurrency,
		TransactionID:      &newRef,
		PlatformFeePercent: 50,
		CreatorAmount:      400,
		ExpiresAt:          &next,
	}, now)

	assert.Equal(t, int64(800), p.Amount)
	assert.Equal(t, int64(1400), p.LifetimeAmount)
	assert.Equal(t, int64(820), p.LifetimeCreator)
	assert.Equal(t, 1, p.RenewalCount)
	assert.Equal(t, int64(2), p.SalesCount())
	assert.Equal(t, "pi_new", *p.TransactionID)
	assert.Equal(t, 50, p.PlatformFeePercent)
	assert.True(t, p.IsActiveAt(now))
	assert.Equal(t, now, *p.RenewedAt)
}

func TestScholarProfileConnectedAccount(t *testing.T) {
	var missing *ScholarProfile
	assert.Equal(t, "", missing.ConnectedAccountID())

	p := &ScholarProfile{}
	assert.False(t, p.HasConnectedAccount())

	id := "acct_123"
	p.StripeAccountID = &id
	assert.True(t, p.HasConnectedAccount())
	assert.Equal(t, "acct_123", p.ConnectedAccountID())
}

func TestPurchaseCharge(t *testing.T) {
	ref := "pi_charge"
	p := &Purchase{
		ID:                 4,
		Amount:             800,
		Currency:           DefaultCurrency,
		TransactionID:      &ref,
		PlatformFeePercent: 30,
		CreatorAmount:      560,
		LifetimeAmount:     1400,
	}

	c := p.Charge()
	assert.Equal(t, uint(4), c.PurchaseID)
	assert.Equal(t, "pi_charge", c.TransactionID)
	assert.Equal(t, int64(800), c.Amount, "charge carries the latest payment, not the lifetime total")
	assert.Equal(t, int64(560), c.CreatorAmount)
	assert.Equal(t, 30, c.PlatformFeePercent)
}
