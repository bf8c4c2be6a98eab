package repository

import "github.com/ManuelReschke/UniClips/app/models"

var purchaseFixture = models.Purchase{
	ID:             11,
	BuyerUserID:    9,
	SubjectID:      3,
	ScholarID:      4,
	Amount:         600,
	Currency:       models.DefaultCurrency,
	LifetimeAmount: 1200,
	RenewalCount:   1,
	Active:         true,
}
