package models

import "time"

const (
	PurchaseTypeSubjectBundle = "subject_bundle"
	DefaultCurrency           = "eur"
)

// Purchase is a bundle purchase: one row per (buyer, subject, scholar).
// Renewal rewrites the row in place, so the unique index doubles as the
// "at most one active purchase" guarantee. Amounts are minor units.
type Purchase struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	BuyerUserID        uint       `gorm:"not null;index:ux_subject_purchases_triple,unique,priority:1" json:"buyer_user_id"`
	SubjectID          uint       `gorm:"not null;index:ux_subject_purchases_triple,unique,priority:2;index:idx_subject_purchases_pair,priority:1" json:"subject_id"`
	ScholarID          uint       `gorm:"not null;index:ux_subject_purchases_triple,unique,priority:3;index:idx_subject_purchases_pair,priority:2" json:"scholar_id"`
	Amount             int64      `gorm:"not null" json:"amount"`
	Currency           string     `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	TransactionID      *string    `gorm:"type:varchar(191);default:null;uniqueIndex" json:"transaction_id,omitempty"`
	PlatformFeePercent int        `gorm:"not null;default:0" json:"platform_fee_percent"`
	CreatorAmount      int64      `gorm:"not null;default:0" json:"creator_amount"`
	LifetimeAmount     int64      `gorm:"not null;default:0" json:"lifetime_amount"`
	LifetimeCreator    int64      `gorm:"column:lifetime_creator_amount;not null;default:0" json:"lifetime_creator_amount"`
	RenewalCount       int        `gorm:"not null;default:0" json:"renewal_count"`
	Active             bool       `gorm:"not null;default:true;index" json:"active"`
	ExpiresAt          *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	RenewedAt          *time.Time `gorm:"type:timestamp;default:null" json:"renewed_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Purchase) TableName() string {
	return "subject_purchases"
}

// IsActiveAt reports whether the purchase grants access at the given time.
func (p *Purchase) IsActiveAt(now time.Time) bool {
	if p == nil || !p.Active {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// SalesCount is the number of paid sales the row represents.
func (p *Purchase) SalesCount() int64 {
	return 1 + int64(p.RenewalCount)
}

// Renew applies a new paid charge to an expired row.
func (p *Purchase) Renew(charge Purchase, now time.Time) {
	p.Amount = charge.Amount
	p.Currency = charge.Currency
	p.TransactionID = charge.TransactionID
	p.PlatformFeePercent = charge.PlatformFeePercent
	p.CreatorAmount = charge.CreatorAmount
	p.LifetimeAmount += charge.Amount
	p.LifetimeCreator += charge.CreatorAmount
	p.RenewalCount++
	p.Active = true
	p.ExpiresAt = charge.ExpiresAt
	p.RenewedAt = &now
}

// Charge is the ledger entry for the row's latest paid charge.
func (p *Purchase) Charge() *PurchaseCharge {
	c := &PurchaseCharge{
		PurchaseID:         p.ID,
		Amount:             p.Amount,
		Currency:           p.Currency,
		PlatformFeePercent: p.PlatformFeePercent,
		CreatorAmount:      p.CreatorAmount,
	}
	if p.TransactionID != nil {
		c.TransactionID = *p.TransactionID
	}
	return c
}

// PurchaseCharge is one processor payment applied to a purchase. Unlike
// Purchase.TransactionID it is never overwritten by a renewal.
type PurchaseCharge struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	PurchaseID         uint      `gorm:"not null;index" json:"purchase_id"`
	TransactionID      string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"transaction_id"`
	Amount             int64     `gorm:"not null" json:"amount"`
	Currency           string    `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	PlatformFeePercent int       `gorm:"not null;default:0" json:"platform_fee_percent"`
	CreatorAmount      int64     `gorm:"not null;default:0" json:"creator_amount"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PurchaseCharge) TableName() string {
	return "subject_purchase_charges"
}
