package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/UniClips/app/models"
	"gorm.io/gorm"
)

type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a new purchase repository instance
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// activeAt limits a purchase query to rows granting access at now.
func activeAt(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now)
	}
}

// forPair limits a purchase query to one (subject, scholar) bundle.
func forPair(subjectID, scholarID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("subject_id = ? AND scholar_id = ?", subjectID, scholarID)
	}
}

// Create inserts a new purchase row and its first charge
func (r *purchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(purchase).Error; err != nil {
			return err
		}
		return recordCharge(tx, purchase)
	})
}

// Renew rewrites an expired purchase in place and records the new charge
func (r *purchaseRepository) Renew(ctx context.Context, purchase *models.Purchase, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := renewExpired(tx, purchase, now); err != nil {
			return err
		}
		return recordCharge(tx, purchase)
	})
}

// renewExpired updates the row only while it grants no access.
func renewExpired(tx *gorm.DB, purchase *models.Purchase, now time.Time) error {
	res := tx.Model(&models.Purchase{}).
		Where("id = ?", purchase.ID).
		Where("active = ? OR (expires_at IS NOT NULL AND expires_at <= ?)", false, now).
		Updates(map[string]interface{}{
			"amount":                  purchase.Amount,
			"currency":                purchase.Currency,
			"transaction_id":          purchase.TransactionID,
			"platform_fee_percent":    purchase.PlatformFeePercent,
			"creator_amount":          purchase.CreatorAmount,
			"lifetime_amount":         purchase.LifetimeAmount,
			"lifetime_creator_amount": purchase.LifetimeCreator,
			"renewal_count":           purchase.RenewalCount,
			"active":                  purchase.Active,
			"expires_at":              purchase.ExpiresAt,
			"renewed_at":              purchase.RenewedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrDuplicatedKey
	}
	return nil
}

// recordCharge inserts the purchase's latest charge. A transaction id that
// was recorded before fails with gorm.ErrDuplicatedKey.
func recordCharge(tx *gorm.DB, purchase *models.Purchase) error {
	if purchase.TransactionID == nil {
		return nil
	}
	return tx.Create(purchase.Charge()).Error
}

// GetByCharge finds the purchase settled by a processor payment, including
// payments superseded by a later renewal
func (r *purchaseRepository) GetByCharge(ctx context.Context, transactionID string) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.WithContext(ctx).
		Joins("JOIN subject_purchase_charges c ON c.purchase_id = subject_purchases.id").
		Where("c.transaction_id = ?", transactionID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByTriple finds the single purchase row of a buyer for a bundle
func (r *purchaseRepository) GetByTriple(ctx context.Context, buyerID, subjectID, scholarID uint) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.WithContext(ctx).
		Scopes(forPair(subjectID, scholarID)).
		Where("buyer_user_id = ?", buyerID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByBuyer returns all bundle purchases of a buyer, newest first
func (r *purchaseRepository) ListByBuyer(ctx context.Context, buyerID uint) ([]BuyerPurchase, error) {
	var out []BuyerPurchase
	err := r.db.WithContext(ctx).
		Table("subject_purchases AS sp").
		Select("sp.*, s.name AS subject_name").
		Joins("JOIN subjects s ON s.id = sp.subject_id").
		Where("sp.buyer_user_id = ?", buyerID).
		Order("sp.created_at DESC").
		Scan(&out).Error
	return out, err
}

// HasActiveBundle reports whether the buyer currently has access to the bundle
func (r *purchaseRepository) HasActiveBundle(ctx context.Context, buyerID, subjectID, scholarID uint, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Scopes(forPair(subjectID, scholarID), activeAt(now)).
		Where("buyer_user_id = ?", buyerID).
		Count(&count).Error
	return count > 0, err
}

// CountSales counts every paid charge of a bundle, renewals included
func (r *purchaseRepository) CountSales(ctx context.Context, subjectID, scholarID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Scopes(forPair(subjectID, scholarID)).
		Select("COALESCE(COUNT(*) + SUM(renewal_count), 0)").
		Scan(&count).Error
	return count, err
}

// ScholarStats aggregates bundle sales of a scholar. With since set only
// rows first bought or last renewed after it are counted, once each, at
// their latest charge.
func (r *purchaseRepository) ScholarStats(ctx context.Context, scholarID uint, since *time.Time) (models.SalesStats, error) {
	var stats models.SalesStats
	q := r.db.WithContext(ctx).Model(&models.Purchase{}).Where("scholar_id = ?", scholarID)
	if since != nil {
		q = q.Where("COALESCE(renewed_at, created_at) >= ?", *since).
			Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS revenue")
	} else {
		q = q.Select("COALESCE(COUNT(*) + SUM(renewal_count), 0) AS count, COALESCE(SUM(lifetime_amount), 0) AS revenue")
	}
	err := q.Scan(&stats).Error
	return stats, err
}

// ScholarSubjectStats breaks a scholar's bundle sales down per subject
func (r *purchaseRepository) ScholarSubjectStats(ctx context.Context, scholarID uint) ([]models.SubjectSalesStats, error) {
	var out []models.SubjectSalesStats
	err := r.db.WithContext(ctx).
		Table("subject_purchases AS sp").
		Select(`sp.subject_id AS subject_id, s.name AS subject_name,
			COUNT(*) + COALESCE(SUM(sp.renewal_count), 0) AS count,
			COALESCE(SUM(sp.lifetime_amount), 0) AS revenue,
			COALESCE(SUM(sp.lifetime_creator_amount), 0) AS recorded_creator_share`).
		Joins("JOIN subjects s ON s.id = sp.subject_id").
		Where("sp.scholar_id = ?", scholarID).
		Group("sp.subject_id, s.name").
		Order("sp.subject_id").
		Scan(&out).Error
	return out, err
}
