package repository

import (
	"context"

	"github.com/ManuelReschke/UniClips/app/models"
	"gorm.io/gorm"
)

const defaultPayoutListLimit = 100

type payoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository creates a new payout repository instance
func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

// Create inserts a payout row
func (r *payoutRepository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

// UpdateStatus moves a non-completed payout to a new status
func (r *payoutRepository) UpdateStatus(ctx context.Context, id uint, status, transferID, failureReason string) (bool, error) {
	updates := map[string]interface{}{
		"status":         status,
		"failure_reason": failureReason,
	}
	if transferID != "" {
		updates["stripe_transfer_id"] = transferID
	}
	tx := r.db.WithContext(ctx).Model(&models.Payout{}).
		Where("id = ? AND status <> ?", id, models.PayoutStatusCompleted).
		Updates(updates)
	return tx.RowsAffected > 0, tx.Error
}

// GetBySourceTransaction finds the automatic payout funded by a payment
func (r *payoutRepository) GetBySourceTransaction(ctx context.Context, transactionID string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).Where("source_transaction_id = ?", transactionID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns payouts newest first
func (r *payoutRepository) List(ctx context.Context, filter PayoutFilter) ([]models.Payout, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPayoutListLimit
	}
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if filter.ScholarID != 0 {
		q = q.Where("scholar_user_id = ?", filter.ScholarID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var payouts []models.Payout
	err := q.Find(&payouts).Error
	return payouts, err
}

// CompletedStats sums the completed payouts of a scholar
func (r *payoutRepository) CompletedStats(ctx context.Context, scholarID uint) (models.PayoutStats, error) {
	var stats models.PayoutStats
	err := r.db.WithContext(ctx).Model(&models.Payout{}).
		Select("COALESCE(SUM(amount), 0) AS total_paid, COUNT(*) AS payout_count").
		Where("scholar_user_id = ? AND status = ?", scholarID, models.PayoutStatusCompleted).
		Scan(&stats).Error
	return stats, err
}
