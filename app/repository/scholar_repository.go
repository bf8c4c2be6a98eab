package repository

import (
	"context"

	"github.com/ManuelReschke/UniClips/app/models"
	"gorm.io/gorm"
)

type scholarRepository struct {
	db *gorm.DB
}

// NewScholarRepository creates a new scholar repository instance
func NewScholarRepository(db *gorm.DB) ScholarRepository {
	return &scholarRepository{db: db}
}

// GetProfile loads the scholar profile of a user together with the user
func (r *scholarRepository) GetProfile(ctx context.Context, userID uint) (*models.ScholarProfile, error) {
	var p models.ScholarProfile
	err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListApproved returns all approved scholars ordered by user id
func (r *scholarRepository) ListApproved(ctx context.Context) ([]models.ScholarProfile, error) {
	var profiles []models.ScholarProfile
	err := r.db.WithContext(ctx).Preload("User").
		Where("approved = ?", true).
		Order("user_id").
		Find(&profiles).Error
	return profiles, err
}

// SetConnectedAccount links a processor account and resets the status flags
func (r *scholarRepository) SetConnectedAccount(ctx context.Context, userID uint, accountID string) error {
	return r.updateProfile(ctx, userID, map[string]interface{}{
		"stripe_account_id":          accountID,
		"stripe_onboarding_complete": false,
		"stripe_details_submitted":   false,
	})
}

// UpdateAccountFlags mirrors the processor's account status locally
func (r *scholarRepository) UpdateAccountFlags(ctx context.Context, userID uint, onboardingComplete, detailsSubmitted bool) error {
	return r.updateProfile(ctx, userID, map[string]interface{}{
		"stripe_onboarding_complete": onboardingComplete,
		"stripe_details_submitted":   detailsSubmitted,
	})
}

// ClearConnectedAccount removes a link whose remote account no longer exists
func (r *scholarRepository) ClearConnectedAccount(ctx context.Context, userID uint) error {
	return r.updateProfile(ctx, userID, map[string]interface{}{
		"stripe_account_id":          nil,
		"stripe_onboarding_complete": false,
		"stripe_details_submitted":   false,
	})
}

func (r *scholarRepository) updateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error {
	tx := r.db.WithContext(ctx).Model(&models.ScholarProfile{}).Where("user_id = ?", userID).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
