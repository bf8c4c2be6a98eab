package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/UniClips/app/models"
	"gorm.io/gorm"
)

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository instance
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// ResolveBundle loads the subject and the scholar's price override for it
func (r *catalogRepository) ResolveBundle(ctx context.Context, subjectID, scholarID uint) (*Bundle, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		return nil, err
	}

	bundle := &Bundle{
		SubjectID:   subject.ID,
		ScholarID:   scholarID,
		SubjectName: subject.Name,
		Price:       subject.BundlePrice,
	}

	var link models.ScholarSubject
	err := r.db.WithContext(ctx).
		Where("scholar_user_id = ? AND subject_id = ?", scholarID, subjectID).
		First(&link).Error
	switch {
	case err == nil:
		if link.BundlePrice != nil {
			bundle.Price = link.BundlePrice
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}
	return bundle, nil
}

// GetVideo retrieves a video by its ID
func (r *catalogRepository) GetVideo(ctx context.Context, id uint) (*models.Video, error) {
	var v models.Video
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}
