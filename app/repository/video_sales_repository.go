package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/UniClips/app/models"
	"gorm.io/gorm"
)

type videoSalesRepository struct {
	db *gorm.DB
}

// NewVideoSalesRepository creates a repository over legacy video purchases
func NewVideoSalesRepository(db *gorm.DB) VideoSalesRepository {
	return &videoSalesRepository{db: db}
}

// ScholarStats aggregates per-video sales of the scholar's videos
func (r *videoSalesRepository) ScholarStats(ctx context.Context, scholarID uint, since *time.Time) (models.SalesStats, error) {
	var stats models.SalesStats
	q := r.db.WithContext(ctx).
		Table("purchases AS p").
		Select("COUNT(*) AS count, COALESCE(SUM(p.amount), 0) AS revenue").
		Joins("JOIN videos v ON v.id = p.video_id").
		Where("v.scholar_user_id = ?", scholarID)
	if since != nil {
		q = q.Where("p.created_at >= ?", *since)
	}
	err := q.Scan(&stats).Error
	return stats, err
}

// HasPurchased reports whether the buyer bought the single video
func (r *videoSalesRepository) HasPurchased(ctx context.Context, buyerID, videoID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VideoPurchase{}).
		Where("buyer_user_id = ? AND video_id = ?", buyerID, videoID).
		Count(&count).Error
	return count > 0, err
}
