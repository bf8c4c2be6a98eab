package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/UniClips/app/models"
)

type gormJournalStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewJournalStore keeps webhook deliveries in billing_webhook_events.
func NewJournalStore(db *gorm.DB) JournalStore {
	return &gormJournalStore{db: db, now: time.Now}
}

func (s *gormJournalStore) Insert(ctx context.Context, d *models.WebhookDelivery) (*models.WebhookDelivery, bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(d)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return d, true, nil
	}

	var existing models.WebhookDelivery
	err := s.db.WithContext(ctx).
		Where(&models.WebhookDelivery{Provider: d.Provider, ProviderEventID: d.ProviderEventID}).
		Take(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (s *gormJournalStore) Finish(ctx context.Context, id uint, processingError string) error {
	processedAt := s.now().UTC()
	return s.db.WithContext(ctx).
		Model(&models.WebhookDelivery{ID: id}).
		Updates(map[string]interface{}{
			"processed_at":     processedAt,
			"processing_error": processingError,
		}).Error
}
