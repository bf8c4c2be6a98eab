package billingtest

import (
	"context"
	"sync"
	"time"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
)

// JournalStore keeps webhook deliveries in memory with the same uniqueness
// rule as billing_webhook_events.
type JournalStore struct {
	mu         sync.Mutex
	Deliveries []*models.WebhookDelivery
}

func (s *JournalStore) Insert(_ context.Context, d *models.WebhookDelivery) (*models.WebhookDelivery, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Deliveries {
		if e.Provider == d.Provider && e.ProviderEventID == d.ProviderEventID {
			cp := *e
			return &cp, false, nil
		}
	}
	d.ID = uint(len(s.Deliveries) + 1)
	d.CreatedAt = time.Now()
	cp := *d
	s.Deliveries = append(s.Deliveries, &cp)
	return d, true, nil
}

func (s *JournalStore) Finish(_ context.Context, id uint, processingError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Deliveries {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
		}
	}
	return nil
}

// Len returns the number of journaled deliveries.
func (s *JournalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Deliveries)
}

var _ billing.JournalStore = (*JournalStore)(nil)
