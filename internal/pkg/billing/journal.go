package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ManuelReschke/UniClips/app/models"
)

// JournalStore persists webhook deliveries.
type JournalStore interface {
	// Insert stores the delivery unless (provider, event id) exists. It
	// returns the stored row and whether it was new.
	Insert(ctx context.Context, d *models.WebhookDelivery) (*models.WebhookDelivery, bool, error)
	Finish(ctx context.Context, id uint, processingError string) error
}

// Receipt is the journal's answer for one delivery.
type Receipt struct {
	DeliveryID uint
	EventID    string
	// Redelivery is set when the event was journaled before.
	Redelivery bool
	// Done is set when an earlier delivery was already processed without
	// error; the caller acknowledges without processing again.
	Done bool
}

// Journal records verified processor events so that redelivered events are
// settled at most once. Deliveries that failed are handed out again.
type Journal struct {
	provider string
	store    JournalStore
}

func NewJournal(provider string, store JournalStore) *Journal {
	return &Journal{provider: provider, store: store}
}

// Open journals a verified event. Events without an id are keyed by the
// hash of their payload.
func (j *Journal) Open(ctx context.Context, ev *WebhookEvent, payload []byte) (*Receipt, error) {
	if ev == nil {
		return nil, errors.New("webhook event is required")
	}
	eventID := ev.ID
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	d := &models.WebhookDelivery{
		Provider:        j.provider,
		ProviderEventID: eventID,
		EventType:       ev.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	}
	if ev.Session != nil {
		d.ObjectRef = ev.Session.ID
	}

	stored, created, err := j.store.Insert(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("journal event %s: %w", eventID, err)
	}
	return &Receipt{
		DeliveryID: stored.ID,
		EventID:    eventID,
		Redelivery: !created,
		Done:       !created && stored.Settled(),
	}, nil
}

// Close stores the outcome of processing. A non-nil outcome leaves the event
// open for the next delivery.
func (j *Journal) Close(ctx context.Context, r *Receipt, outcome error) error {
	if r == nil || r.DeliveryID == 0 {
		return errors.New("receipt has no delivery")
	}
	msg := ""
	if outcome != nil {
		msg = outcome.Error()
	}
	return j.store.Finish(ctx, r.DeliveryID, msg)
}
