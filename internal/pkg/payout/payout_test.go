package payout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
	"github.com/ManuelReschke/UniClips/app/repository/repositorytest"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing/billingtest"
)

func newTestService() (*Service, *repositorytest.Store, *billingtest.Processor) {
	store := repositorytest.NewStore()
	processor := billingtest.New()
	return NewService(store.Repositories(), processor, "eur"), store, processor
}

func TestTransfer_Completes(t *testing.T) {
	svc, store, processor := newTestService()

	p, err := svc.Transfer(context.Background(), TransferRequest{
		ScholarID:           3,
		Destination:         "acct_1",
		Amount:              420,
		SourceTransactionID: "pi_1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, p.Status)
	assert.NotEmpty(t, p.StripeTransferID)

	require.Len(t, processor.Transfers, 1)
	assert.Equal(t, "pi_1", processor.Transfers[0].TransferGroup)
	assert.Equal(t, "transfer-pi_1", processor.Transfers[0].IdempotencyKey)
	assert.Equal(t, "eur", processor.Transfers[0].Currency)

	rows := store.AllPayouts()
	require.Len(t, rows, 1)
	assert.Equal(t, models.PayoutStatusCompleted, rows[0].Status)
	assert.Equal(t, "pi_1", *rows[0].SourceTransactionID)
}

func TestTransfer_AtMostOncePerSourceTransaction(t *testing.T) {
	svc, store, processor := newTestService()
	req := TransferRequest{ScholarID: 3, Destination: "acct_1", Amount: 420, SourceTransactionID: "pi_1"}

	_, err := svc.Transfer(context.Background(), req)
	require.NoError(t, err)

	existing, err := svc.Transfer(context.Background(), req)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	require.NotNil(t, existing)
	assert.Equal(t, models.PayoutStatusCompleted, existing.Status)

	assert.Equal(t, 1, processor.TransferCount())
	assert.Len(t, store.AllPayouts(), 1)
}

func TestTransfer_FailureMarksRowFailed(t *testing.T) {
	svc, store, processor := newTestService()
	processor.TransferErr = errors.New("insufficient platform balance")

	p, err := svc.Transfer(context.Background(), TransferRequest{ScholarID: 3, Destination: "acct_1", Amount: 420, SourceTransactionID: "pi_9"})
	assert.ErrorIs(t, err, ErrTransferFailed)
	require.NotNil(t, p)
	assert.Equal(t, models.PayoutStatusFailed, p.Status)

	rows := store.AllPayouts()
	require.Len(t, rows, 1)
	assert.Equal(t, models.PayoutStatusFailed, rows[0].Status)
	assert.Contains(t, rows[0].FailureReason, "insufficient platform balance")

	failed, err := svc.List(context.Background(), repository.PayoutFilter{Status: models.PayoutStatusFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestTransfer_Validation(t *testing.T) {
	svc, _, processor := newTestService()

	_, err := svc.Transfer(context.Background(), TransferRequest{ScholarID: 3, Destination: "acct_1", Amount: 0})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Transfer(context.Background(), TransferRequest{ScholarID: 3, Amount: 10})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, processor.TransferCount())
}

func TestManual(t *testing.T) {
	svc, store, processor := newTestService()
	store.AddScholar(3, "acct_1", true)

	p, err := svc.Manual(context.Background(), ManualRequest{ScholarID: 3, Amount: "25.50"})
	require.NoError(t, err)
	assert.Equal(t, int64(2550), p.Amount)
	assert.Nil(t, p.SourceTransactionID)
	assert.Equal(t, "Payout from UniClips", processor.Transfers[0].Description)
	assert.Equal(t, "payout-1", processor.Transfers[0].IdempotencyKey)
}

func TestManual_Preconditions(t *testing.T) {
	svc, store, processor := newTestService()

	_, err := svc.Manual(context.Background(), ManualRequest{ScholarID: 3, Amount: "ten"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Manual(context.Background(), ManualRequest{ScholarID: 3, Amount: "10"})
	assert.ErrorIs(t, err, ErrNotFound)

	store.AddScholar(3, "acct_1", false)
	_, err = svc.Manual(context.Background(), ManualRequest{ScholarID: 3, Amount: "10"})
	assert.ErrorIs(t, err, ErrNotOnboarded)

	store.AddScholar(4, "", true)
	_, err = svc.Manual(context.Background(), ManualRequest{ScholarID: 4, Amount: "10"})
	assert.ErrorIs(t, err, ErrNotOnboarded)

	assert.Zero(t, processor.TransferCount())
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.List(context.Background(), repository.PayoutFilter{Status: "exploded"})
	assert.ErrorIs(t, err, ErrValidation)
}
