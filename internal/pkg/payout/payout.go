// Package payout moves creator money to connected accounts and keeps the
// payout ledger in step with the processor.
package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/money"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("scholar not found")
	// ErrNotOnboarded rejects manual payouts to scholars without a finished
	// connected account.
	ErrNotOnboarded = errors.New("scholar has not completed processor onboarding")
	// ErrAlreadyClaimed means a transfer for the source transaction exists.
	ErrAlreadyClaimed = errors.New("payout already claimed for transaction")
	// ErrTransferFailed wraps processor errors; the payout row is marked failed.
	ErrTransferFailed = errors.New("transfer failed")
)

const defaultDescription = "Payout from UniClips"

type TransferRequest struct {
	ScholarID   uint
	Destination string
	Amount      int64
	Currency    string
	Description string
	// SourceTransactionID ties an automatic transfer to the payment that
	// funded it. Empty for manual payouts.
	SourceTransactionID string
}

type ManualRequest struct {
	ScholarID   uint
	Amount      string
	Currency    string
	Description string
}

type Service struct {
	payouts   repository.PayoutRepository
	scholars  repository.ScholarRepository
	processor billing.Processor
	currency  string
}

func NewService(repos *repository.Repositories, processor billing.Processor, currency string) *Service {
	return &Service{
		payouts:   repos.Payout,
		scholars:  repos.Scholar,
		processor: processor,
		currency:  currency,
	}
}

// Transfer records a pending payout, asks the processor to move the money and
// settles the row as completed or failed. A payout row is returned whenever
// one was written, also together with ErrTransferFailed.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*models.Payout, error) {
	if req.ScholarID == 0 {
		return nil, fmt.Errorf("%w: scholar_id is required", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if strings.TrimSpace(req.Destination) == "" {
		return nil, fmt.Errorf("%w: destination account is required", ErrValidation)
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultDescription
	}

	p := &models.Payout{
		ScholarUserID: req.ScholarID,
		Amount:        req.Amount,
		Currency:      currency,
		Status:        models.PayoutStatusPending,
		Description:   description,
	}
	if req.SourceTransactionID != "" {
		ref := req.SourceTransactionID
		p.SourceTransactionID = &ref
	}

	if err := s.payouts.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, lookupErr := s.payouts.GetBySourceTransaction(ctx, req.SourceTransactionID)
			if lookupErr != nil {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyClaimed, req.SourceTransactionID)
			}
			return existing, fmt.Errorf("%w: %s", ErrAlreadyClaimed, req.SourceTransactionID)
		}
		return nil, fmt.Errorf("record payout: %w", err)
	}

	params := billing.TransferParams{
		Amount:      req.Amount,
		Currency:    currency,
		Destination: req.Destination,
		Description: description,
		Metadata: map[string]string{
			"scholar_id": fmt.Sprintf("%d", req.ScholarID),
			"payout_id":  fmt.Sprintf("%d", p.ID),
		},
		IdempotencyKey: fmt.Sprintf("payout-%d", p.ID),
	}
	if req.SourceTransactionID != "" {
		params.TransferGroup = req.SourceTransactionID
		params.IdempotencyKey = "transfer-" + req.SourceTransactionID
	}

	transfer, err := s.processor.CreateTransfer(ctx, params)
	if err != nil {
		p.Status = models.PayoutStatusFailed
		p.FailureReason = err.Error()
		if _, updErr := s.payouts.UpdateStatus(ctx, p.ID, p.Status, "", p.FailureReason); updErr != nil {
			log.Errorf("[Payout] Could not mark payout %d failed: %v", p.ID, updErr)
		}
		log.Errorf("[Payout] Transfer of %d %s to scholar %d (%s) failed: %v",
			req.Amount, currency, req.ScholarID, req.Destination, err)
		return p, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	p.Status = models.PayoutStatusCompleted
	p.StripeTransferID = transfer.ID
	if _, err := s.payouts.UpdateStatus(ctx, p.ID, p.Status, transfer.ID, ""); err != nil {
		// The money moved; the row stays pending and is visible to operators.
		log.Errorf("[Payout] Transfer %s succeeded but payout %d could not be completed: %v", transfer.ID, p.ID, err)
		return p, fmt.Errorf("complete payout %d: %w", p.ID, err)
	}
	log.Infof("[Payout] Transfer %s: %d %s to scholar %d", transfer.ID, req.Amount, currency, req.ScholarID)
	return p, nil
}

// Manual pays a scholar an admin-chosen amount given in major units.
func (s *Service) Manual(ctx context.Context, req ManualRequest) (*models.Payout, error) {
	if req.ScholarID == 0 {
		return nil, fmt.Errorf("%w: scholar_id is required", ErrValidation)
	}
	amount, err := money.ParsePositiveMinor(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", ErrValidation, err)
	}

	profile, err := s.scholars.GetProfile(ctx, req.ScholarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, req.ScholarID)
		}
		return nil, fmt.Errorf("load scholar: %w", err)
	}
	if !profile.HasConnectedAccount() || !profile.StripeOnboardingComplete {
		return nil, ErrNotOnboarded
	}

	return s.Transfer(ctx, TransferRequest{
		ScholarID:   req.ScholarID,
		Destination: profile.ConnectedAccountID(),
		Amount:      amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
}

// PayoutFor returns the automatic payout funded by a transaction.
func (s *Service) PayoutFor(ctx context.Context, transactionID string) (*models.Payout, error) {
	return s.payouts.GetBySourceTransaction(ctx, transactionID)
}

// List returns the payout ledger, newest first.
func (s *Service) List(ctx context.Context, filter repository.PayoutFilter) ([]models.Payout, error) {
	switch filter.Status {
	case "", models.PayoutStatusPending, models.PayoutStatusCompleted, models.PayoutStatusFailed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	return s.payouts.List(ctx, filter)
}
