// Package settlement turns a confirmed payment into exactly one purchase
// record and at most one transfer of the creator share.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/checkout"
	"github.com/ManuelReschke/UniClips/internal/pkg/fees"
	"github.com/ManuelReschke/UniClips/internal/pkg/payout"
)

var (
	ErrValidation = checkout.ErrValidation
	ErrNotPaid    = errors.New("checkout session is not paid")
	ErrForbidden  = errors.New("checkout session belongs to another buyer")
)

type State string

const (
	StateInitiated         State = "initiated"
	StatePaymentConfirmed  State = "payment_confirmed"
	StateTransferAttempted State = "transfer_attempted"
	StateSettled           State = "settled"
	StateTransferFailed    State = "transfer_failed"
)

// Confirmation is a payment the processor reported as captured.
type Confirmation struct {
	TransactionRef string
	Metadata       map[string]string
	AmountTotal    int64
	Currency       string
}

type Result struct {
	State           State            `json:"state"`
	Duplicate       bool             `json:"duplicate"`
	Renewed         bool             `json:"renewed"`
	TransferSkipped bool             `json:"transfer_skipped"`
	Purchase        *models.Purchase `json:"purchase,omitempty"`
	Payout          *models.Payout   `json:"payout,omitempty"`
}

type Options struct {
	// AccessDuration is the access window per charge; zero grants lifetime access.
	AccessDuration time.Duration
}

type Service struct {
	purchases repository.PurchaseRepository
	scholars  repository.ScholarRepository
	payouts   *payout.Service
	processor billing.Processor
	opts      Options
	now       func() time.Time
}

func NewService(repos *repository.Repositories, payouts *payout.Service, processor billing.Processor, opts Options) *Service {
	return &Service{
		purchases: repos.Purchase,
		scholars:  repos.Scholar,
		payouts:   payouts,
		processor: processor,
		opts:      opts,
		now:       time.Now,
	}
}

// Confirm settles a captured payment. Replays of the same payment, or a
// payment for a bundle the buyer already holds, return Duplicate without
// side effects. Transfer failures do not fail the call.
func (s *Service) Confirm(ctx context.Context, c Confirmation) (*Result, error) {
	ref := strings.TrimSpace(c.TransactionRef)
	if ref == "" {
		return nil, fmt.Errorf("%w: transaction reference is required", ErrValidation)
	}
	meta, err := checkout.ParseMetadata(c.Metadata)
	if err != nil {
		return nil, err
	}

	res := &Result{State: StateInitiated}

	if existing, err := s.purchases.GetByCharge(ctx, ref); err == nil {
		return s.duplicate(ctx, res, existing, ref), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup transaction %s: %w", ref, err)
	}

	now := s.now()
	charge := s.chargeFrom(c, meta, ref, now)

	row, err := s.purchases.GetByTriple(ctx, meta.BuyerID, meta.SubjectID, meta.ScholarID)
	switch {
	case err == nil && row.IsActiveAt(now):
		log.Warnf("[Settlement] Payment %s for bundle buyer=%d subject=%d scholar=%d that is already active; needs refund review",
			ref, meta.BuyerID, meta.SubjectID, meta.ScholarID)
		return s.duplicate(ctx, res, row, ref), nil
	case err == nil:
		row.Renew(*charge, now)
		if err := s.purchases.Renew(ctx, row, now); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if current, lookupErr := s.purchases.GetByTriple(ctx, meta.BuyerID, meta.SubjectID, meta.ScholarID); lookupErr == nil {
					row = current
				}
				return s.duplicate(ctx, res, row, ref), nil
			}
			return nil, fmt.Errorf("renew purchase: %w", err)
		}
		res.Renewed = true
		res.Purchase = row
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.purchases.Create(ctx, charge); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("record purchase: %w", err)
			}
			winner, lookupErr := s.purchases.GetByTriple(ctx, meta.BuyerID, meta.SubjectID, meta.ScholarID)
			if lookupErr != nil {
				return nil, fmt.Errorf("lookup purchase after insert race: %w", lookupErr)
			}
			return s.duplicate(ctx, res, winner, ref), nil
		}
		res.Purchase = charge
	default:
		return nil, fmt.Errorf("lookup purchase: %w", err)
	}
	res.State = StatePaymentConfirmed
	log.Infof("[Settlement] Payment %s recorded: buyer=%d subject=%d scholar=%d amount=%d creator=%d renewed=%v",
		ref, meta.BuyerID, meta.SubjectID, meta.ScholarID, charge.Amount, charge.CreatorAmount, res.Renewed)

	s.transferCreatorShare(ctx, res, meta, charge, ref)
	return res, nil
}

func (s *Service) chargeFrom(c Confirmation, meta checkout.Metadata, ref string, now time.Time) *models.Purchase {
	amount := meta.Amount
	creator := meta.CreatorAmount
	if c.AmountTotal > 0 && c.AmountTotal != meta.Amount {
		// The captured total wins; the fee percentage fixed at checkout stays.
		amount = c.AmountTotal
		creator = fees.Split{PlatformPercent: meta.PlatformFeePercent, CreatorPercent: 100 - meta.PlatformFeePercent}.Apply(amount).Creator
	}
	currency := strings.ToLower(strings.TrimSpace(c.Currency))
	if currency == "" {
		currency = meta.Currency
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}

	p := &models.Purchase{
		BuyerUserID:        meta.BuyerID,
		SubjectID:          meta.SubjectID,
		ScholarID:          meta.ScholarID,
		Amount:             amount,
		Currency:           currency,
		TransactionID:      &ref,
		PlatformFeePercent: meta.PlatformFeePercent,
		CreatorAmount:      creator,
		LifetimeAmount:     amount,
		LifetimeCreator:    creator,
		Active:             true,
	}
	if s.opts.AccessDuration > 0 {
		expires := now.Add(s.opts.AccessDuration)
		p.ExpiresAt = &expires
	}
	return p
}

// transferCreatorShare pays the creator when a connected account is linked.
// The current profile link is authoritative; the account captured at checkout
// is only used when the profile cannot be read.
func (s *Service) transferCreatorShare(ctx context.Context, res *Result, meta checkout.Metadata, charge *models.Purchase, ref string) {
	destination := meta.CreatorAccount
	if profile, err := s.scholars.GetProfile(ctx, meta.ScholarID); err == nil {
		destination = profile.ConnectedAccountID()
	} else {
		log.Warnf("[Settlement] Could not load scholar %d for payment %s, using checkout account %q: %v",
			meta.ScholarID, ref, destination, err)
	}

	if destination == "" || charge.CreatorAmount <= 0 {
		res.State = StateSettled
		res.TransferSkipped = true
		log.Infof("[Settlement] Payment %s: no transfer, creator share %d stays pending for scholar %d",
			ref, charge.CreatorAmount, meta.ScholarID)
		return
	}

	res.State = StateTransferAttempted
	p, err := s.payouts.Transfer(ctx, payout.TransferRequest{
		ScholarID:           meta.ScholarID,
		Destination:         destination,
		Amount:              charge.CreatorAmount,
		Currency:            charge.Currency,
		Description:         fmt.Sprintf("Bundle sale subject %d", meta.SubjectID),
		SourceTransactionID: ref,
	})
	res.Payout = p
	switch {
	case err == nil:
		res.State = StateSettled
	case errors.Is(err, payout.ErrAlreadyClaimed):
		res.State = stateFromPayout(p)
	default:
		res.State = StateTransferFailed
		log.Errorf("[Settlement] Payment %s settled but creator transfer failed: %v", ref, err)
	}
}

func (s *Service) duplicate(ctx context.Context, res *Result, p *models.Purchase, ref string) *Result {
	res.Duplicate = true
	res.Purchase = p
	res.State = StateSettled
	if existing, err := s.payouts.PayoutFor(ctx, ref); err == nil {
		res.Payout = existing
		res.State = stateFromPayout(existing)
	}
	return res
}

func stateFromPayout(p *models.Payout) State {
	if p != nil && p.Status == models.PayoutStatusFailed {
		return StateTransferFailed
	}
	return StateSettled
}

// ConfirmCheckoutSession settles the session a buyer returned from. The
// session is read from the processor, so client input never sets amounts.
func (s *Service) ConfirmCheckoutSession(ctx context.Context, sessionID string, buyerID uint) (*Result, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrValidation)
	}
	sess, err := s.processor.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	meta, err := checkout.ParseMetadata(sess.Metadata)
	if err != nil {
		return nil, err
	}
	if meta.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	if !sess.Paid() {
		return nil, ErrNotPaid
	}
	return s.Confirm(ctx, confirmationFrom(sess))
}

// HandleWebhookEvent settles paid checkout events and ignores the rest. The
// boolean reports whether the event was relevant.
func (s *Service) HandleWebhookEvent(ctx context.Context, ev *billing.WebhookEvent) (*Result, bool, error) {
	if ev == nil || !ev.IsCheckoutPaid() {
		return nil, false, nil
	}
	res, err := s.Confirm(ctx, confirmationFrom(ev.Session))
	return res, true, err
}

func confirmationFrom(sess *billing.CheckoutSession) Confirmation {
	return Confirmation{
		TransactionRef: sess.TransactionRef(),
		Metadata:       sess.Metadata,
		AmountTotal:    sess.AmountTotal,
		Currency:       sess.Currency,
	}
}
