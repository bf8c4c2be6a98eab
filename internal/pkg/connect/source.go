package connect

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
)

const (
	SourceLive   = "live"
	SourceCached = "cached"
)

// AccountStatus is the connected-account state of one scholar.
type AccountStatus struct {
	Connected           bool   `json:"connected"`
	AccountID           string `json:"account_id,omitempty"`
	OnboardingComplete  bool   `json:"onboarding_complete"`
	DetailsSubmitted    bool   `json:"details_submitted"`
	ChargesEnabled      bool   `json:"charges_enabled"`
	PayoutsEnabled      bool   `json:"payouts_enabled"`
	Country             string `json:"country,omitempty"`
	Currency            string `json:"currency,omitempty"`
	Source              string `json:"source"`
	ProcessorConfigured bool   `json:"processor_configured"`
	// Cleared is set when the processor no longer knew the linked account
	// and the local link was removed.
	Cleared bool `json:"cleared,omitempty"`
}

// statusSource resolves the status of a profile that has a linked account.
type statusSource interface {
	resolve(ctx context.Context, profile *models.ScholarProfile) (*AccountStatus, error)
}

// liveSource asks the processor and mirrors the answer into the profile.
type liveSource struct {
	processor billing.Processor
	scholars  repository.ScholarRepository
}

func (s liveSource) resolve(ctx context.Context, profile *models.ScholarProfile) (*AccountStatus, error) {
	accountID := profile.ConnectedAccountID()
	account, err := s.processor.GetConnectedAccount(ctx, accountID)
	if errors.Is(err, billing.ErrAccountNotFound) {
		log.Warnf("[Connect] Account %s of scholar %d no longer exists, clearing link", accountID, profile.UserID)
		if clearErr := s.scholars.ClearConnectedAccount(ctx, profile.UserID); clearErr != nil {
			return nil, fmt.Errorf("clear connected account: %w", clearErr)
		}
		profile.StripeAccountID = nil
		profile.StripeOnboardingComplete = false
		profile.StripeDetailsSubmitted = false
		return &AccountStatus{Source: SourceLive, ProcessorConfigured: true, Cleared: true}, nil
	}
	if err != nil {
		return nil, err
	}

	complete := account.OnboardingComplete()
	if err := s.scholars.UpdateAccountFlags(ctx, profile.UserID, complete, account.DetailsSubmitted); err != nil {
		log.Warnf("[Connect] Could not mirror account flags for scholar %d: %v", profile.UserID, err)
	} else {
		profile.StripeOnboardingComplete = complete
		profile.StripeDetailsSubmitted = account.DetailsSubmitted
	}

	return &AccountStatus{
		Connected:           true,
		AccountID:           account.ID,
		OnboardingComplete:  complete,
		DetailsSubmitted:    account.DetailsSubmitted,
		ChargesEnabled:      account.ChargesEnabled,
		PayoutsEnabled:      account.PayoutsEnabled,
		Country:             account.Country,
		Currency:            account.DefaultCurrency,
		Source:              SourceLive,
		ProcessorConfigured: true,
	}, nil
}

// cachedSource reports the last mirrored flags without calling out.
type cachedSource struct {
	country  string
	currency string
}

func (s cachedSource) resolve(_ context.Context, profile *models.ScholarProfile) (*AccountStatus, error) {
	return &AccountStatus{
		Connected:          true,
		AccountID:          profile.ConnectedAccountID(),
		OnboardingComplete: profile.StripeOnboardingComplete,
		DetailsSubmitted:   profile.StripeDetailsSubmitted,
		Country:            s.country,
		Currency:           s.currency,
		Source:             SourceCached,
	}, nil
}
