// Package connect manages the connected payout accounts of scholars.
package connect

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
)

var (
	ErrNotFound = errors.New("scholar profile not found")
	// ErrNotApproved rejects onboarding for scholars awaiting approval.
	ErrNotApproved = errors.New("scholar profile not found or not approved")
	ErrNoAccount   = errors.New("connected account not found")
)

type Options struct {
	FrontendURL string
	Country     string
	Currency    string
}

// OnboardingLink is where a scholar continues the processor onboarding.
type OnboardingLink struct {
	URL       string `json:"url"`
	AccountID string `json:"account_id"`
}

type Service struct {
	scholars   repository.ScholarRepository
	users      repository.UserRepository
	processor  billing.Processor
	capability billing.Capability
	source     statusSource
	opts       Options
}

// NewService picks the account status source once from capability. The
// processor key is read at startup only, so this matches resolving it on
// every request.
func NewService(repos *repository.Repositories, processor billing.Processor, capability billing.Capability, opts Options) *Service {
	s := &Service{
		scholars:   repos.Scholar,
		users:      repos.User,
		processor:  processor,
		capability: capability,
		opts:       opts,
	}
	if capability.Configured {
		s.source = liveSource{processor: processor, scholars: repos.Scholar}
	} else {
		s.source = cachedSource{country: opts.Country, currency: opts.Currency}
	}
	return s
}

// Capability reports whether live processor calls are made.
func (s *Service) Capability() billing.Capability {
	return s.capability
}

// CreateAccount links a new express account to an approved scholar, or
// reuses the linked one, and returns a fresh onboarding link.
func (s *Service) CreateAccount(ctx context.Context, scholarID uint) (*OnboardingLink, error) {
	if !s.capability.Configured {
		return nil, billing.ErrNotConfigured
	}
	profile, err := s.scholars.GetProfile(ctx, scholarID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !profile.Approved) {
		return nil, ErrNotApproved
	}
	if err != nil {
		return nil, fmt.Errorf("load scholar %d: %w", scholarID, err)
	}

	if accountID := profile.ConnectedAccountID(); accountID != "" {
		link, err := s.onboardingLink(ctx, accountID)
		if !errors.Is(err, billing.ErrAccountNotFound) {
			return link, err
		}
		log.Warnf("[Connect] Linked account %s of scholar %d is gone, creating a new one", accountID, scholarID)
		if err := s.scholars.ClearConnectedAccount(ctx, scholarID); err != nil {
			return nil, fmt.Errorf("clear connected account: %w", err)
		}
	}

	user, err := s.users.GetByID(ctx, scholarID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", scholarID, err)
	}
	accountID, err := s.processor.CreateConnectedAccount(ctx, billing.ConnectedAccountParams{
		ScholarID: scholarID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Country:   s.opts.Country,
	})
	if err != nil {
		return nil, err
	}
	if err := s.scholars.SetConnectedAccount(ctx, scholarID, accountID); err != nil {
		return nil, fmt.Errorf("store connected account: %w", err)
	}
	log.Infof("[Connect] Created connected account %s for scholar %d", accountID, scholarID)

	return s.onboardingLink(ctx, accountID)
}

func (s *Service) onboardingLink(ctx context.Context, accountID string) (*OnboardingLink, error) {
	base := strings.TrimRight(s.opts.FrontendURL, "/")
	url, err := s.processor.CreateOnboardingLink(ctx, accountID,
		base+"/scholar-dashboard?stripe=refresh",
		base+"/scholar-dashboard?stripe=success")
	if err != nil {
		return nil, err
	}
	return &OnboardingLink{URL: url, AccountID: accountID}, nil
}

// Status returns the scholar's account state. A scholar without a link is
// reported as not connected.
func (s *Service) Status(ctx context.Context, scholarID uint) (*AccountStatus, error) {
	profile, err := s.scholars.GetProfile(ctx, scholarID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load scholar %d: %w", scholarID, err)
	}
	return s.Resolve(ctx, profile)
}

// Resolve reports the status of an already loaded profile.
func (s *Service) Resolve(ctx context.Context, profile *models.ScholarProfile) (*AccountStatus, error) {
	if !profile.HasConnectedAccount() {
		return &AccountStatus{Source: s.sourceName(), ProcessorConfigured: s.capability.Configured}, nil
	}
	return s.source.resolve(ctx, profile)
}

func (s *Service) sourceName() string {
	if s.capability.Configured {
		return SourceLive
	}
	return SourceCached
}

// DashboardLink returns a login link to the processor dashboard.
func (s *Service) DashboardLink(ctx context.Context, scholarID uint) (string, error) {
	if !s.capability.Configured {
		return "", billing.ErrNotConfigured
	}
	profile, err := s.scholars.GetProfile(ctx, scholarID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoAccount
	}
	if err != nil {
		return "", fmt.Errorf("load scholar %d: %w", scholarID, err)
	}
	accountID := profile.ConnectedAccountID()
	if accountID == "" {
		return "", ErrNoAccount
	}
	url, err := s.processor.CreateDashboardLink(ctx, accountID)
	if errors.Is(err, billing.ErrAccountNotFound) {
		if clearErr := s.scholars.ClearConnectedAccount(ctx, scholarID); clearErr != nil {
			log.Errorf("[Connect] Could not clear missing account %s of scholar %d: %v", accountID, scholarID, clearErr)
		}
		return "", ErrNoAccount
	}
	return url, err
}
