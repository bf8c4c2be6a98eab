// Package checkout prices a bundle, fixes the fee split for it and opens a
// hosted payment session with the processor.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
	"github.com/ManuelReschke/UniClips/internal/pkg/fees"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrAlreadyPurchased = errors.New("bundle already purchased")
	ErrNotFound         = errors.New("not found")
)

// recentSessionTTL bounds how long a repeated checkout request for the same
// bundle gets the already opened session back.
const recentSessionTTL = 10 * time.Minute

type Request struct {
	BuyerID   uint
	SubjectID uint
	ScholarID uint
}

type Session struct {
	ID                 string `json:"session_id"`
	URL                string `json:"url"`
	Amount             int64  `json:"amount"`
	CreatorAmount      int64  `json:"creator_amount"`
	PlatformAmount     int64  `json:"platform_amount"`
	PlatformFeePercent int    `json:"platform_fee_percent"`
	Currency           string `json:"currency"`
	Reused             bool   `json:"reused,omitempty"`
}

// RecentSessions remembers open sessions per bundle so double submits do not
// open a second payment. The redis cache satisfies it.
type RecentSessions interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type Options struct {
	Currency     string
	DefaultPrice int64
	FrontendURL  string
}

type Service struct {
	purchases repository.PurchaseRepository
	scholars  repository.ScholarRepository
	catalog   repository.CatalogRepository
	processor billing.Processor
	recent    RecentSessions
	opts      Options
	now       func() time.Time
}

func NewService(repos *repository.Repositories, processor billing.Processor, recent RecentSessions, opts Options) *Service {
	return &Service{
		purchases: repos.Purchase,
		scholars:  repos.Scholar,
		catalog:   repos.Catalog,
		processor: processor,
		recent:    recent,
		opts:      opts,
		now:       time.Now,
	}
}

// Start opens a checkout session for one bundle. The split is computed from
// the bundle's sales count at this moment and travels with the session.
func (s *Service) Start(ctx context.Context, req Request) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	active, err := s.purchases.HasActiveBundle(ctx, req.BuyerID, req.SubjectID, req.ScholarID, s.now())
	if err != nil {
		return nil, fmt.Errorf("check existing purchase: %w", err)
	}
	if active {
		return nil, ErrAlreadyPurchased
	}

	if cached := s.lookupRecent(ctx, req); cached != nil {
		return cached, nil
	}

	bundle, err := s.catalog.ResolveBundle(ctx, req.SubjectID, req.ScholarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: subject %d", ErrNotFound, req.SubjectID)
		}
		return nil, fmt.Errorf("resolve bundle: %w", err)
	}

	profile, err := s.scholars.GetProfile(ctx, req.ScholarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: scholar %d", ErrNotFound, req.ScholarID)
		}
		return nil, fmt.Errorf("load scholar: %w", err)
	}
	if !profile.Approved {
		return nil, fmt.Errorf("%w: scholar %d is not approved", ErrNotFound, req.ScholarID)
	}

	price := s.opts.DefaultPrice
	if bundle.Price != nil && *bundle.Price > 0 {
		price = *bundle.Price
	}

	prior, err := s.purchases.CountSales(ctx, req.SubjectID, req.ScholarID)
	if err != nil {
		return nil, fmt.Errorf("count sales: %w", err)
	}
	amounts := fees.ForPriorSales(prior).Apply(price)

	meta := Metadata{
		BuyerID:            req.BuyerID,
		SubjectID:          req.SubjectID,
		ScholarID:          req.ScholarID,
		PlatformFeePercent: amounts.PlatformPercent,
		CreatorAmount:      amounts.Creator,
		Amount:             amounts.Total,
		Currency:           s.opts.Currency,
		CreatorAccount:     profile.ConnectedAccountID(),
		Type:               models.PurchaseTypeSubjectBundle,
	}

	cs, err := s.processor.CreateCheckoutSession(ctx, billing.CheckoutSessionParams{
		Amount:          amounts.Total,
		Currency:        s.opts.Currency,
		ProductName:     fmt.Sprintf("%s - Complete Course Bundle", bundle.SubjectName),
		Description:     fmt.Sprintf("Access to all videos by %s", profile.User.FullName()),
		SuccessURL:      s.opts.FrontendURL + "/purchase/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       fmt.Sprintf("%s/subjects/%d?scholar=%d&checkout=canceled", s.opts.FrontendURL, req.SubjectID, req.ScholarID),
		ClientReference: fmt.Sprintf("%d", req.BuyerID),
		Metadata:        meta.Encode(),
		IdempotencyKey:  "checkout-" + uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	out := &Session{
		ID:                 cs.ID,
		URL:                cs.URL,
		Amount:             amounts.Total,
		CreatorAmount:      amounts.Creator,
		PlatformAmount:     amounts.Platform,
		PlatformFeePercent: amounts.PlatformPercent,
		Currency:           s.opts.Currency,
	}
	s.rememberRecent(ctx, req, out)

	log.Infof("[Checkout] Session %s opened: buyer=%d subject=%d scholar=%d amount=%d creator=%d prior_sales=%d",
		cs.ID, req.BuyerID, req.SubjectID, req.ScholarID, amounts.Total, amounts.Creator, prior)
	return out, nil
}

func (r Request) validate() error {
	switch {
	case r.BuyerID == 0:
		return fmt.Errorf("%w: buyer_id is required", ErrValidation)
	case r.SubjectID == 0:
		return fmt.Errorf("%w: subject_id is required", ErrValidation)
	case r.ScholarID == 0:
		return fmt.Errorf("%w: scholar_id is required", ErrValidation)
	case r.BuyerID == r.ScholarID:
		return fmt.Errorf("%w: scholar_id must differ from buyer", ErrValidation)
	}
	return nil
}

func recentKey(req Request) string {
	return fmt.Sprintf("checkout:recent:%d:%d:%d", req.BuyerID, req.SubjectID, req.ScholarID)
}

func (s *Service) lookupRecent(ctx context.Context, req Request) *Session {
	if s.recent == nil {
		return nil
	}
	raw, err := s.recent.Get(ctx, recentKey(req))
	if err != nil || raw == "" {
		return nil
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil
	}
	sess.Reused = true
	return &sess
}

// rememberRecent is best effort; a cache outage only loses the double
// submit guard.
func (s *Service) rememberRecent(ctx context.Context, req Request, sess *Session) {
	if s.recent == nil {
		return
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return
	}
	if err := s.recent.Set(ctx, recentKey(req), string(raw), recentSessionTTL); err != nil {
		log.Warnf("[Checkout] Could not cache session %s: %v", sess.ID, err)
	}
}
