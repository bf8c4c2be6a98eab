package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/ManuelReschke/UniClips/internal/pkg/config"
)

// StripeProcessor implements Processor with stripe-go.
type StripeProcessor struct {
	api           *client.API
	capability    Capability
	webhookSecret string
}

// NewStripeProcessor creates a processor from config. With an unusable key
// the processor is still returned and answers ErrNotConfigured.
func NewStripeProcessor(cfg config.StripeConfig) *StripeProcessor {
	p := &StripeProcessor{
		capability:    ResolveCapability(cfg.SecretKey),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
	}
	if p.capability.Configured {
		p.api = client.New(cfg.SecretKey, nil)
	}
	return p
}

// Capability returns whether the processor can make live calls.
func (p *StripeProcessor) Capability() Capability {
	return p.capability
}

func (p *StripeProcessor) ready() error {
	if !p.capability.Configured || p.api == nil {
		return ErrNotConfigured
	}
	return nil
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, in CheckoutSessionParams) (*CheckoutSession, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(in.Currency),
					UnitAmount: stripe.Int64(in.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(in.ProductName),
						Description: stringOrNil(in.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stringOrNil(in.ClientReference),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: in.Metadata,
		},
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, callError(err, "create checkout session")
	}
	return sessionFromStripe(s), nil
}

func (p *StripeProcessor) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, callError(err, "retrieve checkout session %s", id)
	}
	return sessionFromStripe(s), nil
}

func (p *StripeProcessor) CreateConnectedAccount(ctx context.Context, in ConnectedAccountParams) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}
	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Country:      stripe.String(in.Country),
		Email:        stringOrNil(in.Email),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	params.AddMetadata("scholar_id", fmt.Sprintf("%d", in.ScholarID))
	params.SetIdempotencyKey(fmt.Sprintf("connect-account-%d", in.ScholarID))

	acct, err := p.api.Accounts.New(params)
	if err != nil {
		return "", callError(err, "create connected account")
	}
	return acct.ID, nil
}

func (p *StripeProcessor) GetConnectedAccount(ctx context.Context, id string) (*ConnectedAccount, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := p.api.Accounts.GetByID(id, params)
	if err != nil {
		if isMissingAccount(err) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
		}
		return nil, callError(err, "retrieve connected account %s", id)
	}
	return &ConnectedAccount{
		ID:               acct.ID,
		DetailsSubmitted: acct.DetailsSubmitted,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		Country:          acct.Country,
		DefaultCurrency:  string(acct.DefaultCurrency),
	}, nil
}

func (p *StripeProcessor) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx
	link, err := p.api.AccountLinks.New(params)
	if err != nil {
		if isMissingAccount(err) {
			return "", fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return "", callError(err, "create onboarding link")
	}
	return link.URL, nil
}

func (p *StripeProcessor) CreateDashboardLink(ctx context.Context, accountID string) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}
	params := &stripe.LoginLinkParams{Account: stripe.String(accountID)}
	params.Context = ctx
	link, err := p.api.LoginLinks.New(params)
	if err != nil {
		if isMissingAccount(err) {
			return "", fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return "", callError(err, "create dashboard link")
	}
	return link.URL, nil
}

func (p *StripeProcessor) CreateTransfer(ctx context.Context, in TransferParams) (*Transfer, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(in.Amount),
		Currency:      stripe.String(in.Currency),
		Destination:   stripe.String(in.Destination),
		Description:   stringOrNil(in.Description),
		TransferGroup: stringOrNil(in.TransferGroup),
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	t, err := p.api.Transfers.New(params)
	if err != nil {
		return nil, callError(err, "create transfer")
	}
	out := &Transfer{ID: t.ID, Amount: t.Amount, Currency: string(t.Currency)}
	if t.Destination != nil {
		out.Destination = t.Destination.ID
	}
	return out, nil
}

// ParseWebhookEvent verifies the Stripe-Signature header and decodes the
// checkout session carried by checkout events.
func (p *StripeProcessor) ParseWebhookEvent(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	return parseStripeWebhook(payload, signatureHeader, p.webhookSecret)
}

func parseStripeWebhook(payload []byte, signatureHeader, secret string) (*WebhookEvent, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET is empty", ErrNotConfigured)
	}
	event, err := webhook.ConstructEvent(payload, signatureHeader, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && event.Data != nil {
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = sessionFromStripe(&s)
	}
	return out, nil
}

func sessionFromStripe(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

// callError wraps a failed API call. Failures to reach Stripe and errors on
// Stripe's side also match ErrUnavailable.
func callError(err error, format string, args ...interface{}) error {
	op := fmt.Sprintf(format, args...)
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Type == stripe.ErrorTypeAPI || stripeErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isMissingAccount(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripe.ErrorCodeResourceMissing ||
		stripeErr.Code == stripe.ErrorCodeAccountInvalid ||
		stripeErr.HTTPStatusCode == http.StatusNotFound
}

func stringOrNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return stripe.String(s)
}
