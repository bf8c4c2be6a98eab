// Package billingtest provides an in-memory billing.Processor for tests.
package billingtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuelReschke/UniClips/internal/pkg/billing"
)

// Processor records every call and serves canned answers. Set the *Err
// fields to make the corresponding call fail.
type Processor struct {
	mu sync.Mutex

	Sessions  map[string]*billing.CheckoutSession
	Accounts  map[string]*billing.ConnectedAccount
	Transfers []billing.TransferParams

	CheckoutParams []billing.CheckoutSessionParams
	CreatedAccount []billing.ConnectedAccountParams
	AccountLookups []string

	CheckoutErr error
	AccountErr  error
	TransferErr error
	LinkErr     error

	Events map[string]*billing.WebhookEvent

	seq int
}

func New() *Processor {
	return &Processor{
		Sessions: map[string]*billing.CheckoutSession{},
		Accounts: map[string]*billing.ConnectedAccount{},
		Events:   map[string]*billing.WebhookEvent{},
	}
}

func (p *Processor) next(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s_%d", prefix, p.seq)
}

func (p *Processor) CreateCheckoutSession(_ context.Context, params billing.CheckoutSessionParams) (*billing.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CheckoutParams = append(p.CheckoutParams, params)
	if p.CheckoutErr != nil {
		return nil, p.CheckoutErr
	}
	id := p.next("cs_test")
	s := &billing.CheckoutSession{
		ID:            id,
		URL:           "https://checkout.test/" + id,
		Status:        "open",
		PaymentStatus: "unpaid",
		AmountTotal:   params.Amount,
		Currency:      params.Currency,
		Metadata:      params.Metadata,
	}
	p.Sessions[id] = s
	return s, nil
}

// Pay marks a session as paid with the given payment intent.
func (p *Processor) Pay(sessionID, paymentIntentID string) *billing.CheckoutSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.Sessions[sessionID]
	s.Status = "complete"
	s.PaymentStatus = billing.PaymentStatusPaid
	s.PaymentIntentID = paymentIntentID
	return s
}

func (p *Processor) GetCheckoutSession(_ context.Context, id string) (*billing.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CheckoutErr != nil {
		return nil, p.CheckoutErr
	}
	s, ok := p.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such checkout session: %s", id)
	}
	cp := *s
	return &cp, nil
}

func (p *Processor) CreateConnectedAccount(_ context.Context, params billing.ConnectedAccountParams) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CreatedAccount = append(p.CreatedAccount, params)
	if p.AccountErr != nil {
		return "", p.AccountErr
	}
	id := p.next("acct_test")
	p.Accounts[id] = &billing.ConnectedAccount{ID: id, Country: params.Country}
	return id, nil
}

func (p *Processor) GetConnectedAccount(_ context.Context, id string) (*billing.ConnectedAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AccountLookups = append(p.AccountLookups, id)
	if p.AccountErr != nil {
		return nil, p.AccountErr
	}
	a, ok := p.Accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", billing.ErrAccountNotFound, id)
	}
	cp := *a
	return &cp, nil
}

func (p *Processor) CreateOnboardingLink(_ context.Context, accountID, refreshURL, returnURL string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LinkErr != nil {
		return "", p.LinkErr
	}
	if _, ok := p.Accounts[accountID]; !ok {
		return "", fmt.Errorf("%w: %s", billing.ErrAccountNotFound, accountID)
	}
	return "https://connect.test/onboarding/" + accountID + "?return=" + returnURL + "&refresh=" + refreshURL, nil
}

func (p *Processor) CreateDashboardLink(_ context.Context, accountID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LinkErr != nil {
		return "", p.LinkErr
	}
	if _, ok := p.Accounts[accountID]; !ok {
		return "", fmt.Errorf("%w: %s", billing.ErrAccountNotFound, accountID)
	}
	return "https://connect.test/dashboard/" + accountID, nil
}

func (p *Processor) CreateTransfer(_ context.Context, params billing.TransferParams) (*billing.Transfer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Transfers = append(p.Transfers, params)
	if p.TransferErr != nil {
		return nil, p.TransferErr
	}
	return &billing.Transfer{
		ID:          p.next("tr_test"),
		Amount:      params.Amount,
		Currency:    params.Currency,
		Destination: params.Destination,
	}, nil
}

// ParseWebhookEvent treats the signature header as a key into Events.
func (p *Processor) ParseWebhookEvent(_ []byte, signatureHeader string) (*billing.WebhookEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev, ok := p.Events[signatureHeader]
	if !ok {
		return nil, billing.ErrInvalidSignature
	}
	return ev, nil
}

// TransferCount returns how many transfers were attempted.
func (p *Processor) TransferCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Transfers)
}

var _ billing.Processor = (*Processor)(nil)
