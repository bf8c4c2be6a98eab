package billing

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned by every processor call while no usable
	// secret key is configured.
	ErrNotConfigured = errors.New("payment processor is not configured")
	// ErrAccountNotFound means the processor no longer knows a connected account.
	ErrAccountNotFound = errors.New("connected account not found")
	// ErrInvalidSignature rejects webhook payloads that fail verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrUnavailable marks calls that failed to reach the processor or that
	// the processor failed on its side. They may succeed when retried.
	ErrUnavailable = errors.New("payment processor unavailable")
)

// Processor is the subset of the payment processor the revenue engine uses.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)

	CreateConnectedAccount(ctx context.Context, params ConnectedAccountParams) (string, error)
	GetConnectedAccount(ctx context.Context, id string) (*ConnectedAccount, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	CreateDashboardLink(ctx context.Context, accountID string) (string, error)

	CreateTransfer(ctx context.Context, params TransferParams) (*Transfer, error)

	ParseWebhookEvent(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
