package billing

import "strings"

const (
	PaymentStatusPaid = "paid"

	EventCheckoutSessionCompleted             = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// CheckoutSessionParams describes a one-off hosted payment.
type CheckoutSessionParams struct {
	Amount          int64
	Currency        string
	ProductName     string
	Description     string
	SuccessURL      string
	CancelURL       string
	ClientReference string
	Metadata        map[string]string
	IdempotencyKey  string
}

// CheckoutSession is the processor's view of a hosted payment.
type CheckoutSession struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	PaymentIntentID string
	Metadata        map[string]string
}

// Paid reports whether the buyer's payment has been captured.
func (s *CheckoutSession) Paid() bool {
	return s != nil && strings.EqualFold(s.PaymentStatus, PaymentStatusPaid)
}

// TransactionRef is the external reference stored on the purchase: the
// payment intent when present, the session otherwise.
func (s *CheckoutSession) TransactionRef() string {
	if s.PaymentIntentID != "" {
		return s.PaymentIntentID
	}
	return s.ID
}

// ConnectedAccountParams describes a new express account for a scholar.
type ConnectedAccountParams struct {
	ScholarID uint
	Email     string
	FirstName string
	LastName  string
	Country   string
}

// ConnectedAccount is the live status of a scholar's payout account.
type ConnectedAccount struct {
	ID               string `json:"id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	Country          string `json:"country"`
	DefaultCurrency  string `json:"default_currency"`
}

// OnboardingComplete mirrors what is persisted in scholar_profile.
func (a *ConnectedAccount) OnboardingComplete() bool {
	return a != nil && a.DetailsSubmitted
}

// TransferParams moves funds from the platform balance to a connected account.
type TransferParams struct {
	Amount         int64
	Currency       string
	Destination    string
	Description    string
	TransferGroup  string
	IdempotencyKey string
	Metadata       map[string]string
}

// Transfer is a created processor transfer.
type Transfer struct {
	ID          string
	Amount      int64
	Currency    string
	Destination string
}

// WebhookEvent is a verified processor event. Session is set for checkout
// session events.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// IsCheckoutPaid reports whether the event announces a paid checkout.
func (e *WebhookEvent) IsCheckoutPaid() bool {
	switch e.Type {
	case EventCheckoutSessionCompleted, EventCheckoutSessionAsyncPaymentSucceeded:
		return e.Session.Paid()
	default:
		return false
	}
}
