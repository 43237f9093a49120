package payments

import (
	"context"
	"errors"
	"time"

	"praxis-backend/subscriptions"
)

// PaymentStatus of a payment attempt.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusExpired   PaymentStatus = "expired"
	StatusRefunded  PaymentStatus = "refunded"
)

// Validity is how long a payment intent can be verified before it lapses.
const Validity = 30 * time.Minute

var (
	ErrNotFound         = errors.New("payment not found")
	ErrExpired          = errors.New("payment expired")
	ErrProviderDeclined = errors.New("payment not captured by provider")
)

type Payment struct {
	PaymentID     string             `json:"payment_id"`
	UserID        string             `json:"user_id"`
	Amount        float64            `json:"amount"`
	Currency      string             `json:"currency"`
	Tier          subscriptions.Tier `json:"tier"`
	Status        PaymentStatus      `json:"status"`
	UPILink       string             `json:"upi_link,omitempty"`
	ProviderRef   string             `json:"provider_ref,omitempty"`
	TransactionID string             `json:"transaction_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	ExpiresAt     time.Time          `json:"expires_at"`
}

// Intent is what a provider hands back when an order is registered with it.
// Payload carries a redirect URL for checkout-style providers; UPI intents
// build their deep link locally and leave it empty.
type Intent struct {
	Ref     string
	Payload string
}

// Provider is the payment gateway surface the core needs. Implementations must
// not mutate local state; the service owns all row transitions.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, p *Payment) (*Intent, error)
	// Verify reports whether the provider captured the funds for the given ref,
	// returning the provider-side transaction id when it did.
	Verify(ctx context.Context, ref string) (bool, string, error)
}
