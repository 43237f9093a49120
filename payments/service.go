package payments

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"praxis-backend/subscriptions"
)

// Store is the persistence surface the service needs; *Repository satisfies it.
type Store interface {
	Create(p *Payment) error
	Get(paymentID string) (*Payment, error)
	MarkCompleted(paymentID, transactionID string) (bool, error)
}

// Upgrader is the slice of the subscription manager the service needs.
type Upgrader interface {
	Upgrade(userID string, tier subscriptions.Tier, paymentID string) (*subscriptions.Subscription, error)
}

// Service owns payment state transitions. A provider is optional: the manual
// UPI flow runs with provider == nil and trusts the verification call.
type Service struct {
	store    Store
	subs     Upgrader
	provider Provider
	upi      UPIConfig
}

func NewService(store Store, subs Upgrader, provider Provider, upi UPIConfig) *Service {
	return &Service{store: store, subs: subs, provider: provider, upi: upi}
}

// VerifyOutcome reports what a verification call did. AlreadyProcessed marks the
// idempotent replay case, which is a success, not an error.
type VerifyOutcome struct {
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"already_processed"`
	Message          string `json:"message"`
}

func newPaymentID() string {
	return fmt.Sprintf("pay_%d_%s", time.Now().Unix(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateIntent registers a payment attempt and, when a provider is configured,
// an order with it. The UPI deep link is always attached so the client can
// render a QR regardless of provider.
func (s *Service) CreateIntent(ctx context.Context, userID string, amount float64, currency string, tier subscriptions.Tier) (*Payment, string, error) {
	now := time.Now()
	p := &Payment{
		PaymentID: newPaymentID(),
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Tier:      tier,
		Status:    StatusPending,
		UPILink:   BuildUPILink(s.upi, amount, currency),
		CreatedAt: now,
		ExpiresAt: now.Add(Validity),
	}
	checkoutURL := ""
	if s.provider != nil {
		intent, err := s.provider.CreateIntent(ctx, p)
		if err != nil {
			return nil, "", err
		}
		p.ProviderRef = intent.Ref
		checkoutURL = intent.Payload
	}
	if err := s.store.Create(p); err != nil {
		return nil, "", err
	}
	log.Printf("[payments][create] payment_id=%s user_id=%s amount=%.2f %s tier=%s provider=%s",
		p.PaymentID, userID, amount, currency, tier, s.providerName())
	return p, checkoutURL, nil
}

// Verify confirms a payment and upgrades the paying user exactly once.
// Replayed verifications (webhook retry, client polling) return an idempotent
// success without touching the subscription again.
func (s *Service) Verify(ctx context.Context, paymentID, transactionID string) (*VerifyOutcome, error) {
	p, err := s.store.Get(paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	switch p.Status {
	case StatusCompleted:
		return &VerifyOutcome{Success: true, AlreadyProcessed: true, Message: "Payment already processed"}, nil
	case StatusExpired, StatusFailed, StatusRefunded:
		return nil, ErrExpired
	}

	if s.provider != nil {
		captured, providerTxn, err := s.provider.Verify(ctx, p.ProviderRef)
		if err != nil {
			return nil, err
		}
		if !captured {
			return nil, ErrProviderDeclined
		}
		if transactionID == "" {
			transactionID = providerTxn
		}
	}

	won, err := s.store.MarkCompleted(paymentID, transactionID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the transition race or the window closed in between; re-read to tell which.
		p, err = s.store.Get(paymentID)
		if err != nil {
			return nil, err
		}
		if p != nil && p.Status == StatusCompleted {
			return &VerifyOutcome{Success: true, AlreadyProcessed: true, Message: "Payment already processed"}, nil
		}
		return nil, ErrExpired
	}

	if _, err := s.subs.Upgrade(p.UserID, p.Tier, paymentID); err != nil {
		log.Printf("[payments][upgrade_error] payment_id=%s user_id=%s err=%v", paymentID, p.UserID, err)
		return nil, err
	}
	log.Printf("[payments][verified] payment_id=%s user_id=%s tier=%s txn=%s", paymentID, p.UserID, p.Tier, transactionID)
	return &VerifyOutcome{Success: true, Message: "Successfully upgraded to Pro"}, nil
}

// Status returns the current payment row, lazily expired if its window passed.
func (s *Service) Status(paymentID string) (*Payment, error) {
	p, err := s.store.Get(paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) providerName() string {
	if s.provider == nil {
		return "manual"
	}
	return s.provider.Name()
}
