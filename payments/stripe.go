package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

var ErrStripeInvalidAPIKey = errors.New("stripe_invalid_api_key")

// StripeProvider creates one-off Checkout Sessions for card payments. It is the
// alternative to the UPI/Razorpay flow, selected via PAYMENT_PROVIDER=stripe.
type StripeProvider struct {
	sc            *client.API
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
	invalidKey    bool // once detected, short-circuit further remote calls
}

func maskKey(k string) string {
	if len(k) < 12 {
		return "****"
	}
	return k[:7] + "..." + k[len(k)-4:]
}

// NewStripeFromEnv returns a configured provider or nil when STRIPE_SECRET_KEY is unset.
func NewStripeFromEnv() *StripeProvider {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil
	}
	success := os.Getenv("STRIPE_SUCCESS_URL")
	if success == "" {
		success = "https://example.com/checkout/success"
	}
	cancel := os.Getenv("STRIPE_CANCEL_URL")
	if cancel == "" {
		cancel = "https://example.com/checkout/cancel"
	}
	sc := &client.API{}
	sc.Init(key, nil)
	return &StripeProvider{
		sc:            sc,
		secretKey:     key,
		webhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		successURL:    success,
		cancelURL:     cancel,
	}
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) CreateIntent(ctx context.Context, payment *Payment) (*Intent, error) {
	if p.invalidKey {
		return nil, ErrStripeInvalidAPIKey
	}
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(payment.Currency)),
				UnitAmount: stripe.Int64(int64(payment.Amount * 100)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("PraxisAI " + string(payment.Tier)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		Metadata: map[string]string{
			"payment_id": payment.PaymentID,
			"user_id":    payment.UserID,
			"tier":       string(payment.Tier),
		},
	}
	sess, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && (se.HTTPStatusCode == 401 || strings.Contains(strings.ToLower(se.Msg), "invalid api key")) {
			log.Printf("[payments][stripe] invalid api key (%s): %v", maskKey(p.secretKey), se)
			p.invalidKey = true
			return nil, ErrStripeInvalidAPIKey
		}
		return nil, err
	}
	return &Intent{Ref: sess.ID, Payload: sess.URL}, nil
}

func (p *StripeProvider) Verify(ctx context.Context, ref string) (bool, string, error) {
	if ref == "" {
		return false, "", fmt.Errorf("empty checkout session id")
	}
	sess, err := p.sc.CheckoutSessions.Get(ref, nil)
	if err != nil {
		return false, "", err
	}
	if sess.Status != stripe.CheckoutSessionStatusComplete {
		return false, "", nil
	}
	txnID := ref
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		txnID = sess.PaymentIntent.ID
	}
	return true, txnID, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the payment_id
// from a completed checkout event. Other event types return an empty id.
// An unsigned event is never trusted: without STRIPE_WEBHOOK_SECRET every
// webhook is rejected and payments confirm through /payment/verify.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (string, error) {
	if p.webhookSecret == "" {
		return "", errors.New("STRIPE_WEBHOOK_SECRET not configured")
	}
	if _, err := webhook.ConstructEvent(payload, signature, p.webhookSecret); err != nil {
		return "", fmt.Errorf("invalid signature: %w", err)
	}
	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", err
	}
	if event.Type != "checkout.session.completed" {
		return "", nil
	}
	return event.Data.Object.Metadata["payment_id"], nil
}
