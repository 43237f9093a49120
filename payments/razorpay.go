package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/razorpay/razorpay-go"
)

// RazorpayProvider registers UPI payment intents as Razorpay orders and polls
// them for capture. Amounts are converted to the smallest currency unit (paise).
type RazorpayProvider struct {
	client        *razorpay.Client
	webhookSecret string
}

// NewRazorpayFromEnv returns a configured provider or nil when the keys are missing.
func NewRazorpayFromEnv() *RazorpayProvider {
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		return nil
	}
	return &RazorpayProvider{
		client:        razorpay.NewClient(keyID, keySecret),
		webhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
	}
}

func (p *RazorpayProvider) Name() string { return "razorpay" }

func (p *RazorpayProvider) CreateIntent(ctx context.Context, payment *Payment) (*Intent, error) {
	data := map[string]interface{}{
		"amount":   int(payment.Amount * 100),
		"currency": payment.Currency,
		"receipt":  payment.PaymentID,
	}
	order, err := p.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}
	ref, _ := order["id"].(string)
	if ref == "" {
		return nil, fmt.Errorf("razorpay order create: missing order id")
	}
	log.Printf("[payments][razorpay] order created ref=%s payment_id=%s", ref, payment.PaymentID)
	return &Intent{Ref: ref}, nil
}

func (p *RazorpayProvider) Verify(ctx context.Context, ref string) (bool, string, error) {
	order, err := p.client.Order.Fetch(ref, nil, nil)
	if err != nil {
		return false, "", fmt.Errorf("razorpay order fetch: %w", err)
	}
	status, _ := order["status"].(string)
	if status != "paid" {
		return false, "", nil
	}
	txnID := ref
	if payments, err := p.client.Order.Payments(ref, nil, nil); err == nil {
		if items, ok := payments["items"].([]interface{}); ok && len(items) > 0 {
			if first, ok := items[0].(map[string]interface{}); ok {
				if id, ok := first["id"].(string); ok && id != "" {
					txnID = id
				}
			}
		}
	}
	return true, txnID, nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature HMAC over the raw body.
// Without a configured secret there is nothing to verify against, so the event
// is rejected; deployments without webhooks confirm through /payment/verify.
func (p *RazorpayProvider) VerifyWebhookSignature(body []byte, signature string) bool {
	if p.webhookSecret == "" {
		log.Printf("[payments][razorpay] webhook rejected: RAZORPAY_WEBHOOK_SECRET not configured")
		return false
	}
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
