package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_ValidHMAC(t *testing.T) {
	p := &RazorpayProvider{webhookSecret: "whsec_test"}
	body := []byte(`{"payment_id":"pay_1","status":"completed","transaction_id":"txn_1"}`)

	if !p.VerifyWebhookSignature(body, signBody("whsec_test", body)) {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifyWebhookSignature_RejectsBadSignature(t *testing.T) {
	p := &RazorpayProvider{webhookSecret: "whsec_test"}
	body := []byte(`{"payment_id":"pay_1","status":"completed"}`)

	if p.VerifyWebhookSignature(body, "deadbeef") {
		t.Fatal("forged signature accepted")
	}
	if p.VerifyWebhookSignature(body, signBody("other_secret", body)) {
		t.Fatal("signature from a different secret accepted")
	}
}

func TestVerifyWebhookSignature_RejectsTamperedBody(t *testing.T) {
	p := &RazorpayProvider{webhookSecret: "whsec_test"}
	body := []byte(`{"payment_id":"pay_1","status":"completed"}`)
	sig := signBody("whsec_test", body)

	tampered := []byte(`{"payment_id":"pay_2","status":"completed"}`)
	if p.VerifyWebhookSignature(tampered, sig) {
		t.Fatal("tampered body accepted")
	}
}

func TestVerifyWebhookSignature_NoSecretRejects(t *testing.T) {
	p := &RazorpayProvider{}
	body := []byte(`{"payment_id":"pay_1","status":"completed"}`)

	if p.VerifyWebhookSignature(body, signBody("anything", body)) {
		t.Fatal("webhook accepted without a configured secret")
	}
	if p.VerifyWebhookSignature(body, "") {
		t.Fatal("unsigned webhook accepted without a configured secret")
	}
}

func TestStripeParseWebhook_NoSecretRejects(t *testing.T) {
	p := &StripeProvider{}
	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"metadata":{"payment_id":"pay_1"}}}}`)

	if _, err := p.ParseWebhook(payload, "t=1,v1=abc"); err == nil {
		t.Fatal("stripe webhook accepted without a configured secret")
	}
}

func TestStripeParseWebhook_BadSignatureRejects(t *testing.T) {
	p := &StripeProvider{webhookSecret: "whsec_test"}
	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"metadata":{"payment_id":"pay_1"}}}}`)

	if _, err := p.ParseWebhook(payload, "t=1,v1=forged"); err == nil {
		t.Fatal("stripe webhook accepted with a forged signature")
	}
}
