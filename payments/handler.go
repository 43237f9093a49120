package payments

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"praxis-backend/subscriptions"
)

type Handler struct {
	svc      *Service
	razorpay *RazorpayProvider
	stripe   *StripeProvider
}

// NewHandler wires the payment routes. The razorpay and stripe arguments enable
// the matching webhook endpoints and may be nil.
func NewHandler(svc *Service, rz *RazorpayProvider, st *StripeProvider) *Handler {
	return &Handler{svc: svc, razorpay: rz, stripe: st}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/payment/create", h.create)
	r.POST("/payment/verify", h.verify)
	r.GET("/payment/status/:payment_id", h.status)
	r.POST("/webhook/payment", h.paymentWebhook)
	r.POST("/webhook/stripe", h.stripeWebhook)
	r.GET("/pricing", h.pricing)
}

type createRequest struct {
	UserID   string             `json:"user_id" binding:"required"`
	Amount   float64            `json:"amount" binding:"required"`
	Currency string             `json:"currency"`
	Tier     subscriptions.Tier `json:"tier"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and amount are required"})
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}
	if !req.Tier.Valid() {
		req.Tier = subscriptions.TierProMonthly
	}
	p, checkoutURL, err := h.svc.CreateIntent(c.Request.Context(), req.UserID, req.Amount, req.Currency, req.Tier)
	if err != nil {
		log.Printf("[payments][create_error] user_id=%s err=%v", req.UserID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to create payment"})
		return
	}
	resp := gin.H{
		"payment_id": p.PaymentID,
		"upi_link":   p.UPILink,
		"qr_code":    p.UPILink,
		"amount":     p.Amount,
		"currency":   p.Currency,
		"tier":       p.Tier,
		"expires_at": p.ExpiresAt,
	}
	if checkoutURL != "" {
		resp["checkout_url"] = checkoutURL
	}
	c.JSON(http.StatusOK, resp)
}

type verifyRequest struct {
	PaymentID     string `json:"payment_id" binding:"required"`
	TransactionID string `json:"transaction_id"`
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_id is required"})
		return
	}
	outcome, err := h.svc.Verify(c.Request.Context(), req.PaymentID, req.TransactionID)
	if err != nil {
		h.verifyError(c, req.PaymentID, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) verifyError(c *gin.Context, paymentID string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
	case errors.Is(err, ErrExpired):
		c.JSON(http.StatusConflict, gin.H{"error": "payment expired or not verifiable"})
	case errors.Is(err, ErrProviderDeclined):
		c.JSON(http.StatusConflict, gin.H{"error": "payment not captured yet"})
	default:
		log.Printf("[payments][verify_error] payment_id=%s err=%v", paymentID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment verification failed, try again"})
	}
}

func (h *Handler) status(c *gin.Context) {
	paymentID := c.Param("payment_id")
	p, err := h.svc.Status(paymentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		log.Printf("[payments][status_error] payment_id=%s err=%v", paymentID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_id":     p.PaymentID,
		"status":         p.Status,
		"amount":         p.Amount,
		"currency":       p.Currency,
		"created_at":     p.CreatedAt,
		"expires_at":     p.ExpiresAt,
		"transaction_id": p.TransactionID,
	})
}

// paymentWebhook handles provider callbacks in the generic shape the UPI
// aggregator posts: { payment_id, status, transaction_id }.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unreadable body"})
		return
	}
	if h.razorpay != nil {
		sig := c.GetHeader("X-Razorpay-Signature")
		if !h.razorpay.VerifyWebhookSignature(body, sig) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid signature"})
			return
		}
	}
	var payload struct {
		PaymentID     string `json:"payment_id"`
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.PaymentID == "" || payload.Status != "completed" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid webhook data"})
		return
	}
	outcome, err := h.svc.Verify(c.Request.Context(), payload.PaymentID, payload.TransactionID)
	if err != nil {
		log.Printf("[payments][webhook_error] payment_id=%s err=%v", payload.PaymentID, err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "webhook processing failed"})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) stripeWebhook(c *gin.Context) {
	if h.stripe == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stripe not configured"})
		return
	}
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	paymentID, err := h.stripe.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("[payments][stripe_webhook] rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}
	if paymentID == "" {
		c.String(http.StatusOK, "ignored")
		return
	}
	outcome, err := h.svc.Verify(c.Request.Context(), paymentID, "")
	if err != nil {
		log.Printf("[payments][stripe_webhook] verify failed payment_id=%s err=%v", paymentID, err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "webhook processing failed"})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) pricing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"monthly": gin.H{
			"price":    99,
			"currency": "INR",
			"features": []string{
				"Unlimited Deep Study Mode",
				"Unlimited Study Plan Generator",
				"Unlimited Problem Generator",
				"Unlimited Pro AI Chat",
				"Priority Support",
			},
		},
		"yearly": gin.H{
			"price":    999,
			"currency": "INR",
			"features": []string{
				"Everything in Monthly",
				"2 months free",
				"Priority Support",
				"Advanced Analytics",
			},
			"discount": "17% off",
		},
		"features": []string{
			"Deep Study Mode - Advanced AI tutoring with context memory",
			"Study Plan Generator - AI-powered personalized study plans",
			"Problem Generator - AI-generated JEE practice problems",
			"Pro AI Chat - Advanced AI chat with specialized JEE knowledge",
		},
		"free_features": []string{
			"Syllabus Browser - Browse JEE syllabus and topics",
			"Quick Help - Quick AI help for simple questions",
			"Standard Chat - Basic AI chat functionality",
			"Resource Browser - Browse educational resources",
			"5 Daily Pro Credits - Try Pro features for free",
		},
	})
}
