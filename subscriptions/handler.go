package subscriptions

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Manager is the surface the HTTP handler needs; *Repository satisfies it.
type Manager interface {
	GetSubscription(userID string) (*Subscription, error)
	HasActiveAccess(userID string) (bool, error)
	Upgrade(userID string, tier Tier, paymentID string) (*Subscription, error)
	Cancel(userID string) (bool, error)
	SweepExpired() ([]string, error)
}

type Handler struct {
	mgr Manager
}

func NewHandler(mgr Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/subscription/:user_id", h.getSubscription)
	r.POST("/subscription/cancel", h.cancel)
	r.POST("/subscription/sweep", h.sweep)
	// Admin bypass kept from the ops tooling; upgrades without a payment.
	r.POST("/admin/upgrade-to-pro", h.adminUpgrade)
}

func (h *Handler) getSubscription(c *gin.Context) {
	userID := c.Param("user_id")
	sub, err := h.mgr.GetSubscription(userID)
	if err != nil {
		log.Printf("[subscriptions][get_error] user_id=%s err=%v", userID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) cancel(c *gin.Context) {
	var body struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	cancelled, err := h.mgr.Cancel(body.UserID)
	if err != nil {
		log.Printf("[subscriptions][cancel_error] user_id=%s err=%v", body.UserID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	if !cancelled {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active pro subscription"})
		return
	}
	log.Printf("[subscriptions][cancel] user_id=%s", body.UserID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscription cancelled; access remains until expiry"})
}

func (h *Handler) sweep(c *gin.Context) {
	expired, err := h.mgr.SweepExpired()
	if err != nil {
		log.Printf("[subscriptions][sweep_error] err=%v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "expired_users": expired})
}

func (h *Handler) adminUpgrade(c *gin.Context) {
	var body struct {
		UserID string `json:"user_id" binding:"required"`
		Tier   Tier   `json:"tier"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	tier := body.Tier
	if !tier.Valid() {
		tier = TierProYearly
	}
	sub, err := h.mgr.Upgrade(body.UserID, tier, "")
	if err != nil {
		log.Printf("[subscriptions][admin_upgrade_error] user_id=%s err=%v", body.UserID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": sub})
}
