package credits

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ledger is the surface the HTTP handler needs; *Repository satisfies it.
type Ledger interface {
	GetStatus(userID string) (*Status, error)
	Consume(userID, featureName, sessionID string) (*ConsumeResult, error)
	ResetAll() (int, error)
}

type Handler struct {
	ledger Ledger
}

func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/credits/status/:user_id", h.getStatus)
	r.POST("/credits/consume", h.consume)
	r.POST("/credits/reset", h.reset)
}

func (h *Handler) getStatus(c *gin.Context) {
	userID := c.Param("user_id")
	status, err := h.ledger.GetStatus(userID)
	if err != nil {
		log.Printf("[credits][status_error] user_id=%s err=%v", userID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, status)
}

type consumeRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	FeatureName string `json:"feature_name" binding:"required"`
	SessionID   string `json:"session_id"`
}

func (h *Handler) consume(c *gin.Context) {
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and feature_name are required"})
		return
	}
	result, err := h.ledger.Consume(req.UserID, req.FeatureName, req.SessionID)
	if err != nil {
		log.Printf("[credits][consume_error] user_id=%s feature=%s err=%v", req.UserID, req.FeatureName, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) reset(c *gin.Context) {
	count, err := h.ledger.ResetAll()
	if err != nil {
		log.Printf("[credits][reset_error] err=%v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	log.Printf("[credits][reset] count=%d", count)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"reset_count": count,
		"message":     fmt.Sprintf("Reset credits for %d users", count),
	})
}
