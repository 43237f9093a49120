package sessions

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Sessions is the surface the HTTP handler needs; *Manager satisfies it.
type Sessions interface {
	Create(userID string) (*StudySession, error)
	Get(sessionID string) (*StudySession, error)
	End(sessionID string) error
}

type Handler struct {
	sessions Sessions
}

func NewHandler(sessions Sessions) *Handler {
	return &Handler{sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/session/start", h.start)
	r.GET("/session/:session_id", h.get)
	r.DELETE("/session/:session_id", h.end)
}

func (h *Handler) start(c *gin.Context) {
	var body struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	s, err := h.sessions.Create(body.UserID)
	if err != nil {
		log.Printf("[sessions][start_error] user_id=%s err=%v", body.UserID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) get(c *gin.Context) {
	sessionID := c.Param("session_id")
	s, err := h.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Printf("[sessions][get_error] session_id=%s err=%v", sessionID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) end(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.sessions.End(sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Printf("[sessions][end_error] session_id=%s err=%v", sessionID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
