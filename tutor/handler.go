package tutor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"praxis-backend/gate"
	"praxis-backend/sessions"
)

// contextMessages is how much conversation history each completion sees.
const contextMessages = 10

// Authorizer is the feature gate surface; *gate.Gate satisfies it.
type Authorizer interface {
	Authorize(req gate.AccessRequest) gate.Decision
}

// SessionStore is the slice of the session manager the tutor needs;
// *sessions.Manager satisfies it.
type SessionStore interface {
	Get(sessionID string) (*sessions.StudySession, error)
	AppendMessage(sessionID string, role sessions.Role, content string, metadata map[string]any) error
	Touch(sessionID string) error
	Context(sessionID string, maxMessages int) ([]sessions.ContextMessage, error)
	UpdateProgress(sessionID string, fn func(progress map[string]any)) error
}

// Completer mirrors openai.Completer without importing it, so tests can swap in
// a canned model.
type Completer interface {
	Complete(ctx context.Context, history []sessions.ContextMessage, systemPrompt string, maxTokens int, temperature float32) (string, error)
}

// Handler serves the gated tutoring features. Every endpoint authorizes before
// any model call; a denied gate means no tokens are spent.
type Handler struct {
	gate     Authorizer
	sessions SessionStore
	ai       Completer
}

func NewHandler(g Authorizer, s SessionStore, ai Completer) *Handler {
	return &Handler{gate: g, sessions: s, ai: ai}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/session/chat", h.chat)
	r.POST("/session/solve", h.solve)
	r.POST("/session/quiz", h.quiz)
	r.POST("/plan/generate", h.studyPlan)
}

// respondDenied translates a gate denial into the right status: 402 for an
// exhausted ledger, 503 when the gate could not reach the store.
func respondDenied(c *gin.Context, d gate.Decision) {
	if d.Retryable {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": d.Reason})
		return
	}
	c.JSON(http.StatusPaymentRequired, gin.H{
		"error":             d.Reason,
		"credits_remaining": d.CreditsRemaining,
		"upgrade_hint":      "Upgrade to Pro for unlimited access",
	})
}

func (h *Handler) loadSession(c *gin.Context, sessionID string) (*sessions.StudySession, bool) {
	s, err := h.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found, start a new session"})
			return nil, false
		}
		log.Printf("[tutor][session_error] session_id=%s err=%v", sessionID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return nil, false
	}
	return s, true
}

type chatRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, session_id and message are required"})
		return
	}
	if _, ok := h.loadSession(c, req.SessionID); !ok {
		return
	}
	decision := h.gate.Authorize(gate.AccessRequest{UserID: req.UserID, Feature: FeatureChat, SessionID: req.SessionID})
	if !decision.Allowed {
		respondDenied(c, decision)
		return
	}

	if err := h.sessions.AppendMessage(req.SessionID, sessions.RoleUser, req.Message, nil); err != nil {
		log.Printf("[tutor][chat] append failed session_id=%s err=%v", req.SessionID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	history, err := h.sessions.Context(req.SessionID, contextMessages)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}

	answer, err := h.ai.Complete(c.Request.Context(), history, tutorSystemPrompt, 2048, 0.7)
	if err != nil {
		log.Printf("[tutor][chat] model error session_id=%s err=%v", req.SessionID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI provider unavailable, try again"})
		return
	}
	if err := h.sessions.AppendMessage(req.SessionID, sessions.RoleAssistant, answer, nil); err != nil {
		log.Printf("[tutor][chat] assistant append failed session_id=%s err=%v", req.SessionID, err)
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":        req.SessionID,
		"response":          answer,
		"credits_remaining": decision.CreditsRemaining,
	})
}

type solveRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	Problem   string `json:"problem" binding:"required"`
	HintLevel int    `json:"hint_level"`
}

func (h *Handler) solve(c *gin.Context) {
	var req solveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, session_id and problem are required"})
		return
	}
	if _, ok := h.loadSession(c, req.SessionID); !ok {
		return
	}
	decision := h.gate.Authorize(gate.AccessRequest{UserID: req.UserID, Feature: FeatureSolve, SessionID: req.SessionID})
	if !decision.Allowed {
		respondDenied(c, decision)
		return
	}

	prompt := req.Problem
	if req.HintLevel > 0 {
		prompt = fmt.Sprintf("%s\n\nGive a level-%d hint first, then the full solution.", req.Problem, req.HintLevel)
	}
	if err := h.sessions.AppendMessage(req.SessionID, sessions.RoleUser, prompt, map[string]any{"feature": FeatureSolve}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	history, err := h.sessions.Context(req.SessionID, contextMessages)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}

	solution, err := h.ai.Complete(c.Request.Context(), history, solveSystemPrompt, 2048, 0.6)
	if err != nil {
		log.Printf("[tutor][solve] model error session_id=%s err=%v", req.SessionID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI provider unavailable, try again"})
		return
	}
	if err := h.sessions.AppendMessage(req.SessionID, sessions.RoleAssistant, solution, nil); err != nil {
		log.Printf("[tutor][solve] assistant append failed session_id=%s err=%v", req.SessionID, err)
	}
	if err := h.sessions.UpdateProgress(req.SessionID, func(progress map[string]any) {
		// Stored as float64 throughout: JSON decoding yields float64 anyway, and
		// mixing in ints would reset the counter on the next type assertion.
		solved, _ := progress["problems_solved"].(float64)
		progress["problems_solved"] = solved + 1
	}); err != nil {
		log.Printf("[tutor][solve] progress update failed session_id=%s err=%v", req.SessionID, err)
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":        req.SessionID,
		"solution":          solution,
		"credits_remaining": decision.CreditsRemaining,
	})
}

type quizRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	SessionID     string `json:"session_id" binding:"required"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"question_count"`
}

func (h *Handler) quiz(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and session_id are required"})
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.QuestionCount < 1 || req.QuestionCount > 10 {
		req.QuestionCount = 5
	}
	if _, ok := h.loadSession(c, req.SessionID); !ok {
		return
	}
	decision := h.gate.Authorize(gate.AccessRequest{UserID: req.UserID, Feature: FeatureQuiz, SessionID: req.SessionID})
	if !decision.Allowed {
		respondDenied(c, decision)
		return
	}
	if err := h.sessions.Touch(req.SessionID); err != nil {
		log.Printf("[tutor][quiz] touch failed session_id=%s err=%v", req.SessionID, err)
	}

	history, err := h.sessions.Context(req.SessionID, contextMessages)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	history = append(history, sessions.ContextMessage{
		Role:    sessions.RoleUser,
		Content: fmt.Sprintf("Generate %d %s-difficulty questions on the topics above.", req.QuestionCount, req.Difficulty),
	})

	raw, err := h.ai.Complete(c.Request.Context(), history, quizSystemPrompt, 3072, 0.5)
	if err != nil {
		log.Printf("[tutor][quiz] model error session_id=%s err=%v", req.SessionID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI provider unavailable, try again"})
		return
	}
	quiz, ok := ParseQuiz(raw)
	if !ok {
		log.Printf("[tutor][quiz] unparseable quiz session_id=%s len=%d", req.SessionID, len(raw))
		c.JSON(http.StatusOK, gin.H{
			"session_id":        req.SessionID,
			"raw_response":      raw,
			"credits_remaining": decision.CreditsRemaining,
		})
		return
	}
	note := fmt.Sprintf("Generated a %d-question %s quiz.", len(quiz.Questions), req.Difficulty)
	if err := h.sessions.AppendMessage(req.SessionID, sessions.RoleAssistant, note, map[string]any{"feature": FeatureQuiz}); err != nil {
		log.Printf("[tutor][quiz] append failed session_id=%s err=%v", req.SessionID, err)
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":        req.SessionID,
		"quiz":              quiz,
		"credits_remaining": decision.CreditsRemaining,
	})
}

func (h *Handler) studyPlan(c *gin.Context) {
	var req StudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Subjects) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and subjects are required"})
		return
	}
	decision := h.gate.Authorize(gate.AccessRequest{UserID: req.UserID, Feature: FeatureStudyPlan})
	if !decision.Allowed {
		respondDenied(c, decision)
		return
	}

	plan, err := BuildStudyPlan(req, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The schedule above is already usable; the model only adds advice on top,
	// so a provider failure degrades rather than fails the request.
	prompt := fmt.Sprintf("Subjects: %v. Exam date: %s. Chapters: %v. Goals: %v. %d days, %d study days planned. Give concise day-by-day advice.",
		req.Subjects, plan.ExamDate, plan.ExamChapters, req.Goals, plan.DurationDays, len(plan.DailyTasks))
	summary, err := h.ai.Complete(c.Request.Context(), []sessions.ContextMessage{{Role: sessions.RoleUser, Content: prompt}}, studyPlanSystemPrompt, 1024, 0.7)
	if err != nil {
		log.Printf("[tutor][plan] model error user_id=%s err=%v", req.UserID, err)
	} else {
		plan.AISummary = summary
	}
	c.JSON(http.StatusOK, gin.H{
		"plan":              plan,
		"credits_remaining": decision.CreditsRemaining,
	})
}
