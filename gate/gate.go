package gate

import (
	"log"

	"praxis-backend/credits"
)

// AccessRequest is the explicit contract every gated handler fills in before
// asking for authorization. Nothing is discovered from the request shape.
type AccessRequest struct {
	UserID    string
	Feature   string
	SessionID string
}

// Decision is the gate's verdict. Denials are normal results; Retryable marks
// the store-unreachable case so callers can answer 503 instead of 402.
type Decision struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason"`
	CreditsRemaining int    `json:"credits_remaining"`
	Retryable        bool   `json:"-"`
}

// SubscriptionAccess is the slice of the subscription manager the gate needs.
type SubscriptionAccess interface {
	HasActiveAccess(userID string) (bool, error)
}

// CreditConsumer is the slice of the credit ledger the gate needs.
type CreditConsumer interface {
	Consume(userID, featureName, sessionID string) (*credits.ConsumeResult, error)
}

// Gate is the single decision point in front of every paid feature.
type Gate struct {
	subs   SubscriptionAccess
	ledger CreditConsumer
}

func New(subs SubscriptionAccess, ledger CreditConsumer) *Gate {
	return &Gate{subs: subs, ledger: ledger}
}

// Authorize decides ALLOW/DENY for one feature invocation. Pro users bypass the
// ledger; everyone else spends a credit. Any store failure denies: the gate
// fails closed rather than handing out free access when the database is down.
func (g *Gate) Authorize(req AccessRequest) Decision {
	pro, err := g.subs.HasActiveAccess(req.UserID)
	if err != nil {
		log.Printf("[gate][error] user_id=%s feature=%s err=%v", req.UserID, req.Feature, err)
		return Decision{Allowed: false, Reason: "subscription check unavailable", Retryable: true}
	}
	if pro {
		log.Printf("[gate][allow] user_id=%s feature=%s reason=pro", req.UserID, req.Feature)
		return Decision{Allowed: true, Reason: "pro access", CreditsRemaining: credits.UnlimitedRemaining}
	}

	result, err := g.ledger.Consume(req.UserID, req.Feature, req.SessionID)
	if err != nil {
		log.Printf("[gate][error] user_id=%s feature=%s err=%v", req.UserID, req.Feature, err)
		return Decision{Allowed: false, Reason: "credit ledger unavailable", Retryable: true}
	}
	if !result.Success {
		log.Printf("[gate][deny] user_id=%s feature=%s remaining=%d", req.UserID, req.Feature, result.Remaining)
		return Decision{Allowed: false, Reason: result.Message, CreditsRemaining: result.Remaining}
	}
	log.Printf("[gate][allow] user_id=%s feature=%s remaining=%d", req.UserID, req.Feature, result.Remaining)
	return Decision{Allowed: true, Reason: result.Message, CreditsRemaining: result.Remaining}
}
