package subscriptions

import "time"

// Status of a user's subscription record.
type Status string

const (
	StatusFree      Status = "free"
	StatusPro       Status = "pro"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Tier identifies the purchased plan.
type Tier string

const (
	TierFree        Tier = "free"
	TierProMonthly  Tier = "pro_monthly"
	TierProYearly   Tier = "pro_yearly"
	TierProLifetime Tier = "pro_lifetime"
)

// Duration returns how long an upgrade to this tier lasts. Lifetime is modeled
// as 100 years so the expiry check stays uniform across tiers.
func (t Tier) Duration() time.Duration {
	switch t {
	case TierProMonthly:
		return 30 * 24 * time.Hour
	case TierProYearly:
		return 365 * 24 * time.Hour
	case TierProLifetime:
		return 100 * 365 * 24 * time.Hour
	}
	return 0
}

// Valid reports whether t names a purchasable pro tier.
func (t Tier) Valid() bool {
	switch t {
	case TierProMonthly, TierProYearly, TierProLifetime:
		return true
	}
	return false
}

type Subscription struct {
	UserID       string     `json:"user_id"`
	Status       Status     `json:"subscription_status"`
	Tier         Tier       `json:"subscription_tier"`
	SubscribedAt *time.Time `json:"subscribed_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	PaymentID    string     `json:"payment_id,omitempty"`
	IsPro        bool       `json:"is_pro_user"`
}
