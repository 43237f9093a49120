package subscriptions

import (
	"database/sql"
	"log"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetSubscription returns the user's record, persisting a free default on first read.
func (r *Repository) GetSubscription(userID string) (*Subscription, error) {
	sub, err := r.fetch(userID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		return sub, nil
	}
	_, err = r.db.Exec(
		`INSERT IGNORE INTO pro_subscriptions (user_id, subscription_status, subscription_tier) VALUES (?, 'free', 'free')`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return &Subscription{UserID: userID, Status: StatusFree, Tier: TierFree}, nil
}

func (r *Repository) fetch(userID string) (*Subscription, error) {
	row := r.db.QueryRow(
		`SELECT user_id, subscription_status, subscription_tier, subscribed_at, expires_at, COALESCE(payment_id, '')
		 FROM pro_subscriptions WHERE user_id = ?`,
		userID,
	)
	var sub Subscription
	var subscribedAt, expiresAt sql.NullTime
	if err := row.Scan(&sub.UserID, &sub.Status, &sub.Tier, &subscribedAt, &expiresAt, &sub.PaymentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if subscribedAt.Valid {
		sub.SubscribedAt = &subscribedAt.Time
	}
	if expiresAt.Valid {
		sub.ExpiresAt = &expiresAt.Time
	}
	live := sub.ExpiresAt == nil || sub.ExpiresAt.After(time.Now())
	sub.IsPro = live && (sub.Status == StatusPro || sub.Status == StatusCancelled)
	return &sub, nil
}

// HasActiveAccess reports whether the user bypasses the credit ledger.
// Cancelled subscriptions keep access until expires_at; the sweep flips them to
// expired afterwards, so both statuses count while the expiry is live.
func (r *Repository) HasActiveAccess(userID string) (bool, error) {
	row := r.db.QueryRow(
		`SELECT COUNT(1) FROM pro_subscriptions
		 WHERE user_id = ? AND subscription_status IN ('pro', 'cancelled')
		   AND (expires_at IS NULL OR expires_at > NOW())`,
		userID,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upgrade promotes the user to pro for the tier's duration, counted from now.
// The upsert makes repeated upgrades idempotent: a second call resets the window
// rather than stacking a duplicate row.
func (r *Repository) Upgrade(userID string, tier Tier, paymentID string) (*Subscription, error) {
	now := time.Now()
	expires := now.Add(tier.Duration())
	_, err := r.db.Exec(
		`INSERT INTO pro_subscriptions (user_id, subscription_status, subscription_tier, subscribed_at, expires_at, payment_id)
		 VALUES (?, 'pro', ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   subscription_status = 'pro',
		   subscription_tier = VALUES(subscription_tier),
		   subscribed_at = VALUES(subscribed_at),
		   expires_at = VALUES(expires_at),
		   payment_id = VALUES(payment_id)`,
		userID, string(tier), now, expires, paymentID,
	)
	if err != nil {
		return nil, err
	}
	log.Printf("[subscriptions][upgrade] user_id=%s tier=%s expires_at=%s payment_id=%s",
		userID, tier, expires.Format(time.RFC3339), paymentID)
	return r.fetch(userID)
}

// Cancel flips the status to cancelled. Access remains valid until expires_at;
// the status alone removes the ledger bypass grace-free at the next expiry.
func (r *Repository) Cancel(userID string) (bool, error) {
	res, err := r.db.Exec(
		`UPDATE pro_subscriptions SET subscription_status = 'cancelled' WHERE user_id = ? AND subscription_status = 'pro'`,
		userID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SweepExpired transitions lapsed pro subscriptions to expired and returns the
// affected users. The UPDATE re-checks expires_at < NOW() at write time, so an
// upgrade racing the sweep with a fresh expiry is left untouched.
func (r *Repository) SweepExpired() ([]string, error) {
	rows, err := r.db.Query(
		`SELECT user_id FROM pro_subscriptions WHERE subscription_status IN ('pro', 'cancelled') AND expires_at IS NOT NULL AND expires_at < NOW()`,
	)
	if err != nil {
		return nil, err
	}
	candidates := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, userID)
	}
	rows.Close()

	expired := []string{}
	for _, userID := range candidates {
		res, err := r.db.Exec(
			`UPDATE pro_subscriptions SET subscription_status = 'expired'
			 WHERE user_id = ? AND subscription_status IN ('pro', 'cancelled') AND expires_at IS NOT NULL AND expires_at < NOW()`,
			userID,
		)
		if err != nil {
			return expired, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return expired, err
		}
		if affected > 0 {
			log.Printf("[subscriptions][sweep] user_id=%s status=expired", userID)
			expired = append(expired, userID)
		}
	}
	return expired, nil
}
