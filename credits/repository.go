package credits

import (
	"database/sql"
	"time"
)

// Repository is the MySQL-backed credit store. The cap rule lives in Debit's
// conditional UPDATE: two racing requests can never push credits_used past
// credits_limit, because only rows still below the limit match.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureToday lazily creates today's credit row for the user. INSERT IGNORE keeps
// it safe under concurrent first-use of the same day.
func (r *Repository) EnsureToday(userID string) error {
	_, err := r.db.Exec(
		`INSERT IGNORE INTO daily_credits (user_id, credits_used, credits_limit, credits_date)
		 VALUES (?, 0, ?, CURDATE())`,
		userID, DefaultDailyLimit,
	)
	return err
}

// Balance returns today's row. Pro status is resolved in the same query so the
// caller needs a single roundtrip.
func (r *Repository) Balance(userID string) (*Status, error) {
	row := r.db.QueryRow(
		`SELECT dc.credits_used, dc.credits_limit, dc.credits_date,
		        COALESCE(ps.subscription_status IN ('pro', 'cancelled') AND (ps.expires_at IS NULL OR ps.expires_at > NOW()), 0)
		 FROM daily_credits dc
		 LEFT JOIN pro_subscriptions ps ON dc.user_id = ps.user_id
		 WHERE dc.user_id = ? AND dc.credits_date = CURDATE()`,
		userID,
	)
	var used, limit int
	var date time.Time
	var isPro bool
	if err := row.Scan(&used, &limit, &date, &isPro); err != nil {
		return nil, err
	}
	return &Status{
		UserID:    userID,
		Used:      used,
		Remaining: limit - used,
		Limit:     limit,
		Date:      date.Format("2006-01-02"),
		IsPro:     isPro,
	}, nil
}

// Debit attempts the single conditional debit on today's row. The rows-affected
// count tells the caller whether a credit was actually taken.
func (r *Repository) Debit(userID string) (bool, error) {
	res, err := r.db.Exec(
		`UPDATE daily_credits
		 SET credits_used = credits_used + 1
		 WHERE user_id = ? AND credits_date = CURDATE() AND credits_used < credits_limit`,
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

// Remaining re-reads the balance after a debit.
func (r *Repository) Remaining(userID string) (int, error) {
	var remaining int
	err := r.db.QueryRow(
		`SELECT credits_limit - credits_used FROM daily_credits WHERE user_id = ? AND credits_date = CURDATE()`,
		userID,
	).Scan(&remaining)
	return remaining, err
}

// ResetStale zeroes usage on rows older than today. Reads always key off today's
// row, so this sweep is belt-and-braces; it returns the rows touched.
func (r *Repository) ResetStale() (int, error) {
	res, err := r.db.Exec(`UPDATE daily_credits SET credits_used = 0 WHERE credits_date < CURDATE()`)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *Repository) LogUsage(userID, featureName string, consumed int, sessionID string) error {
	var sid any
	if sessionID != "" {
		sid = sessionID
	}
	_, err := r.db.Exec(
		`INSERT INTO credit_usage_logs (user_id, feature_name, credits_consumed, session_id) VALUES (?, ?, ?, ?)`,
		userID, featureName, consumed, sid,
	)
	return err
}
