package payments

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

func (r *Repository) Create(p *Payment) error {
	var providerRef, txnID, upiLink any
	if p.ProviderRef != "" {
		providerRef = p.ProviderRef
	}
	if p.TransactionID != "" {
		txnID = p.TransactionID
	}
	if p.UPILink != "" {
		upiLink = p.UPILink
	}
	_, err := r.db.Exec(
		`INSERT INTO payment_transactions
		 (payment_id, user_id, amount, currency, tier, payment_status, upi_link, provider_ref, transaction_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PaymentID, p.UserID, p.Amount, p.Currency, string(p.Tier), string(p.Status),
		upiLink, providerRef, txnID, p.CreatedAt, p.ExpiresAt,
	)
	return err
}

// Get loads a payment by id, lazily expiring a pending row whose validity
// window has passed. Returns (nil, nil) when the id is unknown.
func (r *Repository) Get(paymentID string) (*Payment, error) {
	row := r.db.QueryRow(
		`SELECT payment_id, user_id, amount, currency, tier, payment_status,
		        COALESCE(upi_link, ''), COALESCE(provider_ref, ''), COALESCE(transaction_id, ''),
		        created_at, expires_at
		 FROM payment_transactions WHERE payment_id = ?`,
		paymentID,
	)
	var p Payment
	if err := row.Scan(&p.PaymentID, &p.UserID, &p.Amount, &p.Currency, &p.Tier, &p.Status,
		&p.UPILink, &p.ProviderRef, &p.TransactionID, &p.CreatedAt, &p.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if p.Status == StatusPending && time.Now().After(p.ExpiresAt) {
		if err := r.markExpired(p.PaymentID); err != nil {
			return nil, err
		}
		p.Status = StatusExpired
	}
	return &p, nil
}

// MarkCompleted transitions a pending, unexpired payment to completed in one
// conditional statement. The rows-affected count tells the caller whether this
// call won the transition; a duplicate verification sees zero and treats the
// payment as already processed.
func (r *Repository) MarkCompleted(paymentID, transactionID string) (bool, error) {
	var txn any
	if transactionID != "" {
		txn = transactionID
	}
	res, err := r.db.Exec(
		`UPDATE payment_transactions
		 SET payment_status = 'completed', transaction_id = COALESCE(?, transaction_id)
		 WHERE payment_id = ? AND payment_status = 'pending' AND expires_at > NOW()`,
		txn, paymentID,
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

func (r *Repository) markExpired(paymentID string) error {
	_, err := r.db.Exec(
		`UPDATE payment_transactions SET payment_status = 'expired'
		 WHERE payment_id = ? AND payment_status = 'pending'`,
		paymentID,
	)
	if err == nil {
		log.Printf("[payments][expired] payment_id=%s", paymentID)
	}
	return err
}
