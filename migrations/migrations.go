package migrations

import (
	"database/sql"
	"fmt"
)

var db *sql.DB

// Init sets the DB connection for migrations and queries
func Init(database *sql.DB) {
	db = database
}

// Migrate creates required tables if they do not exist
func Migrate() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}

	createDailyCredits := `
	CREATE TABLE IF NOT EXISTS daily_credits (
		user_id VARCHAR(100) NOT NULL,
		credits_used INT NOT NULL DEFAULT 0,
		credits_limit INT NOT NULL DEFAULT 5,
		credits_date DATE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, credits_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createDailyCredits); err != nil {
		return err
	}

	createUsageLogs := `
	CREATE TABLE IF NOT EXISTS credit_usage_logs (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(100) NOT NULL,
		feature_name VARCHAR(100) NOT NULL,
		credits_consumed INT NOT NULL DEFAULT 0,
		session_id VARCHAR(100) NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_usage_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createUsageLogs); err != nil {
		return err
	}

	createSubscriptions := `
	CREATE TABLE IF NOT EXISTS pro_subscriptions (
		user_id VARCHAR(100) PRIMARY KEY,
		subscription_status VARCHAR(20) NOT NULL DEFAULT 'free',
		subscription_tier VARCHAR(20) NOT NULL DEFAULT 'free',
		subscribed_at DATETIME NULL,
		expires_at DATETIME NULL,
		payment_id VARCHAR(100) NULL,
		amount_paid DECIMAL(10,2) NULL,
		currency VARCHAR(3) NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_subs_expiry (subscription_status, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createSubscriptions); err != nil {
		return err
	}

	createPayments := `
	CREATE TABLE IF NOT EXISTS payment_transactions (
		payment_id VARCHAR(100) PRIMARY KEY,
		user_id VARCHAR(100) NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		currency VARCHAR(3) NOT NULL DEFAULT 'INR',
		tier VARCHAR(20) NOT NULL DEFAULT 'pro_monthly',
		payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		upi_link VARCHAR(500) NULL,
		provider_ref VARCHAR(100) NULL,
		transaction_id VARCHAR(100) NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_payments_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createPayments); err != nil {
		return err
	}

	createSessions := `
	CREATE TABLE IF NOT EXISTS study_sessions (
		session_id VARCHAR(100) PRIMARY KEY,
		user_id VARCHAR(100) NOT NULL,
		messages JSON NOT NULL,
		progress_data JSON NOT NULL,
		version INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		last_activity DATETIME NOT NULL,
		INDEX idx_sessions_user (user_id),
		INDEX idx_sessions_activity (last_activity)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createSessions); err != nil {
		return err
	}

	createFeatures := `
	CREATE TABLE IF NOT EXISTS pro_features (
		id INT AUTO_INCREMENT PRIMARY KEY,
		feature_name VARCHAR(100) NOT NULL UNIQUE,
		feature_description VARCHAR(255) NOT NULL DEFAULT '',
		requires_pro TINYINT(1) NOT NULL DEFAULT 0,
		credits_required INT NOT NULL DEFAULT 1,
		is_active TINYINT(1) NOT NULL DEFAULT 1
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createFeatures); err != nil {
		return err
	}

	return nil
}

// SeedFeatures inserts the gated feature catalog if the table is empty
func SeedFeatures() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(1) FROM pro_features").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	features := []struct {
		name, description string
	}{
		{"deep_study", "Advanced AI tutoring with context memory"},
		{"study_plan", "AI-powered personalized study plans"},
		{"problem_generator", "AI-generated JEE practice problems"},
		{"pro_chat", "Advanced AI chat with specialized JEE knowledge"},
		{"quiz", "AI-generated quizzes for the active session"},
	}
	for _, f := range features {
		_, err := db.Exec(
			"INSERT INTO pro_features (feature_name, feature_description, requires_pro, credits_required) VALUES (?, ?, 0, 1)",
			f.name, f.description,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Feature describes one entry of the gated feature catalog
type Feature struct {
	Name            string `json:"feature_name"`
	Description     string `json:"feature_description"`
	RequiresPro     bool   `json:"requires_pro"`
	CreditsRequired int    `json:"credits_required"`
}

// ListActiveFeatures returns the active gated features ordered by name
func ListActiveFeatures() ([]Feature, error) {
	if db == nil {
		return nil, fmt.Errorf("db is not initialized")
	}
	rows, err := db.Query(`SELECT feature_name, feature_description, requires_pro, credits_required
		FROM pro_features WHERE is_active = 1 ORDER BY feature_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	features := []Feature{}
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.Name, &f.Description, &f.RequiresPro, &f.CreditsRequired); err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}
