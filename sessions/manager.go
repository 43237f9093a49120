package sessions

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// appendRetries bounds the optimistic-concurrency retry loop on message appends.
const appendRetries = 5

// Manager persists study sessions. All writes to one session row are guarded by
// its version column: writers read the version, update conditionally on it, and
// retry on a miss. That replaces any in-process lock and stays correct across
// multiple server processes.
type Manager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Create persists a fresh session before returning it.
func (m *Manager) Create(userID string) (*StudySession, error) {
	now := time.Now()
	s := &StudySession{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		Messages:     []Message{},
		ProgressData: newProgressData(),
		CreatedAt:    now,
		LastActivity: now,
	}
	messagesJSON, err := json.Marshal(s.Messages)
	if err != nil {
		return nil, err
	}
	progressJSON, err := json.Marshal(s.ProgressData)
	if err != nil {
		return nil, err
	}
	_, err = m.db.Exec(
		`INSERT INTO study_sessions (session_id, user_id, messages, progress_data, version, created_at, last_activity)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		s.SessionID, userID, messagesJSON, progressJSON, now, now,
	)
	if err != nil {
		return nil, err
	}
	log.Printf("[sessions][create] session_id=%s user_id=%s", s.SessionID, userID)
	return s, nil
}

// Get loads a session. A reaped or ended id reports ErrNotFound; callers are
// expected to start a new session in that case.
func (m *Manager) Get(sessionID string) (*StudySession, error) {
	row := m.db.QueryRow(
		`SELECT session_id, user_id, messages, progress_data, version, created_at, last_activity
		 FROM study_sessions WHERE session_id = ?`,
		sessionID,
	)
	var s StudySession
	var messagesJSON, progressJSON []byte
	if err := row.Scan(&s.SessionID, &s.UserID, &messagesJSON, &progressJSON, &s.Version, &s.CreatedAt, &s.LastActivity); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(messagesJSON, &s.Messages); err != nil {
		return nil, fmt.Errorf("corrupt message log for %s: %w", sessionID, err)
	}
	if err := json.Unmarshal(progressJSON, &s.ProgressData); err != nil {
		return nil, fmt.Errorf("corrupt progress data for %s: %w", sessionID, err)
	}
	return &s, nil
}

// AppendMessage appends one message and bumps last_activity. The whole log is
// rewritten under a version check, so two racing appenders serialize into some
// total order instead of overwriting each other.
func (m *Manager) AppendMessage(sessionID string, role Role, content string, metadata map[string]any) error {
	msg := Message{Role: role, Content: content, Timestamp: time.Now(), Metadata: metadata}
	return m.mutate(sessionID, func(s *StudySession) {
		s.Messages = append(s.Messages, msg)
	})
}

// UpdateProgress applies fn to the session's progress counters under the same
// version check as message appends.
func (m *Manager) UpdateProgress(sessionID string, fn func(progress map[string]any)) error {
	return m.mutate(sessionID, func(s *StudySession) {
		fn(s.ProgressData)
	})
}

func (m *Manager) mutate(sessionID string, apply func(*StudySession)) error {
	for attempt := 0; attempt < appendRetries; attempt++ {
		s, err := m.Get(sessionID)
		if err != nil {
			return err
		}
		apply(s)
		messagesJSON, err := json.Marshal(s.Messages)
		if err != nil {
			return err
		}
		progressJSON, err := json.Marshal(s.ProgressData)
		if err != nil {
			return err
		}
		res, err := m.db.Exec(
			`UPDATE study_sessions
			 SET messages = ?, progress_data = ?, version = version + 1, last_activity = ?
			 WHERE session_id = ? AND version = ?`,
			messagesJSON, progressJSON, time.Now(), sessionID, s.Version,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}
		// Version moved under us; reload and retry.
	}
	return fmt.Errorf("session %s: too many concurrent writers", sessionID)
}

// Touch bumps last_activity without changing the log. last_activity only moves
// forward: a delayed touch never rewinds it.
func (m *Manager) Touch(sessionID string) error {
	res, err := m.db.Exec(
		`UPDATE study_sessions SET last_activity = GREATEST(last_activity, ?) WHERE session_id = ?`,
		time.Now(), sessionID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Context returns the most recent maxMessages non-system messages in order.
func (m *Manager) Context(sessionID string, maxMessages int) ([]ContextMessage, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return ContextWindow(s.Messages, maxMessages), nil
}

// End deletes the session row. Ended sessions do not resurrect.
func (m *Manager) End(sessionID string) error {
	res, err := m.db.Exec(`DELETE FROM study_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	log.Printf("[sessions][end] session_id=%s", sessionID)
	return nil
}

// ReapStale deletes sessions idle longer than MaxSessionDuration and returns
// how many were removed.
func (m *Manager) ReapStale() (int, error) {
	cutoff := time.Now().Add(-MaxSessionDuration)
	res, err := m.db.Exec(`DELETE FROM study_sessions WHERE last_activity < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		log.Printf("[sessions][reap] removed=%d cutoff=%s", affected, cutoff.Format(time.RFC3339))
	}
	return int(affected), nil
}
