package credits

import "log"

// Store is the persistence surface the ledger needs; *Repository satisfies it.
// Debit must be atomic against the per-day limit: of N concurrent calls on a row
// with k credits left, exactly k return true.
type Store interface {
	EnsureToday(userID string) error
	Balance(userID string) (*Status, error)
	Debit(userID string) (bool, error)
	Remaining(userID string) (int, error)
	LogUsage(userID, featureName string, consumed int, sessionID string) error
	ResetStale() (int, error)
}

// Service owns the consume flow: pro users are never debited, everyone else
// goes through the store's atomic debit. Exhaustion is a result, not an error.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetStatus returns today's balance, creating the row on first use of the day.
func (s *Service) GetStatus(userID string) (*Status, error) {
	if err := s.store.EnsureToday(userID); err != nil {
		return nil, err
	}
	return s.store.Balance(userID)
}

// Consume attempts to debit one credit for a gated feature. Pro users always
// succeed and are never debited; their usage is still logged for analytics.
func (s *Service) Consume(userID, featureName, sessionID string) (*ConsumeResult, error) {
	status, err := s.GetStatus(userID)
	if err != nil {
		return nil, err
	}

	if status.IsPro {
		if err := s.store.LogUsage(userID, featureName, 0, sessionID); err != nil {
			log.Printf("[credits][log_error] user_id=%s feature=%s err=%v", userID, featureName, err)
		}
		return &ConsumeResult{Success: true, Remaining: UnlimitedRemaining, Message: "Pro user - unlimited access"}, nil
	}

	won, err := s.store.Debit(userID)
	if err != nil {
		return nil, err
	}
	if !won {
		log.Printf("[credits][exhausted] user_id=%s feature=%s limit=%d", userID, featureName, status.Limit)
		return &ConsumeResult{Success: false, Remaining: 0, Message: "No credits remaining"}, nil
	}

	if err := s.store.LogUsage(userID, featureName, 1, sessionID); err != nil {
		log.Printf("[credits][log_error] user_id=%s feature=%s err=%v", userID, featureName, err)
	}
	remaining, err := s.store.Remaining(userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[credits][consume] user_id=%s feature=%s remaining=%d", userID, featureName, remaining)
	return &ConsumeResult{Success: true, Remaining: remaining, Message: "Credit consumed successfully"}, nil
}

// ResetAll zeroes usage on stale rows and reports how many were touched.
func (s *Service) ResetAll() (int, error) {
	return s.store.ResetStale()
}
