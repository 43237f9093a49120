package credits

// DefaultDailyLimit is the number of free gated-feature uses per calendar day.
const DefaultDailyLimit = 5

// UnlimitedRemaining is reported instead of a count when the user has Pro access.
const UnlimitedRemaining = -1

// Status describes a user's credit balance for today.
type Status struct {
	UserID    string `json:"user_id"`
	Used      int    `json:"credits_used"`
	Remaining int    `json:"credits_remaining"`
	Limit     int    `json:"credits_limit"`
	Date      string `json:"credits_date"`
	IsPro     bool   `json:"is_pro_user"`
}

// ConsumeResult is the outcome of one debit attempt. An exhausted ledger is a
// normal result, not an error.
type ConsumeResult struct {
	Success   bool   `json:"success"`
	Remaining int    `json:"credits_remaining"`
	Message   string `json:"message"`
}
