package credits

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type mockLedger struct {
	status   *Status
	result   *ConsumeResult
	reset    int
	err      error
	consumed []string
}

func (m *mockLedger) GetStatus(userID string) (*Status, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

func (m *mockLedger) Consume(userID, featureName, sessionID string) (*ConsumeResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.consumed = append(m.consumed, featureName)
	return m.result, nil
}

func (m *mockLedger) ResetAll() (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.reset, nil
}

func setup(ledger Ledger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(ledger).RegisterRoutes(r)
	return r
}

func TestGetStatus_OK(t *testing.T) {
	ledger := &mockLedger{status: &Status{
		UserID:    "u1",
		Used:      2,
		Remaining: 3,
		Limit:     DefaultDailyLimit,
		Date:      "2025-06-01",
	}}
	r := setup(ledger)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credits/status/u1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got Status
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Remaining != 3 || got.Limit != 5 {
		t.Errorf("got %+v", got)
	}
}

func TestGetStatus_StoreErrorIs503(t *testing.T) {
	r := setup(&mockLedger{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credits/status/u1", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestConsume_Success(t *testing.T) {
	ledger := &mockLedger{result: &ConsumeResult{Success: true, Remaining: 4, Message: "Credit consumed successfully"}}
	r := setup(ledger)

	body, _ := json.Marshal(gin.H{"user_id": "u1", "feature_name": "quiz", "session_id": "s1"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/credits/consume", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var result ConsumeResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.Remaining != 4 {
		t.Errorf("result = %+v", result)
	}
	if len(ledger.consumed) != 1 || ledger.consumed[0] != "quiz" {
		t.Errorf("consumed = %v", ledger.consumed)
	}
}

func TestConsume_ExhaustedIsStill200(t *testing.T) {
	// Exhaustion is a normal outcome of the ledger API; only the feature gate
	// translates it into a 402.
	ledger := &mockLedger{result: &ConsumeResult{Success: false, Remaining: 0, Message: "No credits remaining"}}
	r := setup(ledger)

	body, _ := json.Marshal(gin.H{"user_id": "u1", "feature_name": "quiz"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/credits/consume", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var result ConsumeResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Error("expected success=false")
	}
}

func TestConsume_MissingFieldsIs400(t *testing.T) {
	r := setup(&mockLedger{})

	body, _ := json.Marshal(gin.H{"user_id": "u1"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/credits/consume", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestReset_ReportsCount(t *testing.T) {
	r := setup(&mockLedger{reset: 12})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/credits/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["reset_count"].(float64) != 12 {
		t.Errorf("reset_count = %v", resp["reset_count"])
	}
}
