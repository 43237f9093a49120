package subscriptions

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type mockManager struct {
	sub       *Subscription
	cancelled bool
	expired   []string
	err       error
	upgrades  []Tier
}

func (m *mockManager) GetSubscription(userID string) (*Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sub, nil
}

func (m *mockManager) HasActiveAccess(userID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.sub != nil && m.sub.IsPro, nil
}

func (m *mockManager) Upgrade(userID string, tier Tier, paymentID string) (*Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.upgrades = append(m.upgrades, tier)
	exp := time.Now().Add(tier.Duration())
	return &Subscription{UserID: userID, Status: StatusPro, Tier: tier, ExpiresAt: &exp, IsPro: true}, nil
}

func (m *mockManager) Cancel(userID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.cancelled, nil
}

func (m *mockManager) SweepExpired() ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.expired, nil
}

func setup(mgr Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(mgr).RegisterRoutes(r)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetSubscription_OK(t *testing.T) {
	exp := time.Now().Add(200 * time.Hour)
	r := setup(&mockManager{sub: &Subscription{
		UserID: "u1", Status: StatusPro, Tier: TierProMonthly, ExpiresAt: &exp, IsPro: true,
	}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscription/u1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got Subscription
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPro || !got.IsPro {
		t.Errorf("got %+v", got)
	}
}

func TestGetSubscription_StoreErrorIs503(t *testing.T) {
	r := setup(&mockManager{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscription/u1", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestCancel_ActivePro(t *testing.T) {
	r := setup(&mockManager{cancelled: true})

	w := postJSON(r, "/subscription/cancel", gin.H{"user_id": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCancel_NoActiveSubscriptionIs404(t *testing.T) {
	r := setup(&mockManager{cancelled: false})

	w := postJSON(r, "/subscription/cancel", gin.H{"user_id": "u1"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCancel_MissingUserIDIs400(t *testing.T) {
	r := setup(&mockManager{cancelled: true})

	w := postJSON(r, "/subscription/cancel", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSweep_ReportsExpiredUsers(t *testing.T) {
	r := setup(&mockManager{expired: []string{"u1", "u2"}})

	w := postJSON(r, "/subscription/sweep", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		ExpiredUsers []string `json:"expired_users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.ExpiredUsers) != 2 {
		t.Errorf("expired_users = %v", resp.ExpiredUsers)
	}
}

func TestAdminUpgrade_DefaultsToYearly(t *testing.T) {
	mgr := &mockManager{}
	r := setup(mgr)

	w := postJSON(r, "/admin/upgrade-to-pro", gin.H{"user_id": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(mgr.upgrades) != 1 || mgr.upgrades[0] != TierProYearly {
		t.Errorf("upgrades = %v", mgr.upgrades)
	}
}

func TestAdminUpgrade_HonorsRequestedTier(t *testing.T) {
	mgr := &mockManager{}
	r := setup(mgr)

	w := postJSON(r, "/admin/upgrade-to-pro", gin.H{"user_id": "u1", "tier": "pro_lifetime"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(mgr.upgrades) != 1 || mgr.upgrades[0] != TierProLifetime {
		t.Errorf("upgrades = %v", mgr.upgrades)
	}
}
