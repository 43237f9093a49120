package payments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"praxis-backend/subscriptions"
)

// memStore mirrors the repository's transition rules in memory, including the
// single-winner semantics of MarkCompleted.
type memStore struct {
	mu       sync.Mutex
	payments map[string]*Payment
	getErr   error
}

func newMemStore() *memStore {
	return &memStore{payments: map[string]*Payment{}}
}

func (m *memStore) Create(p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.PaymentID] = &cp
	return nil
}

func (m *memStore) Get(paymentID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, nil
	}
	if p.Status == StatusPending && time.Now().After(p.ExpiresAt) {
		p.Status = StatusExpired
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) MarkCompleted(paymentID, transactionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.Status != StatusPending || time.Now().After(p.ExpiresAt) {
		return false, nil
	}
	p.Status = StatusCompleted
	p.TransactionID = transactionID
	return true, nil
}

type mockUpgrader struct {
	mu       sync.Mutex
	upgrades []string
	err      error
}

func (m *mockUpgrader) Upgrade(userID string, tier subscriptions.Tier, paymentID string) (*subscriptions.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.upgrades = append(m.upgrades, paymentID)
	return &subscriptions.Subscription{UserID: userID, Status: subscriptions.StatusPro, Tier: tier}, nil
}

type mockProvider struct {
	captured  bool
	verifyErr error
	intents   int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) CreateIntent(ctx context.Context, p *Payment) (*Intent, error) {
	m.intents++
	return &Intent{Ref: "order_abc", Payload: "https://checkout.example/order_abc"}, nil
}

func (m *mockProvider) Verify(ctx context.Context, ref string) (bool, string, error) {
	if m.verifyErr != nil {
		return false, "", m.verifyErr
	}
	return m.captured, "txn_provider_1", nil
}

func testUPI() UPIConfig {
	return UPIConfig{VPA: "praxisai@paytm", MerchantName: "PraxisAI", Note: "JEE Prep Subscription"}
}

func TestCreateIntent_ManualUPIFlow(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &mockUpgrader{}, nil, testUPI())

	p, checkoutURL, err := svc.CreateIntent(context.Background(), "u1", 99, "INR", subscriptions.TierProMonthly)
	if err != nil {
		t.Fatal(err)
	}
	if checkoutURL != "" {
		t.Errorf("checkout URL = %q for manual flow", checkoutURL)
	}
	if p.Status != StatusPending {
		t.Errorf("status = %s", p.Status)
	}
	if !strings.HasPrefix(p.PaymentID, "pay_") {
		t.Errorf("payment_id = %q", p.PaymentID)
	}
	if !strings.Contains(p.UPILink, "praxisai%40paytm") && !strings.Contains(p.UPILink, "praxisai@paytm") {
		t.Errorf("upi link missing VPA: %q", p.UPILink)
	}
	window := p.ExpiresAt.Sub(p.CreatedAt)
	if window != Validity {
		t.Errorf("validity window = %v, want %v", window, Validity)
	}
	if _, err := store.Get(p.PaymentID); err != nil {
		t.Errorf("payment not persisted: %v", err)
	}
}

func TestCreateIntent_ProviderOrderAttached(t *testing.T) {
	store := newMemStore()
	provider := &mockProvider{}
	svc := NewService(store, &mockUpgrader{}, provider, testUPI())

	p, checkoutURL, err := svc.CreateIntent(context.Background(), "u1", 999, "INR", subscriptions.TierProYearly)
	if err != nil {
		t.Fatal(err)
	}
	if p.ProviderRef != "order_abc" {
		t.Errorf("provider_ref = %q", p.ProviderRef)
	}
	if checkoutURL != "https://checkout.example/order_abc" {
		t.Errorf("checkout URL = %q", checkoutURL)
	}
	if provider.intents != 1 {
		t.Errorf("provider intents = %d", provider.intents)
	}
}

func TestVerify_UpgradesExactlyOnce(t *testing.T) {
	store := newMemStore()
	subs := &mockUpgrader{}
	svc := NewService(store, subs, nil, testUPI())

	p, _, err := svc.CreateIntent(context.Background(), "u1", 99, "INR", subscriptions.TierProMonthly)
	if err != nil {
		t.Fatal(err)
	}

	out, err := svc.Verify(context.Background(), p.PaymentID, "txn_1")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success || out.AlreadyProcessed {
		t.Fatalf("first verify = %+v", out)
	}

	// Replays keep succeeding but never upgrade again.
	for i := 0; i < 3; i++ {
		out, err = svc.Verify(context.Background(), p.PaymentID, "txn_1")
		if err != nil {
			t.Fatal(err)
		}
		if !out.Success || !out.AlreadyProcessed {
			t.Fatalf("replay %d = %+v", i, out)
		}
	}
	if len(subs.upgrades) != 1 {
		t.Fatalf("upgrades = %d, want exactly 1", len(subs.upgrades))
	}
}

func TestVerify_ConcurrentVerifiesOneWinner(t *testing.T) {
	store := newMemStore()
	subs := &mockUpgrader{}
	svc := NewService(store, subs, nil, testUPI())

	p, _, err := svc.CreateIntent(context.Background(), "u1", 99, "INR", subscriptions.TierProMonthly)
	if err != nil {
		t.Fatal(err)
	}

	const goroutines = 8
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Verify(context.Background(), p.PaymentID, "txn_1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("verify error: %v", err)
	}
	if len(subs.upgrades) != 1 {
		t.Fatalf("upgrades = %d, want exactly 1", len(subs.upgrades))
	}
}

func TestVerify_ExpiredWindowFails(t *testing.T) {
	store := newMemStore()
	subs := &mockUpgrader{}
	svc := NewService(store, subs, nil, testUPI())

	p, _, err := svc.CreateIntent(context.Background(), "u1", 99, "INR", subscriptions.TierProMonthly)
	if err != nil {
		t.Fatal(err)
	}
	store.mu.Lock()
	store.payments[p.PaymentID].ExpiresAt = time.Now().Add(-time.Minute)
	store.mu.Unlock()

	if _, err := svc.Verify(context.Background(), p.PaymentID, "txn_1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if len(subs.upgrades) != 0 {
		t.Errorf("expired payment triggered %d upgrades", len(subs.upgrades))
	}
}

func TestVerify_UnknownPayment(t *testing.T) {
	svc := NewService(newMemStore(), &mockUpgrader{}, nil, testUPI())
	if _, err := svc.Verify(context.Background(), "pay_missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestVerify_ProviderDeclineBlocksUpgrade(t *testing.T) {
	store := newMemStore()
	subs := &mockUpgrader{}
	provider := &mockProvider{captured: false}
	svc := NewService(store, subs, provider, testUPI())

	p, _, err := svc.CreateIntent(context.Background(), "u1", 999, "INR", subscriptions.TierProYearly)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(context.Background(), p.PaymentID, ""); !errors.Is(err, ErrProviderDeclined) {
		t.Fatalf("err = %v, want ErrProviderDeclined", err)
	}
	got, err := svc.Status(p.PaymentID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %s, want still pending", got.Status)
	}
	if len(subs.upgrades) != 0 {
		t.Errorf("declined payment triggered %d upgrades", len(subs.upgrades))
	}
}

func TestVerify_ProviderTransactionIDUsedWhenCallerOmitsIt(t *testing.T) {
	store := newMemStore()
	provider := &mockProvider{captured: true}
	svc := NewService(store, &mockUpgrader{}, provider, testUPI())

	p, _, err := svc.CreateIntent(context.Background(), "u1", 999, "INR", subscriptions.TierProYearly)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(context.Background(), p.PaymentID, ""); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Status(p.PaymentID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TransactionID != "txn_provider_1" {
		t.Errorf("transaction_id = %q", got.TransactionID)
	}
}

func TestStatus_LazyExpiry(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &mockUpgrader{}, nil, testUPI())

	p, _, err := svc.CreateIntent(context.Background(), "u1", 99, "INR", subscriptions.TierProMonthly)
	if err != nil {
		t.Fatal(err)
	}
	store.mu.Lock()
	store.payments[p.PaymentID].ExpiresAt = time.Now().Add(-time.Minute)
	store.mu.Unlock()

	got, err := svc.Status(p.PaymentID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}
}
