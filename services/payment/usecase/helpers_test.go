package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/piresc/payrelay/services/payment/mocks"
	"github.com/stretchr/testify/require"
)

const testSecret = "sk_test_secret"

type testDeps struct {
	ctrl      *gomock.Controller
	repo      *mocks.MockTransactionRepo
	locker    *mocks.MockLocker
	paymentGW *mocks.MockPaymentGW
	payoutGW  *mocks.MockPayoutGW
	eventGW   *mocks.MockEventGW
	uc        *PaymentUC
}

func testConfig() *models.Config {
	cfg := &models.Config{}
	cfg.Paystack.SecretKey = testSecret
	cfg.Paystack.DefaultCallbackURL = "https://example.com/callback"
	cfg.Payment.OutboundTimeoutSeconds = 2
	return cfg
}

func setupPaymentUC(t *testing.T) *testDeps {
	t.Helper()
	ctrl := gomock.NewController(t)

	d := &testDeps{
		ctrl:      ctrl,
		repo:      mocks.NewMockTransactionRepo(ctrl),
		locker:    mocks.NewMockLocker(ctrl),
		paymentGW: mocks.NewMockPaymentGW(ctrl),
		payoutGW:  mocks.NewMockPayoutGW(ctrl),
		eventGW:   mocks.NewMockEventGW(ctrl),
	}
	d.uc = NewPaymentUC(testConfig(), models.DefaultCountryConfigs(), d.repo, d.locker, d.paymentGW, d.payoutGW, d.eventGW)
	d.uc.newID = func() string { return "tx-1" }
	return d
}

// expectLock expects one acquisition of reference and returns a flag set on release
func (d *testDeps) expectLock(reference string) *bool {
	released := new(bool)
	d.locker.EXPECT().Lock(gomock.Any(), reference).Return(func() { *released = true }, nil)
	return released
}

func pendingTransaction(withCrypto bool) *models.Transaction {
	provider := "mpesa"
	tx := &models.Transaction{
		ID:               "tx-1",
		GatewayReference: "ref_123",
		Amount:           150,
		Currency:         "KES",
		UserEmail:        "user@example.com",
		PaymentMethod:    models.PaymentMethodMobileMoney,
		MobileProvider:   &provider,
		Status:           models.TransactionStatusPending,
		GatewayData:      models.GatewayData{"reference": "ref_123"},
	}
	if withCrypto {
		tx.CryptoIntent = &models.CryptoIntent{Asset: "USDT", WalletAddress: "0xabc"}
	}
	return tx
}

func chargeSuccessPayload(t *testing.T, reference string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"event": "charge.success",
		"data": map[string]interface{}{
			"reference": reference,
			"status":    "success",
			"amount":    15000,
		},
	})
	require.NoError(t, err)
	return payload
}

func signed(payload []byte) string {
	return ComputeSignature(testSecret, payload)
}

// memoryRepo is an in-memory TransactionRepo with compare-and-swap status updates
type memoryRepo struct {
	mu          sync.Mutex
	byReference map[string]*models.Transaction
	transitions int
	delay       time.Duration
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byReference: make(map[string]*models.Transaction)}
}

func (r *memoryRepo) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byReference[reference]
	if !ok {
		return nil, nil
	}
	clone := *tx
	return &clone, nil
}

func (r *memoryRepo) Create(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *tx
	r.byReference[tx.GatewayReference] = &clone
	return nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id string, expected, next models.TransactionStatus, data models.GatewayData) (bool, error) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.byReference {
		if tx.ID != id {
			continue
		}
		if tx.Status != expected {
			return false, nil
		}
		tx.Status = next
		if data != nil {
			tx.GatewayData = data
		}
		r.transitions++
		return true, nil
	}
	return false, nil
}

func (r *memoryRepo) UpdateSnapshot(ctx context.Context, id string, data models.GatewayData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.byReference {
		if tx.ID == id {
			tx.GatewayData = data
			return nil
		}
	}
	return nil
}

// countingPayout records every transfer it is asked to make
type countingPayout struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingPayout) Transfer(ctx context.Context, walletAddress string, amount float64, asset string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "simulated_tx_hash_1", nil
}

// recordingEvents keeps published events in order
type recordingEvents struct {
	mu     sync.Mutex
	events []models.PaymentEvent
}

func (e *recordingEvents) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEvents) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}
