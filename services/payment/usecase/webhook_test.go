package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/piresc/payrelay/internal/pkg/apperrors"
	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/piresc/payrelay/services/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWebhook_RejectsBadSignature(t *testing.T) {
	payload := chargeSuccessPayload(t, "ref_123")

	tests := []struct {
		name      string
		signature string
	}{
		{"missing", ""},
		{"wrong secret", ComputeSignature("other-secret", payload)},
		{"garbage", "not-a-signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// any lock, repository or gateway call fails the test
			d := setupPaymentUC(t)

			err := d.uc.HandleWebhook(context.Background(), payload, tt.signature)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindAuthentication))
			assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
		})
	}
}

func TestHandleWebhook_MalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte("{not json")},
		{"charge without reference", []byte(`{"event":"charge.success","data":{"status":"success"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupPaymentUC(t)

			err := d.uc.HandleWebhook(context.Background(), tt.payload, signed(tt.payload))
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		})
	}
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	d := setupPaymentUC(t)
	payload := []byte(`{"event":"transfer.success","data":{"reference":"ref_123"}}`)

	assert.NoError(t, d.uc.HandleWebhook(context.Background(), payload, signed(payload)))
}

func TestHandleWebhook_UnknownReference(t *testing.T) {
	d := setupPaymentUC(t)
	payload := chargeSuccessPayload(t, "ref_missing")

	released := d.expectLock("ref_missing")
	d.repo.EXPECT().FindByReference(gomock.Any(), "ref_missing").Return(nil, nil)

	assert.NoError(t, d.uc.HandleWebhook(context.Background(), payload, signed(payload)))
	assert.True(t, *released)
}

func TestHandleWebhook_AlreadyProcessed(t *testing.T) {
	for _, status := range []models.TransactionStatus{models.TransactionStatusSuccess, models.TransactionStatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			d := setupPaymentUC(t)
			payload := chargeSuccessPayload(t, "ref_123")

			tx := pendingTransaction(true)
			tx.Status = status

			d.expectLock("ref_123")
			d.repo.EXPECT().FindByReference(gomock.Any(), "ref_123").Return(tx, nil)

			assert.NoError(t, d.uc.HandleWebhook(context.Background(), payload, signed(payload)))
		})
	}
}

func TestHandleWebhook_ChargeSuccess(t *testing.T) {
	d := setupPaymentUC(t)
	payload := chargeSuccessPayload(t, "ref_123")

	released := d.expectLock("ref_123")
	d.repo.EXPECT().FindByReference(gomock.Any(), "ref_123").Return(pendingTransaction(false), nil)
	d.repo.EXPECT().
		UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusPending, models.TransactionStatusSuccess, gomock.Any()).
		DoAndReturn(func(ctx context.Context, id string, expected, next models.TransactionStatus, data models.GatewayData) (bool, error) {
			assert.Equal(t, "ref_123", data["reference"])
			assert.Equal(t, "success", data["status"])
			return true, nil
		})
	d.eventGW.EXPECT().PublishPaymentEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, event models.PaymentEvent) error {
			assert.Equal(t, models.PaymentEventSucceeded, event.Type)
			assert.Equal(t, models.TransactionStatusSuccess, event.Status)
			assert.Empty(t, event.CryptoTransactionHash)
			return nil
		})

	require.NoError(t, d.uc.HandleWebhook(context.Background(), payload, signed(payload)))
	assert.True(t, *released)
}

func TestHandleWebhook_ChargeSuccessWithPayout(t *testing.T) {
	d := setupPaymentUC(t)
	payload := chargeSuccessPayload(t, "ref_123")

	d.expectLock("ref_123")
	gomock.InOrder(
		d.repo.EXPECT().FindByReference(gomock.Any(), "ref_123").Return(pendingTransaction(true), nil),
		d.repo.EXPECT().
			UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusPending, models.TransactionStatusSuccess, gomock.Any()).
			Return(true, nil),
		d.payoutGW.EXPECT().Transfer(gomock.Any(), "0xabc", 150.0, "USDT").Return("simulated_tx_hash_42", nil),
		d.repo.EXPECT().UpdateSnapshot(gomock.Any(), "tx-1", gomock.Any()).
			DoAndReturn(func(ctx context.Context, id string, data models.GatewayData) error {
				assert.Equal(t, "simulated_tx_hash_42", data[models.CryptoTransactionHashKey])
				assert.Equal(t, "ref_123", data["reference"])
				return nil
			}),
		d.eventGW.EXPECT().PublishPaymentEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, event models.PaymentEvent) error {
				assert.Equal(t, models.PaymentEventSucceeded, event.Type)
				assert.Equal(t, "simulated_tx_hash_42", event.CryptoTransactionHash)
				return nil
			}),
	)

	require.NoError(t, d.uc.HandleWebhook(context.Background(), payload, signed(payload)))
}

func TestHandleWebhook_PayoutFailureCompensates(t *testing.T) {
	d := setupPaymentUC(t)
	payload := chargeSuccessPayload(t, "ref_123")
	payoutErr := errors.New("wallet unreachable")

	d.expectLock("ref_123")
	gomock.InOrder(
		d.repo.EXPECT().FindByReference(gomock.Any(), "ref_123").Return(pendingTransaction(true), nil),
		d.repo.EXPECT().
			UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusPending, models.TransactionStatusSuccess, gomock.Any()).
			Return(true, nil),
		d.payoutGW.EXPECT().Transfer(gomock.Any(), "0xabc", 150.0, "USDT").Return("", payoutErr),
		d.repo.EXPECT().
			UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusSuccess, models.TransactionStatusFailed, models.GatewayData(nil)).
			Return(true, nil),
		d.eventGW.EXPECT().PublishPaymentEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, event models.PaymentEvent) error {
				assert.Equal(t, models.PaymentEventFailed, event.Type)
				assert.Equal(t, models.TransactionStatusFailed, event.Status)
				assert.NotEmpty(t, event.Reason)
				return nil
			}),
	)

	err := d.uc.HandleWebhook(context.Background(), payload, signed(payload))
	require.Error(t, err)
	assert.True(t, apperrors.IsCompensated(err))
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
	assert.ErrorIs(t, err, payoutErr)
}

func TestHandleWebhook_SnapshotFailureCompensates(t *testing.T) {
	d := setupPaymentUC(t)
	payload := chargeSuccessPayload(t, "ref_123")

	d.expectLock("ref_123")
	d.repo.EXPECT().FindByReference(gomock.Any(), "ref_123").Return(pendingTransaction(true), nil)
	d.repo.EXPECT().
		UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusPending, models.TransactionStatusSuccess, gomock.Any()).
		Return(true, nil)
	d.payoutGW.EXPECT().Transfer(gomock.Any(), "0xabc", 150.0, "USDT").Return("simulated_tx_hash_42", nil)
	d.repo.EXPECT().UpdateSnapshot(gomock.Any(), "tx-1", gomock.Any()).Return(errors.New("disk full"))
	d.repo.EXPECT().
		UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusSuccess, models.TransactionStatusFailed, gomock.Nil()).
		Return(true, nil)
	d.eventGW.EXPECT().PublishPaymentEvent(gomock.Any(), gomock.Any()).Return(nil)

	err := d.uc.HandleWebhook(context.Background(), payload, signed(payload))
	require.Error(t, err)
	assert.True(t, apperrors.IsCompensated(err))
	assert.True(t, apperrors.IsKind(err, apperrors.KindPersistence))
}

func TestHandleWebhook_CompensationWriteFails(t *testing.T) {
	d := setupPaymentUC(t)
	payload := chargeSuccessPayload(t, "ref_123")

	d.expectLock("ref_123")
	d.repo.EXPECT().FindByReference(gomock.Any(), "ref_123").Return(pendingTransaction(true), nil)
	d.repo.EXPECT().
		UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusPending, models.TransactionStatusSuccess, gomock.Any()).
		Return(true, nil)
	d.payoutGW.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("payout down"))
	d.repo.EXPECT().
		UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusSuccess, models.TransactionStatusFailed, gomock.Nil()).
		Return(false, errors.New("db down"))

	err := d.uc.HandleWebhook(context.Background(), payload, signed(payload))
	require.Error(t, err)
	assert.False(t, apperrors.IsCompensated(err))
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
}

func TestHandleWebhook_LostRace(t *testing.T) {
	d := setupPaymentUC(t)
	payload := chargeSuccessPayload(t, "ref_123")

	d.expectLock("ref_123")
	d.repo.EXPECT().FindByReference(gomock.Any(), "ref_123").Return(pendingTransaction(true), nil)
	d.repo.EXPECT().
		UpdateStatus(gomock.Any(), "tx-1", models.TransactionStatusPending, models.TransactionStatusSuccess, gomock.Any()).
		Return(false, nil)

	// no payout and no event
	assert.NoError(t, d.uc.HandleWebhook(context.Background(), payload, signed(payload)))
}

func TestHandleWebhook_LockFailure(t *testing.T) {
	tests := []struct {
		name    string
		lockErr error
		timeout bool
	}{
		{"contended", apperrors.ErrLockNotAcquired, false},
		{"deadline", context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupPaymentUC(t)
			payload := chargeSuccessPayload(t, "ref_123")

			d.locker.EXPECT().Lock(gomock.Any(), "ref_123").Return(nil, tt.lockErr)

			err := d.uc.HandleWebhook(context.Background(), payload, signed(payload))
			require.Error(t, err)

			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindUpstream, appErr.Kind)
			assert.True(t, appErr.Retriable)
			assert.Equal(t, tt.timeout, appErr.Timeout)
			assert.Equal(t, msgUpstreamUnavailable, appErr.PublicMessage())
			assert.ErrorIs(t, err, tt.lockErr)
		})
	}
}

func TestHandleWebhook_LoadFailure(t *testing.T) {
	d := setupPaymentUC(t)
	payload := chargeSuccessPayload(t, "ref_123")

	released := d.expectLock("ref_123")
	d.repo.EXPECT().FindByReference(gomock.Any(), "ref_123").Return(nil, errors.New("db down"))

	err := d.uc.HandleWebhook(context.Background(), payload, signed(payload))
	assert.True(t, apperrors.IsKind(err, apperrors.KindPersistence))
	assert.True(t, *released)
}

func newMemoryUC(repo *memoryRepo, payout *countingPayout, events *recordingEvents) *PaymentUC {
	return NewPaymentUC(testConfig(), models.DefaultCountryConfigs(), repo, repository.NewLocalLocker(), nil, payout, events)
}

func TestHandleWebhook_DuplicateDeliveries(t *testing.T) {
	repo := newMemoryRepo()
	require.NoError(t, repo.Create(context.Background(), pendingTransaction(true)))
	payout := &countingPayout{}
	events := &recordingEvents{}
	uc := newMemoryUC(repo, payout, events)

	payload := chargeSuccessPayload(t, "ref_123")
	for i := 0; i < 3; i++ {
		require.NoError(t, uc.HandleWebhook(context.Background(), payload, signed(payload)))
	}

	tx, err := repo.FindByReference(context.Background(), "ref_123")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, tx.Status)
	assert.Equal(t, "simulated_tx_hash_1", tx.GatewayData[models.CryptoTransactionHashKey])
	assert.Equal(t, 1, payout.calls)
	assert.Equal(t, 1, repo.transitions)
	assert.Equal(t, []string{models.PaymentEventSucceeded}, events.types())
}

func TestHandleWebhook_ConcurrentDeliveries(t *testing.T) {
	repo := newMemoryRepo()
	repo.delay = 2 * time.Millisecond
	require.NoError(t, repo.Create(context.Background(), pendingTransaction(true)))
	payout := &countingPayout{}
	events := &recordingEvents{}
	uc := newMemoryUC(repo, payout, events)

	payload := chargeSuccessPayload(t, "ref_123")
	signature := signed(payload)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- uc.HandleWebhook(context.Background(), payload, signature)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, payout.calls)
	assert.Equal(t, 1, repo.transitions)
	assert.Equal(t, []string{models.PaymentEventSucceeded}, events.types())
}

func TestHandleWebhook_PayoutFailureFinalStatus(t *testing.T) {
	repo := newMemoryRepo()
	require.NoError(t, repo.Create(context.Background(), pendingTransaction(true)))
	payout := &countingPayout{err: errors.New("insufficient liquidity")}
	events := &recordingEvents{}
	uc := newMemoryUC(repo, payout, events)

	payload := chargeSuccessPayload(t, "ref_123")
	err := uc.HandleWebhook(context.Background(), payload, signed(payload))
	require.Error(t, err)
	assert.True(t, apperrors.IsCompensated(err))

	tx, err := repo.FindByReference(context.Background(), "ref_123")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, tx.Status)
	assert.Equal(t, []string{models.PaymentEventFailed}, events.types())

	// a redelivery finds the transaction settled and does nothing
	require.NoError(t, uc.HandleWebhook(context.Background(), payload, signed(payload)))
	assert.Equal(t, 1, payout.calls)
}
